package rsvp

import (
	"sort"
	"sync"
)

const lockStripes = 64

// rowLocks serializes writes per row index. Rows share a fixed set of mutexes; a submission
// locks its stripes in ascending order so two overlapping submissions cannot deadlock.
type rowLocks struct {
	stripes [lockStripes]sync.Mutex
}

// lock acquires the stripes of rows and returns the function that releases them.
func (l *rowLocks) lock(rows []int) func() {
	seen := make(map[int]bool, len(rows))
	idx := make([]int, 0, len(rows))
	for _, r := range rows {
		s := stripe(r)
		if !seen[s] {
			seen[s] = true
			idx = append(idx, s)
		}
	}
	sort.Ints(idx)
	for _, s := range idx {
		l.stripes[s].Lock()
	}
	return func() {
		for i := len(idx) - 1; i >= 0; i-- {
			l.stripes[idx[i]].Unlock()
		}
	}
}

func stripe(row int) int {
	if row < 0 {
		row = -row
	}
	return row % lockStripes
}
