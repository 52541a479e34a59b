package guestlist

import (
	"strings"
	"time"

	"github.com/hyperjump/nikah/internal/models"
)

// Directory is an immutable snapshot of the guest list with search keys and family indices.
// It is safe for concurrent use.
type Directory struct {
	guests      []models.Guest
	englishKeys []string
	arabicKeys  []string
	positions   map[int]int
	families    map[string][]int
	familyKey   func(string) string

	degraded    int
	discarded   int
	fingerprint string
	builtAt     time.Time
}

// Empty returns a directory with no guests.
func Empty() *Directory {
	return &Directory{
		positions: map[int]int{},
		families:  map[string][]int{},
		familyKey: normalizeFamily(MatchNormalized),
	}
}

// Len returns the number of guests.
func (d *Directory) Len() int {
	return len(d.guests)
}

// Guests returns a copy of all guests in sheet order.
func (d *Directory) Guests() []models.Guest {
	out := make([]models.Guest, len(d.guests))
	copy(out, d.guests)
	return out
}

// Guest returns the guest with the given row index.
func (d *Directory) Guest(rowIndex int) (models.Guest, bool) {
	pos, ok := d.positions[rowIndex]
	if !ok {
		return models.Guest{}, false
	}
	return d.guests[pos], true
}

// Contains reports whether rowIndex names a guest in this snapshot.
func (d *Directory) Contains(rowIndex int) bool {
	_, ok := d.positions[rowIndex]
	return ok
}

// Family returns the row indexes of every guest in group, in sheet order.
// An empty group has no members.
func (d *Directory) Family(group string) []int {
	if group == "" {
		return nil
	}
	members := d.families[d.familyKey(group)]
	out := make([]int, len(members))
	copy(out, members)
	return out
}

// FamilyCount returns the number of distinct non-empty family groups.
func (d *Directory) FamilyCount() int {
	return len(d.families)
}

// Match returns the row indexes, in sheet order, whose name in lang contains key.
// key must already be normalized with script.Key. An empty key matches nothing.
func (d *Directory) Match(lang models.Language, key string) []int {
	if key == "" {
		return nil
	}
	keys := d.englishKeys
	if lang == models.LanguageArabic {
		keys = d.arabicKeys
	}
	var rows []int
	for i, k := range keys {
		if k != "" && strings.Contains(k, key) {
			rows = append(rows, d.guests[i].RowIndex)
		}
	}
	return rows
}

// DegradedRows returns the number of rows parsed from a line with an unterminated quote.
func (d *Directory) DegradedRows() int {
	return d.degraded
}

// DiscardedRows returns the number of data rows dropped because both names were empty.
func (d *Directory) DiscardedRows() int {
	return d.discarded
}

// Fingerprint returns the SHA-256 of the payload this directory was built from.
func (d *Directory) Fingerprint() string {
	return d.fingerprint
}

// BuiltAt returns when the directory was built.
func (d *Directory) BuiltAt() time.Time {
	return d.builtAt
}
