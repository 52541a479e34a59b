package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hyperjump/nikah/internal/models"
)

// MemoryStore keeps quota windows in process memory. State is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]models.QuotaWindow
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]models.QuotaWindow)}
}

// UpdateQuota applies fn under the store lock.
func (s *MemoryStore) UpdateQuota(ctx context.Context, clientID string, fn func(w models.QuotaWindow, found bool) models.QuotaWindow) (models.QuotaWindow, error) {
	if err := ctx.Err(); err != nil {
		return models.QuotaWindow{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, found := s.windows[clientID]
	w = fn(w, found)
	s.windows[clientID] = w
	return w, nil
}

// GetQuota returns the stored window of clientID.
func (s *MemoryStore) GetQuota(ctx context.Context, clientID string) (models.QuotaWindow, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.QuotaWindow{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, found := s.windows[clientID]
	return w, found, nil
}

// Sweep drops windows that started more than maxAge before now and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time, maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, w := range s.windows {
		if w.Expired(now, maxAge) {
			delete(s.windows, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now, maxAge)
		}
	}
}
