package models

import "time"

// QuotaWindow is the search counter of one client. Count searches were accepted since Start.
type QuotaWindow struct {
	Start time.Time
	Count int
}

// Expired reports whether the window has rolled over at now.
func (w QuotaWindow) Expired(now time.Time, length time.Duration) bool {
	return w.Start.IsZero() || now.Sub(w.Start) >= length
}

// Quota is the client-facing view of a QuotaWindow.
type Quota struct {
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	ResetsAt  *time.Time `json:"resetAt,omitempty"`
}
