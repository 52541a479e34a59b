package models

import "time"

// DirectoryStatus describes the current guest list snapshot.
type DirectoryStatus struct {
	Loaded       bool      `json:"loaded"`
	Fresh        bool      `json:"fresh"`
	Guests       int       `json:"guests"`
	Families     int       `json:"families"`
	DegradedRows int       `json:"degradedRows"`
	Discarded    int       `json:"discardedRows"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
	LoadedAt     time.Time `json:"loadedAt,omitempty"`
	Source       string    `json:"source"`
	RefreshEvery string    `json:"refreshInterval"`
}

// RateLimitStatus describes the active search quota policy.
type RateLimitStatus struct {
	Enabled     bool   `json:"enabled"`
	MaxSearches int    `json:"maxSearches,omitempty"`
	Window      string `json:"window,omitempty"`
}

// Status is the reply of the status endpoint.
type Status struct {
	Directory     DirectoryStatus  `json:"directory"`
	Responses     *ResponseSummary `json:"responses,omitempty"`
	RateLimit     RateLimitStatus  `json:"rateLimit"`
	DatabaseBytes int64            `json:"databaseBytes"`
	Version       string           `json:"version,omitempty"`
}

// ResponseList is the reply of the responses listing endpoint.
type ResponseList struct {
	Responses []*Response      `json:"responses"`
	Summary   *ResponseSummary `json:"summary"`
	Offset    int              `json:"offset"`
	Limit     int              `json:"limit"`
}
