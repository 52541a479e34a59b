package models

import "strings"

// SearchQuery is a guest search request.
// ClientID identifies the caller for quota accounting and is never read from the body.
type SearchQuery struct {
	Text     string `json:"searchQuery"`
	ClientID string `json:"-"`
}

// Trimmed returns the query text without surrounding whitespace.
func (q *SearchQuery) Trimmed() string {
	return strings.TrimSpace(q.Text)
}

// Blank reports whether the query has no non-whitespace characters.
func (q *SearchQuery) Blank() bool {
	return q.Trimmed() == ""
}
