package models

// SearchResult is the family-expanded set of guests matching a query, in directory order.
// RemainingSearches is nil when no quota applies.
type SearchResult struct {
	Guests            []Guest  `json:"guests"`
	SearchLanguage    Language `json:"searchLanguage"`
	RemainingSearches *int     `json:"remainingSearches,omitempty"`
}

// RowIndexes returns the row indexes of the result in order.
func (r *SearchResult) RowIndexes() []int {
	out := make([]int, len(r.Guests))
	for i, g := range r.Guests {
		out[i] = g.RowIndex
	}
	return out
}

// Families returns the distinct non-empty family groups of the result in first-seen order.
func (r *SearchResult) Families() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range r.Guests {
		if g.FamilyGroup == "" || seen[g.FamilyGroup] {
			continue
		}
		seen[g.FamilyGroup] = true
		out = append(out, g.FamilyGroup)
	}
	return out
}
