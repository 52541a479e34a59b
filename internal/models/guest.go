// Package models defines core data structures for guests, searches, and RSVP submissions.
package models

import "encoding/json"

// Language is the language a query was written in or a confirmation is rendered in.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageArabic
}

// Guest is one data row of the guest list.
// RowIndex is the 0-based position among data rows and identifies the guest.
type Guest struct {
	EnglishName string
	ArabicName  string
	FamilyGroup string
	TableNumber string
	RowIndex    int
}

// Grouped reports whether the guest belongs to a family group.
func (g Guest) Grouped() bool {
	return g.FamilyGroup != ""
}

// DisplayName returns the name in the given language, falling back to the other one.
func (g Guest) DisplayName(lang Language) string {
	if lang == LanguageArabic && g.ArabicName != "" {
		return g.ArabicName
	}
	if g.EnglishName != "" {
		return g.EnglishName
	}
	return g.ArabicName
}

type guestJSON struct {
	EnglishName string  `json:"englishName"`
	ArabicName  string  `json:"arabicName"`
	FamilyGroup string  `json:"familyGroup"`
	TableNumber *string `json:"tableNumber"`
	RowIndex    int     `json:"rowIndex"`
}

// MarshalJSON writes an unassigned table number as null.
func (g Guest) MarshalJSON() ([]byte, error) {
	out := guestJSON{
		EnglishName: g.EnglishName,
		ArabicName:  g.ArabicName,
		FamilyGroup: g.FamilyGroup,
		RowIndex:    g.RowIndex,
	}
	if g.TableNumber != "" {
		table := g.TableNumber
		out.TableNumber = &table
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts a null table number.
func (g *Guest) UnmarshalJSON(data []byte) error {
	var in guestJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*g = Guest{
		EnglishName: in.EnglishName,
		ArabicName:  in.ArabicName,
		FamilyGroup: in.FamilyGroup,
		RowIndex:    in.RowIndex,
	}
	if in.TableNumber != nil {
		g.TableNumber = *in.TableNumber
	}
	return nil
}
