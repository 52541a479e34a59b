// Package script classifies query text by writing system and builds the folded keys
// names are matched on.
package script

import (
	"strings"
	"unicode"

	"github.com/hyperjump/nikah/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const tatweel = '\u0640'

// Detect returns LanguageArabic when text contains any Arabic-script rune, else LanguageEnglish.
func Detect(text string) models.Language {
	if ContainsArabic(text) {
		return models.LanguageArabic
	}
	return models.LanguageEnglish
}

// ContainsArabic reports whether s has at least one Arabic-script rune.
func ContainsArabic(s string) bool {
	for _, r := range s {
		if IsArabic(r) {
			return true
		}
	}
	return false
}

// IsArabic reports whether r belongs to the Arabic script.
func IsArabic(r rune) bool {
	return unicode.Is(unicode.Arabic, r)
}

// Invisible reports whether r is a zero-width, bidi-control, or BOM character
// that copy-pasted spreadsheet cells tend to carry.
func Invisible(r rune) bool {
	switch {
	case r >= '\u200b' && r <= '\u200f':
		return true
	case r >= '\u202a' && r <= '\u202e':
		return true
	case r >= '\u2066' && r <= '\u2069':
		return true
	case r == '\ufeff', r == '\u00ad', r == '\u2060':
		return true
	}
	return false
}

// Clean applies NFC, drops invisible runes, and collapses whitespace (including NBSP) to single spaces.
func Clean(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if Invisible(r) {
			continue
		}
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Fold returns the case-folded form of s.
// A Caser keeps state, so one is created per call rather than shared.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Key returns the form of s used for case-insensitive substring matching.
// Arabic diacritics and tatweel are removed and the common letter variants are unified:
// alef forms to bare alef, alef maqsura to yaa, taa marbuta to haa.
func Key(s string) string {
	s = Fold(Clean(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isTashkeel(r) || r == tatweel {
			continue
		}
		b.WriteRune(foldArabicLetter(r))
	}
	return b.String()
}

func isTashkeel(r rune) bool {
	return (r >= '\u064b' && r <= '\u065f') || r == '\u0670' || (r >= '\u06d6' && r <= '\u06ed')
}

func foldArabicLetter(r rune) rune {
	switch r {
	case 'آ', 'أ', 'إ', 'ٱ':
		return 'ا'
	case 'ى':
		return 'ي'
	case 'ة':
		return 'ه'
	}
	return r
}
