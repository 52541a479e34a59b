package guestlist

import (
	"strings"
	"time"

	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/internal/script"
)

// FamilyMatching controls which family group spellings are considered the same group.
type FamilyMatching string

const (
	// MatchExact compares trimmed values byte for byte.
	MatchExact FamilyMatching = "exact"
	// MatchNormalized also applies NFC, strips invisible marks and collapses whitespace.
	MatchNormalized FamilyMatching = "normalized"
	// MatchFolded also ignores case and Arabic letter variants.
	MatchFolded FamilyMatching = "folded"
)

// Builder converts decoded tables into directories.
type Builder struct {
	columns  config.Columns
	matching FamilyMatching
	now      func() time.Time
}

// NewBuilder creates a builder for the column layout and matching mode in cfg.
func NewBuilder(cfg *config.SourceConfig) *Builder {
	matching := FamilyMatching(cfg.FamilyMatching)
	if matching == "" {
		matching = MatchNormalized
	}
	return &Builder{
		columns:  cfg.Columns.Resolve(),
		matching: matching,
		now:      time.Now,
	}
}

// Build skips the header row, assigns row indexes to the remaining rows in order, and
// discards rows whose english and arabic names are both empty. The discarded rows still
// consume their index so indexes stay stable across edits to neighbouring rows.
func (b *Builder) Build(table *Table) *Directory {
	familyKey := normalizeFamily(b.matching)
	d := &Directory{
		positions: map[int]int{},
		families:  map[string][]int{},
		familyKey: familyKey,
		degraded:  table.Degraded,
		builtAt:   b.now(),
	}
	if len(table.Rows) < 2 {
		return d
	}
	data := table.Rows[1:]
	d.guests = make([]models.Guest, 0, len(data))
	spelling := map[string]string{}
	for rowIndex, row := range data {
		guest := b.guest(row, rowIndex)
		if guest.EnglishName == "" && guest.ArabicName == "" {
			d.discarded++
			continue
		}
		if guest.FamilyGroup != "" {
			// Members of one group carry its first-seen spelling.
			key := familyKey(guest.FamilyGroup)
			if first, ok := spelling[key]; ok {
				guest.FamilyGroup = first
			} else {
				spelling[key] = guest.FamilyGroup
			}
		}
		d.positions[rowIndex] = len(d.guests)
		d.guests = append(d.guests, guest)
		d.englishKeys = append(d.englishKeys, script.Key(guest.EnglishName))
		d.arabicKeys = append(d.arabicKeys, script.Key(guest.ArabicName))
		if guest.FamilyGroup != "" {
			key := familyKey(guest.FamilyGroup)
			d.families[key] = append(d.families[key], rowIndex)
		}
	}
	return d
}

func (b *Builder) guest(row []string, rowIndex int) models.Guest {
	family := cell(row, b.columns.FamilyGroup)
	if b.matching != MatchExact {
		family = script.Clean(family)
	}
	g := models.Guest{
		EnglishName: script.Clean(cell(row, b.columns.EnglishName)),
		FamilyGroup: family,
		TableNumber: script.Clean(cell(row, b.columns.TableNumber)),
		RowIndex:    rowIndex,
	}
	if b.columns.Combined() {
		g.EnglishName, g.ArabicName = SplitCombinedName(g.EnglishName)
	} else {
		g.ArabicName = script.Clean(cell(row, b.columns.ArabicName))
	}
	return g
}

// SplitCombinedName separates a cell like "Sarah Ali / سارة علي" into its latin and arabic parts.
// Tokens are assigned by script; standalone separators are dropped.
func SplitCombinedName(name string) (english, arabic string) {
	name = strings.NewReplacer("/", " ", "|", " ").Replace(name)
	var en, ar []string
	for _, tok := range strings.Fields(name) {
		if strings.Trim(tok, "-\u2013\u2014,;") == "" {
			continue
		}
		if script.ContainsArabic(tok) {
			ar = append(ar, tok)
		} else {
			en = append(en, tok)
		}
	}
	return strings.Join(en, " "), strings.Join(ar, " ")
}

func normalizeFamily(mode FamilyMatching) func(string) string {
	switch mode {
	case MatchExact:
		return strings.TrimSpace
	case MatchFolded:
		return script.Key
	default:
		return script.Clean
	}
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
