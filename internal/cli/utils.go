// Package cli provides output formatting for the nikah command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one line per guest.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
}

// WriteSearchResults writes a search result to w in the given format.
// Text output numbers guests from 1.
func WriteSearchResults(w io.Writer, result *models.SearchResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, result)
	case OutputCompact:
		for _, g := range result.Guests {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", g.RowIndex, g.EnglishName, g.ArabicName, g.FamilyGroup, g.TableNumber)
		}
		return nil
	}

	if len(result.Guests) == 0 {
		fmt.Fprintln(w, "\nNo guests found.")
		writeRemaining(w, result)
		return nil
	}
	fmt.Fprintf(w, "\nFound %d guest(s) (%s search)\n\n", len(result.Guests), languageName(result.SearchLanguage))
	family := ""
	for i, g := range result.Guests {
		if g.FamilyGroup != "" && g.FamilyGroup != family {
			fmt.Fprintf(w, "  %s\n", g.FamilyGroup)
		}
		family = g.FamilyGroup
		fmt.Fprintf(w, "  %2d. %s", i+1, g.DisplayName(result.SearchLanguage))
		if other := otherName(g, result.SearchLanguage); other != "" {
			fmt.Fprintf(w, " (%s)", other)
		}
		if g.TableNumber != "" {
			fmt.Fprintf(w, "  table %s", g.TableNumber)
		}
		fmt.Fprintln(w)
	}
	writeRemaining(w, result)
	return nil
}

func writeRemaining(w io.Writer, result *models.SearchResult) {
	if result.RemainingSearches != nil {
		fmt.Fprintf(w, "\n%d search(es) remaining today\n", *result.RemainingSearches)
	}
}

func otherName(g models.Guest, lang models.Language) string {
	shown := g.DisplayName(lang)
	if g.EnglishName != "" && g.EnglishName != shown {
		return g.EnglishName
	}
	if g.ArabicName != "" && g.ArabicName != shown {
		return g.ArabicName
	}
	return ""
}

func languageName(lang models.Language) string {
	if lang == models.LanguageArabic {
		return "Arabic"
	}
	return "English"
}

// WriteConfirmation writes an RSVP confirmation.
func WriteConfirmation(w io.Writer, conf *models.Confirmation, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, conf)
	}
	fmt.Fprintf(w, "\n%s\n", conf.Message)
	if conf.TableNumber != nil {
		fmt.Fprintf(w, "Table: %s\n", *conf.TableNumber)
	}
	if format == OutputText && conf.SubmissionID != "" {
		fmt.Fprintf(w, "Reference: %s\n", conf.SubmissionID)
	}
	return nil
}

// WriteResponses writes stored RSVP responses.
func WriteResponses(w io.Writer, list *models.ResponseList, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, list)
	case OutputCompact:
		for _, r := range list.Responses {
			fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n", r.RowIndex, r.EnglishName, r.Attending, r.Language, r.UpdatedAt.Format(time.RFC3339))
		}
		return nil
	}

	if list.Summary != nil {
		fmt.Fprintf(w, "\n%d response(s): %d attending, %d declining\n\n",
			list.Summary.Total, list.Summary.Attending, list.Summary.Declining)
	}
	for _, r := range list.Responses {
		answer := utils.Ternary(r.Attending, "attending", "declining")
		name := r.EnglishName
		if name == "" {
			name = r.ArabicName
		}
		fmt.Fprintf(w, "  [%d] %-30s %-9s", r.RowIndex, utils.Truncate(name, 30), answer)
		if r.FamilyGroup != "" {
			fmt.Fprintf(w, "  %s", utils.Truncate(r.FamilyGroup, 40))
		}
		fmt.Fprintf(w, "  (%s)\n", r.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// WriteStatus writes the service status.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	d := st.Directory
	fmt.Fprintf(w, "Source:          %s\n", d.Source)
	if !d.Loaded {
		fmt.Fprintln(w, "Guest list:      not loaded")
	} else {
		fmt.Fprintf(w, "Guests:          %d (%d families)\n", d.Guests, d.Families)
		if d.DegradedRows > 0 || d.Discarded > 0 {
			fmt.Fprintf(w, "Skipped rows:    %d degraded, %d without names\n", d.DegradedRows, d.Discarded)
		}
		fmt.Fprintf(w, "Fingerprint:     %s\n", d.Fingerprint)
		fmt.Fprintf(w, "Loaded at:       %s (fresh: %t)\n", d.LoadedAt.Local().Format(time.RFC3339), d.Fresh)
	}
	fmt.Fprintf(w, "Refresh every:   %s\n", d.RefreshEvery)
	if st.Responses != nil {
		fmt.Fprintf(w, "Responses:       %d (%d attending, %d declining)\n",
			st.Responses.Total, st.Responses.Attending, st.Responses.Declining)
	}
	if st.RateLimit.Enabled {
		fmt.Fprintf(w, "Search limit:    %d per %s\n", st.RateLimit.MaxSearches, st.RateLimit.Window)
	} else {
		fmt.Fprintln(w, "Search limit:    disabled")
	}
	if st.DatabaseBytes > 0 {
		fmt.Fprintf(w, "Database size:   %s\n", FormatBytes(st.DatabaseBytes))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
