// Package guestlist turns the raw guest spreadsheet into an immutable, indexed Directory.
package guestlist

import (
	"strings"
)

// MinFields is the number of fields every parsed line is padded to.
const MinFields = 2

// ParseLine splits one CSV line into fields.
// Double quotes group commas into a field and a doubled quote inside a quoted field is a literal quote.
// The result always has at least MinFields entries. Fields are not trimmed.
func ParseLine(line string) []string {
	fields, _ := parseLine(line)
	return fields
}

// parseLine is ParseLine that also reports whether the line ended inside an open quote.
func parseLine(line string) ([]string, bool) {
	var (
		fields  []string
		field   strings.Builder
		inQuote bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' && inQuote && i+1 < len(runes) && runes[i+1] == '"':
			field.WriteRune('"')
			i++
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	fields = append(fields, field.String())
	for len(fields) < MinFields {
		fields = append(fields, "")
	}
	return fields, inQuote
}

// SplitLines normalizes CRLF and CR line endings and returns the non-blank lines of content.
func SplitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
