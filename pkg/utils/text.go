// Package utils provides shared utilities for text and logging.
package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns s truncated to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

// CollapseSpaces trims s and replaces every run of whitespace with a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Ternary returns a when cond is true, otherwise b.
func Ternary(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
