package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("سارة عبد الرحمان", 4); got != "سارة..." {
		t.Errorf("Truncate should count runes, got %q", got)
	}
}

func TestCollapseSpaces(t *testing.T) {
	tests := map[string]string{
		"  Sarah   And  Hossni's Family ": "Sarah And Hossni's Family",
		"\tone\ntwo":                      "one two",
		"":                                "",
		"   ":                             "",
	}
	for in, want := range tests {
		if got := CollapseSpaces(in); got != want {
			t.Errorf("CollapseSpaces(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "yes", "no") != "yes" || Ternary(false, "yes", "no") != "no" {
		t.Error("Ternary picked the wrong branch")
	}
}
