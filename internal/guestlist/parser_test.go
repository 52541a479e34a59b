package guestlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "Sarah,Smith Family,سارة,7", []string{"Sarah", "Smith Family", "سارة", "7"}},
		{"quoted comma", `"Smith, John",Smith Family`, []string{"Smith, John", "Smith Family"}},
		{"escaped quote", `"Smith, ""Jr""",x`, []string{`Smith, "Jr"`, "x"}},
		{"single field padded", "Alone", []string{"Alone", ""}},
		{"empty line padded", "", []string{"", ""}},
		{"trailing comma", "a,b,", []string{"a", "b", ""}},
		{"untrimmed", " a , b ", []string{" a ", " b "}},
		{"arabic quoted", `"علي، محمد",عائلة`, []string{"علي، محمد", "عائلة"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLine(tt.line))
		})
	}
}

func TestParseLine_unterminatedQuote(t *testing.T) {
	fields, open := parseLine(`"Smith, John,Family`)
	assert.True(t, open)
	assert.Equal(t, []string{"Smith, John,Family", ""}, fields)

	_, open = parseLine(`"closed",x`)
	assert.False(t, open)
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("header\r\nrow1\r\n\r\n   \rrow2\nrow3\n")
	assert.Equal(t, []string{"header", "row1", "row2", "row3"}, got)
	assert.Empty(t, SplitLines("\n\r\n  \n"))
}
