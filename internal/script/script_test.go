package script

import (
	"strings"
	"testing"

	"github.com/hyperjump/nikah/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.Language
	}{
		{"latin", "Sarah Abdelrahman", models.LanguageEnglish},
		{"arabic", "سارة عبد الرحمان", models.LanguageArabic},
		{"mixed uses arabic", "Sarah سارة", models.LanguageArabic},
		{"digits only", "12345", models.LanguageEnglish},
		{"empty", "", models.LanguageEnglish},
		{"arabic presentation form", "ﻻ", models.LanguageArabic},
		{"accented latin", "Zoë Müller", models.LanguageEnglish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"  Sarah And\u00a0Hossni's  Family ": "Sarah And Hossni's Family",
		"\u200bSmith\u200d Family\ufeff":      "Smith Family",
		"\u202bعائلة سارة\u202c":              "عائلة سارة",
		"":                                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Clean(in), "Clean(%q)", in)
	}
}

func TestKey_CaseInsensitive(t *testing.T) {
	assert.Equal(t, Key("sarah abdelrahman"), Key("SARAH  Abdelrahman"))
	assert.Equal(t, "strasse", Key("STRASSE"))
	assert.True(t, strings.Contains(Key("Sarah Abdelrahman"), Key("ABDEL")))
}

func TestKey_ArabicFolding(t *testing.T) {
	// taa marbuta and haa spellings of the same name meet on one key
	assert.Equal(t, Key("سارة"), Key("ساره"))
	// hamza-on-alef variants collapse to bare alef
	assert.Equal(t, Key("أحمد"), Key("احمد"))
	assert.Equal(t, Key("إيمان"), Key("ايمان"))
	// diacritics and tatweel are ignored
	assert.Equal(t, Key("مُحَمَّد"), Key("محمد"))
	assert.Equal(t, Key("عـــبد"), Key("عبد"))
	// alef maqsura folds to yaa
	assert.Equal(t, Key("مصطفى"), Key("مصطفي"))
}

func TestKey_ExactInputAlwaysMatchesItself(t *testing.T) {
	for _, name := range []string{"سارة عبد الرحمان", "Hossni", "Zoë", "آمنة"} {
		assert.Contains(t, Key(name), Key(name))
	}
}

func TestInvisible(t *testing.T) {
	assert.True(t, Invisible('\u200b'))
	assert.True(t, Invisible('\ufeff'))
	assert.False(t, Invisible('a'))
	assert.False(t, Invisible('س'))
}
