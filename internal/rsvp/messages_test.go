package rsvp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/internal/models"
)

func TestMessages_ThankYou(t *testing.T) {
	m := DefaultMessages
	assert.Equal(t, m.AttendingEN, m.ThankYou(models.LanguageEnglish, true))
	assert.Equal(t, m.DecliningEN, m.ThankYou(models.LanguageEnglish, false))
	assert.Equal(t, m.AttendingAR, m.ThankYou(models.LanguageArabic, true))
	assert.Equal(t, m.DecliningAR, m.ThankYou(models.LanguageArabic, false))
	assert.Equal(t, m.AttendingEN, m.ThankYou("fr", true))
}

func TestMessagesFromConfig(t *testing.T) {
	assert.Equal(t, DefaultMessages, MessagesFromConfig(nil))
	m := MessagesFromConfig(&config.MessagesConfig{DecliningEN: "Sorry to miss you"})
	assert.Equal(t, "Sorry to miss you", m.DecliningEN)
	assert.Equal(t, DefaultMessages.AttendingEN, m.AttendingEN)
}
