package rsvp

import (
	"github.com/hyperjump/nikah/internal/config"
	"github.com/hyperjump/nikah/internal/models"
)

// Messages holds the thank-you texts per language and attendance decision.
type Messages struct {
	AttendingEN string
	DecliningEN string
	AttendingAR string
	DecliningAR string
}

// DefaultMessages are used for any text not overridden in config.
var DefaultMessages = Messages{
	AttendingEN: "Thank you for confirming! We can't wait to celebrate with you.",
	DecliningEN: "Thank you for letting us know. You will be missed.",
	AttendingAR: "شكراً لتأكيد حضوركم! نتطلع للاحتفال معكم.",
	DecliningAR: "شكراً لإعلامنا. سنفتقدكم.",
}

// MessagesFromConfig overlays non-empty overrides from cfg on DefaultMessages.
func MessagesFromConfig(cfg *config.MessagesConfig) Messages {
	m := DefaultMessages
	if cfg == nil {
		return m
	}
	if cfg.AttendingEN != "" {
		m.AttendingEN = cfg.AttendingEN
	}
	if cfg.DecliningEN != "" {
		m.DecliningEN = cfg.DecliningEN
	}
	if cfg.AttendingAR != "" {
		m.AttendingAR = cfg.AttendingAR
	}
	if cfg.DecliningAR != "" {
		m.DecliningAR = cfg.DecliningAR
	}
	return m
}

// ThankYou returns the text for lang and attending. Unknown languages get English.
func (m Messages) ThankYou(lang models.Language, attending bool) string {
	if lang == models.LanguageArabic {
		if attending {
			return m.AttendingAR
		}
		return m.DecliningAR
	}
	if attending {
		return m.AttendingEN
	}
	return m.DecliningEN
}
