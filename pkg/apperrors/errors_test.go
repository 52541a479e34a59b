package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf_WrappedChain(t *testing.T) {
	base := NewSourceUnavailable("fetch guest list", errors.New("dial tcp: timeout"))
	wrapped := fmt.Errorf("search: %w", base)

	if got := KindOf(wrapped); got != KindSourceUnavailable {
		t.Errorf("KindOf = %s, want %s", got, KindSourceUnavailable)
	}
	if !Is(wrapped, KindSourceUnavailable) {
		t.Error("Is should see through fmt wrapping")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("plain errors classify as internal")
	}
	if Is(nil, KindInternal) {
		t.Error("nil error has no kind")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewStorage("write", errors.New("disk full")), true},
		{NewSourceUnavailable("fetch", nil), true},
		{NewValidation("unknown row 7"), false},
		{NewRateLimited("quota"), false},
		{errors.New("x"), false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.err); got != tt.want {
			t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindSourceUnavailable: http.StatusServiceUnavailable,
		KindRateLimited:       http.StatusTooManyRequests,
		KindValidation:        http.StatusBadRequest,
		KindStorage:           http.StatusInternalServerError,
		KindNotFound:          http.StatusNotFound,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestAppError_ErrorAndMessage(t *testing.T) {
	err := NewStorage("save responses", errors.New("locked"))
	if err.Error() != "STORAGE_FAILED: save responses: locked" {
		t.Errorf("Error() = %q", err.Error())
	}
	if Message(fmt.Errorf("outer: %w", err)) != "save responses" {
		t.Errorf("Message() = %q", Message(err))
	}
	if Message(errors.New("raw")) != "raw" {
		t.Error("Message falls back to Error() for plain errors")
	}
}
