// Package apperrors defines the error taxonomy shared by the search and RSVP layers.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	// KindSourceUnavailable means the guest list could not be fetched or parsed.
	KindSourceUnavailable Kind = "SOURCE_UNAVAILABLE"

	// KindRateLimited means the client exhausted its search quota.
	KindRateLimited Kind = "RATE_LIMITED"

	// KindValidation means the request referenced unknown rows or omitted required fields.
	KindValidation Kind = "VALIDATION_FAILED"

	// KindStorage means a write to the backing store failed; the caller may retry.
	KindStorage Kind = "STORAGE_FAILED"

	// KindNotFound means the requested record does not exist.
	KindNotFound Kind = "NOT_FOUND"

	// KindInternal is anything else.
	KindInternal Kind = "INTERNAL"
)

// AppError is an error with a Kind the HTTP layer can map to a status code.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements the unwrap interface.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewSourceUnavailable wraps a fetch or decode failure of the guest list.
func NewSourceUnavailable(message string, err error) *AppError {
	return &AppError{Kind: KindSourceUnavailable, Message: message, Err: err}
}

// NewRateLimited reports an exhausted search quota.
func NewRateLimited(message string) *AppError {
	return &AppError{Kind: KindRateLimited, Message: message}
}

// NewValidation reports a rejected request.
func NewValidation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewStorage wraps a failed write.
func NewStorage(message string, err error) *AppError {
	return &AppError{Kind: KindStorage, Message: message, Err: err}
}

// NewNotFound reports a missing record.
func NewNotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// KindOf returns the Kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether a caller may retry the same request unchanged.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindStorage, KindSourceUnavailable:
		return true
	}
	return false
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindSourceUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message of err: the AppError message when present.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
