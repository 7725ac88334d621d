// Package apperror defines the application's error taxonomy.
//
// Services return these errors; the HTTP layer maps them to status codes
// with errors.Is/errors.As. Sentinel errors mark the category, AppError
// carries the human-readable message (and optionally the offending field).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	// ErrStore marks persistence-layer failures. The wrapped cause keeps the
	// driver error for logging; callers only ever see a generic message.
	ErrStore = errors.New("store error")
)

type AppError struct {
	Err     error  // sentinel category (and, via %w chains, the cause)
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation, e.g. registering a username that
// is already taken.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

// Unauthorized covers both missing/invalid tokens and failed logins.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Store wraps a persistence failure. cause is preserved in the chain
// (reachable via errors.Unwrap for logs) while Message stays generic.
func Store(message string, cause error) *AppError {
	err := ErrStore
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrStore, cause)
	}
	return &AppError{
		Err:     err,
		Message: message,
	}
}
