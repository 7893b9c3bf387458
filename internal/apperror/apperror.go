// Package apperror defines the application's error vocabulary.
//
// Services return these errors; the HTTP layer maps them to status codes.
// Every AppError wraps exactly one sentinel so callers can classify it
// with errors.Is without knowing the concrete type.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// FieldError describes a single invalid input field.
// The JSON shape is what the frontend form library expects.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error        // sentinel this error classifies as
	Message string       // human-readable error message
	Field   string       // optional: single field causing the error
	Fields  []FieldError // optional: every offending field for validation failures
}

func (e *AppError) Error() string {
	if len(e.Fields) < 2 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
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

// Validation builds a validation error that reports several fields at once.
// message is the summary shown to the user, e.g. "Invalid blog data".
func Validation(message string, fields ...FieldError) *AppError {
	e := &AppError{
		Err:     ErrValidation,
		Message: message,
		Fields:  fields,
	}
	if len(fields) == 1 {
		e.Field = fields[0].Field
	}
	return e
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
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

// Unauthorized is returned when an operation needs a caller identity and
// none was supplied. HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// FieldErrors extracts the per-field details from a validation error chain.
// It returns nil when err carries none.
func FieldErrors(err error) []FieldError {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return nil
	}
	if len(appErr.Fields) == 0 && appErr.Field != "" {
		return []FieldError{{Field: appErr.Field, Message: appErr.Message}}
	}
	return appErr.Fields
}
