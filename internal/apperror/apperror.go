// Package apperror defines the error taxonomy shared by every layer.
//
// Lower layers return one of the constructors below (or wrap one with %w).
// Only the HTTP layer turns them into status codes; the CLI prints Message.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error             // sentinel, matched with errors.Is
	Message string            // human-readable error message
	Field   string            // optional: single field causing the error
	Fields  map[string]string // optional: per-field validation messages
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
		Fields:  map[string]string{field: message},
	}
}

// Invalid reports several field errors at once. The message lists them in
// field order so it stays stable across runs.
func Invalid(fields map[string]string) *AppError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}

	e := &AppError{
		Err:     ErrValidation,
		Message: "invalid input: " + strings.Join(parts, "; "),
		Fields:  fields,
	}
	if len(keys) == 1 {
		e.Field = keys[0]
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

// Unauthorized is returned for missing sessions and bad credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
