package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"NotFound wraps ErrNotFound", NotFound("item", "abc123"), ErrNotFound, true},
		{"ValidationFailed wraps ErrValidation", ValidationFailed("name", "name is required"), ErrValidation, true},
		{"Invalid wraps ErrValidation", Invalid(map[string]string{"name": "required"}), ErrValidation, true},
		{"Conflict wraps ErrConflict", Conflict("user", "a@b.c"), ErrConflict, true},
		{"Unauthorized wraps ErrUnauthorized", Unauthorized("invalid credentials"), ErrUnauthorized, true},
		{"Forbidden wraps ErrForbidden", Forbidden("nope"), ErrForbidden, true},
		{"NotFound does NOT match ErrValidation", NotFound("item", "abc123"), ErrValidation, false},
		{"wrapped with %w still matches", fmt.Errorf("store: %w", NotFound("address", "x")), ErrNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{"NotFound", NotFound("item", "abc123"), "item not found with id abc123"},
		{"ValidationFailed", ValidationFailed("name", "name is required"), "name is required"},
		{"Conflict", Conflict("user", "a@b.c"), "user conflict with id a@b.c"},
		{
			"Invalid lists fields in order",
			Invalid(map[string]string{"purchaseDate": "must be YYYY-MM-DD", "name": "is required"}),
			"invalid input: name: is required; purchaseDate: must be YYYY-MM-DD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("item", "abc123")
	if err.Unwrap() != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), ErrNotFound)
	}
}

func TestValidationFields(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if err.Fields["email"] != "invalid email format" {
		t.Errorf("Fields[email] = %q", err.Fields["email"])
	}

	multi := Invalid(map[string]string{"a": "x", "b": "y"})
	if multi.Field != "" {
		t.Errorf("Field = %q, want empty for multi-field errors", multi.Field)
	}
	if len(multi.Fields) != 2 {
		t.Errorf("len(Fields) = %d, want 2", len(multi.Fields))
	}
}
