package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/stash/internal/apperror"
)

// validate is shared by every service. validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so errors line up with request bodies.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors turns a validator error into field → message pairs and adds
// them to dst. Non-validation errors are returned unchanged.
func fieldErrors(err error, dst map[string]string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		dst[fieldPath(fe)] = describe(fe)
	}
	return nil
}

// fieldPath drops the struct name prefix: "ItemInput.name" → "name",
// "AddressInput.sharedWith[1]" → "sharedWith[1]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// check runs struct validation and returns an apperror.Invalid when there
// are any field errors, including the extra ones passed in.
func check(v any, extra map[string]string) error {
	fields := make(map[string]string, len(extra))
	for k, msg := range extra {
		fields[k] = msg
	}
	if v != nil {
		if err := validate.Struct(v); err != nil {
			if err := fieldErrors(err, fields); err != nil {
				return fmt.Errorf("validating input: %w", err)
			}
		}
	}
	if len(fields) > 0 {
		return apperror.Invalid(fields)
	}
	return nil
}

// validEmail reports whether s is an address validator accepts.
func validEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}
