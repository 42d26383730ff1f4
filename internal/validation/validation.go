// Package validation turns go-playground/validator results into the field-keyed
// messages returned to API clients.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/elebur/VoteAPI/internal/domain"
)

// Messages shared with the handlers for errors found outside the validator.
const (
	MsgRequired      = "This field is required."
	MsgBlank         = "This field may not be blank."
	MsgInvalidEmail  = "Enter a valid email address."
	MsgInvalidBool   = "Must be a valid boolean."
	MsgInvalidString = "Not a valid string."
	MsgInvalidDate   = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	MsgInvalid       = "Invalid value."
)

// Validate is shared; validator caches struct metadata per type.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Trim returns s without surrounding whitespace. nil stays nil so a missing field
// is still reported as required.
func Trim(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// Struct validates s and returns its problems keyed by JSON field name, or nil.
func Struct(s any) domain.FieldErrors {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.FieldErrors{"non_field_errors": []string{err.Error()}}
	}

	fields := domain.FieldErrors{}
	for _, fe := range verrs {
		fields.Add(fe.Field(), message(fe))
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "notblank":
		return MsgBlank
	case "min":
		if fe.Param() == "1" {
			return MsgBlank
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "email":
		return MsgInvalidEmail
	}
	return MsgInvalid
}
