package domain

import (
	"errors"
	"fmt"
)

// Repository level sentinels. Services translate them into the typed errors below.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	ErrReference = errors.New("referenced record does not exist")
)

// Access boundary errors.
var (
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
)

// FieldErrors maps a request field to its problems. Values are either []string or,
// for list fields validated element by element, []FieldErrors aligned with the input.
type FieldErrors map[string]any

// Add appends msg to the messages of field.
func (f FieldErrors) Add(field, msg string) {
	if existing, ok := f[field].([]string); ok {
		f[field] = append(existing, msg)
		return
	}
	f[field] = []string{msg}
}

// ValidationError is malformed or missing input. Either Fields or Message is set.
type ValidationError struct {
	Fields  FieldErrors
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %v", map[string]any(e.Fields))
}

// ConflictError is a request that clashes with existing state: a taken username or
// a second vote.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotFoundError is a missing entity. Message overrides the default
// "No <Entity> matches the given query." text.
type NotFoundError struct {
	Entity  string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("No %s matches the given query.", e.Entity)
}

// MalformedInputError is an unparsable path or query segment.
type MalformedInputError struct {
	Message string
}

func (e *MalformedInputError) Error() string { return e.Message }

// ErrEmployeeNotFound is returned when the caller has no employee identity.
var ErrEmployeeNotFound = &NotFoundError{Entity: "Employee", Message: "Employee not found"}

func NotFound(entity string) *NotFoundError { return &NotFoundError{Entity: entity} }
