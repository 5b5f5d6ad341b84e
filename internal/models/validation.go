package models

import (
	"sort"
	"strings"
)

// ErrorKind classifies a single field validation failure.
type ErrorKind string

const (
	ErrRequired      ErrorKind = "required"
	ErrTooLong       ErrorKind = "too_long"
	ErrInvalidChoice ErrorKind = "invalid_choice"
	ErrInvalidImage  ErrorKind = "invalid_image"
	ErrFileTooLarge  ErrorKind = "file_too_large"
	ErrInvalid       ErrorKind = "invalid"
	ErrDuplicate     ErrorKind = "duplicate"
	ErrMismatch      ErrorKind = "mismatch"
)

// ValidationResult maps a form field name to the failures found on it.
type ValidationResult map[string][]ErrorKind

// Add records kind against field.
func (v ValidationResult) Add(field string, kind ErrorKind) {
	v[field] = append(v[field], kind)
}

// OK reports whether no failures were recorded.
func (v ValidationResult) OK() bool {
	return len(v) == 0
}

// Has reports whether field carries kind.
func (v ValidationResult) Has(field string, kind ErrorKind) bool {
	for _, k := range v[field] {
		if k == kind {
			return true
		}
	}
	return false
}

// FormError is returned by services when submitted fields fail validation.
// The HTTP layer renders it as the form page with field errors, not as a failure status.
type FormError struct {
	Fields ValidationResult
}

func (e *FormError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid form fields: " + strings.Join(names, ", ")
}

// NewFormError wraps a non-empty result; it returns nil when the result is OK.
func NewFormError(v ValidationResult) error {
	if v.OK() {
		return nil
	}
	return &FormError{Fields: v}
}
