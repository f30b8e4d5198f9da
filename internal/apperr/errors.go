package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation marks a rejected draft. Nothing was written.
	ErrValidation = errors.New("validation failed")
	// ErrParse marks a malformed persisted payload
	ErrParse = errors.New("malformed payload")
	// ErrPersistence marks a failed backing-store write. The in-memory change was kept.
	ErrPersistence = errors.New("persistence failed")
	// ErrNotFound marks a missing product or batch id
	ErrNotFound = errors.New("not found")
	// ErrKeyNotFound is returned by key/value backends for an absent key
	ErrKeyNotFound = errors.New("key not found")
)

// FieldError describes one invalid draft field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a draft
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

// FromValidator converts validator output. Other errors are returned unchanged.
func FromValidator(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(ves))}
	for _, fe := range ves {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date in %s format", fe.Param())
	default:
		return "is invalid"
	}
}

// ParseError reports a persisted payload that could not be decoded
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at key %q: %v", ErrParse, e.Key, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// PersistenceError reports a backing-store write failure
type PersistenceError struct {
	Keys []string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s for keys %s: %v", ErrPersistence, strings.Join(e.Keys, ","), e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
