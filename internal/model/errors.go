package model

import (
	"errors"
	"fmt"
)

var (
	ErrRequired          = errors.New("value is required")
	ErrInvalidMonthDay   = errors.New("invalid month-day, want MM-DD")
	ErrInvalidDateFormat = errors.New("invalid date format, want YYYY-MM-DD or MM-DD")
	ErrUnsupportedValue  = errors.New("unsupported value")
	ErrInvalidLeadTime   = errors.New("reminder lead time must be a whole number of days")
)

// ValidationError reports input that was rejected. It is always recoverable
// by the caller and maps to a 4xx response.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a *ValidationError.
func Invalid(field, value string, err error) error {
	return &ValidationError{Field: field, Value: value, Err: err}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
