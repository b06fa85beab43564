// Package validation checks request input before it reaches the service layer.
package validation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common validation errors.
var (
	ErrInvalidUUID = fmt.Errorf("invalid UUID format")
	ErrInvalidDate = fmt.Errorf("invalid date, expected YYYY-MM-DD")
	ErrRequired    = fmt.Errorf("required field missing")
)

// ValidateUUID checks that a string is a well-formed UUID.
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDate, value)
	}
	return parsed.UTC(), nil
}

// ParseOptionalDate parses a date when present, returning the zero time for
// an empty string.
func ParseOptionalDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return ParseDate(value)
}

// Require fails when a mandatory string field is empty.
func Require(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", ErrRequired, field)
	}
	return nil
}
