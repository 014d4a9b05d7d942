// Package validate holds the form checks that run before any request is
// sent to the backend.
package validate

import (
	"errors"
	"fmt"
	"strings"
)

// Error reports a missing or malformed form field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// Required fails when value is blank after trimming.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &Error{Field: field, Message: fmt.Sprintf("%s is required", field)}
	}
	return nil
}

// Email performs the same shallow check a browser email input does.
func Email(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}
	at := strings.Index(value, "@")
	if at <= 0 || at == len(value)-1 || strings.ContainsAny(value, " \t") {
		return &Error{Field: field, Message: fmt.Sprintf("%s must be a valid email address", field)}
	}
	return nil
}

// First returns the first non-nil error.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
