package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is returned when the backend rejects the session token (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInsufficientFunds signals that the client's checking balance is below the
	// down payment required to approve a mortgage.
	ErrInsufficientFunds = errors.New("insufficient funds for mortgage down payment")
	// ErrNotFound is returned when a referenced record is missing from a listing.
	ErrNotFound = errors.New("not found")
)

// ValidationError is a client-local rejection raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
