// Package service holds the business logic behind the HTTP handlers.
package service

import (
	"errors"
	"strings"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid campaign status transition")
	ErrCampaignLocked     = errors.New("campaign no longer accepts targets")
)

// ValidationError carries every problem found with a request so the caller
// can report them together.
type ValidationError struct {
	Errors []string
}

// NewValidationError builds a ValidationError from messages.
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// AsValidationError unwraps err into a *ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
