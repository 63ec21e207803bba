package services

import (
	"errors"
	"fmt"
)

// Domain failures are ordinary values the HTTP layer maps to {success,
// message} responses. Only genuine faults (I/O, serialization) travel as
// untyped errors.
var (
	// ErrInvalidState: the requested transition is not allowed from the
	// booking's current status.
	ErrInvalidState = errors.New("booking is not in a valid state for this operation")

	// ErrResourceBusy: the selected resource account already hosts an
	// approved booking overlapping the requested window.
	ErrResourceBusy = errors.New("resource account is busy in the requested time window")

	// ErrResourceRequired: no resource account was supplied where one is
	// mandatory.
	ErrResourceRequired = errors.New("a resource account is required")

	// ErrNotFound: the referenced booking, account, user or department
	// does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation: malformed date, time, duration or quota input.
	ErrValidation = errors.New("validation failed")
)

// ExternalProviderError wraps a failed call to the meeting provider,
// carrying the provider's own message for operators.
type ExternalProviderError struct {
	Op      string
	Message string
}

func (e *ExternalProviderError) Error() string {
	return fmt.Sprintf("external provider error during %s: %s", e.Op, e.Message)
}

func newProviderError(op string, err error) *ExternalProviderError {
	return &ExternalProviderError{Op: op, Message: err.Error()}
}
