package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned when no authenticated user is present
	// at submission time; nothing is persisted
	ErrAuthentication = errors.New("authentication required")
	// ErrAllocation is returned when the sequence allocator is
	// unavailable; nothing is persisted and the whole submission is safe
	// to retry
	ErrAllocation = errors.New("failed to allocate inspection number")
	// ErrPersistence is returned when the inspection row insert fails
	// after a number was allocated; the number is burned, a retry gets a
	// fresh one
	ErrPersistence = errors.New("failed to save inspection")
)

// ValidationError reports a malformed or missing field. It is raised
// before any storage call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
