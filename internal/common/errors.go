// Package common defines shared sentinel errors and error types used across
// the storage, service and sync layers. Callers should use errors.Is to match
// sentinel values and errors.As for ValidationError.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Mutation precondition errors, surfaced synchronously to callers.
	ErrNoHousehold = errors.New("no household selected")

	// Remote store errors. Both are absorbed by the sync retry loop and are
	// never surfaced to end users; the distinction only matters for logs.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrRemoteRejected    = errors.New("remote store rejected operation")
)

// ValidationError reports a mutation rejected before any write, naming the
// offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
