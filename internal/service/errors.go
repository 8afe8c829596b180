// Package service holds the business rules of the movie catalog and the
// movie night scheduler.  Services depend on small store interfaces so they
// can run against MySQL in production and in-memory fakes in tests.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the addressed movie or screening does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the actor may not modify the addressed record.
	ErrForbidden = errors.New("forbidden")
	// ErrUnknownActor means the authenticated user no longer exists.
	ErrUnknownActor = errors.New("unknown user")
	// ErrUpstream wraps failures of the external metadata service.
	ErrUpstream = errors.New("metadata service unavailable")
)

// ValidationError describes bad input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
