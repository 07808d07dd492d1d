// Package apperr holds the error types shared across the service layers.
//
// Sentinel errors that belong to a single domain (authentication, metadata
// lookups) stay in their own packages. The types here cross layers: a
// ValidationError is raised by the engine and rendered by the handlers, an
// InfrastructureError is raised by any store adapter and must never reach the
// client with its detail intact.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// ValidationError reports malformed input. Message is safe to show to the caller.
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

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InfrastructureError wraps a failure of an external store (unreachable,
// timed out, corrupted payload).
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// Infra wraps err as an InfrastructureError for op. A nil err stays nil and an
// error that already is an InfrastructureError is returned unchanged.
func Infra(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *InfrastructureError
	if errors.As(err, &ie) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInfrastructure reports whether err carries an InfrastructureError or is a
// context deadline/cancellation, which callers treat the same way.
func IsInfrastructure(err error) bool {
	var ie *InfrastructureError
	if errors.As(err, &ie) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
