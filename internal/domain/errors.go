package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a caller-controlled parameter that violates a
	// physical invariant (negative emission, zero wind, unknown class).
	ErrInvalidInput = errors.New("invalid input")

	// ErrOutOfBounds marks a geographic value outside the valid lat/lon or
	// bearing range, including transform results that leave the globe.
	ErrOutOfBounds = errors.New("out of bounds")
)

// ValidationError describes which field failed and why. It matches its Kind
// under errors.Is, so callers can branch on ErrInvalidInput / ErrOutOfBounds.
type ValidationError struct {
	Kind   error
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s=%g: %s", e.Kind, e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// InvalidInput builds a ValidationError of kind ErrInvalidInput.
func InvalidInput(field string, value float64, reason string) error {
	return &ValidationError{Kind: ErrInvalidInput, Field: field, Value: value, Reason: reason}
}

// OutOfBounds builds a ValidationError of kind ErrOutOfBounds.
func OutOfBounds(field string, value float64, reason string) error {
	return &ValidationError{Kind: ErrOutOfBounds, Field: field, Value: value, Reason: reason}
}
