package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the two construction-time failure families.
// Evaluation-time numerical degeneracies are never errors: NaN and Inf
// propagate through the cost value so the caller can react.
var (
	// ErrShape indicates inconsistent array shapes between data, mask,
	// edges, or model output.
	ErrShape = errors.New("shape mismatch")

	// ErrConfiguration indicates an unrecognized option, a malformed
	// component specification, or a wrong number of explicit names.
	ErrConfiguration = errors.New("invalid configuration")
)

// ShapeError reports a shape mismatch with both the expected and the
// actual shape, so the message alone is enough to diagnose the failure.
type ShapeError struct {
	// Subject names the array that had the wrong shape, e.g. "mask"
	// or "model output".
	Subject string

	// Expected and Actual are the dimension lists of the two shapes.
	Expected []int
	Actual   []int
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: %s: expected %s, got %s",
		e.Subject, FormatShape(e.Expected), FormatShape(e.Actual))
}

// Unwrap makes the error match ErrShape under errors.Is.
func (e *ShapeError) Unwrap() error { return ErrShape }

// NewShapeError creates a ShapeError for the named subject.
func NewShapeError(subject string, expected, actual []int) *ShapeError {
	return &ShapeError{Subject: subject, Expected: expected, Actual: actual}
}

// FormatShape renders a dimension list as "(3,)" or "(2, 5)".
// The trailing comma in the one-dimensional form keeps messages
// unambiguous about rank.
func FormatShape(shape []int) string {
	if len(shape) == 1 {
		return fmt.Sprintf("(%d,)", shape[0])
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ConfigError reports a construction-time misconfiguration of a cost
// component.
type ConfigError struct {
	// Field is the option that was misconfigured, e.g. "loss" or
	// "method".
	Field string

	// Reason describes what was wrong with the supplied value.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Unwrap makes the error match ErrConfiguration under errors.Is.
func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// NewConfigError creates a ConfigError for the named field.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
