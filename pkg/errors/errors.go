package errors

import (
	"errors"
	"fmt"
)

// Generic error types

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrUnavailable indicates a backing service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Evaluation errors

var (
	// ErrValueOutOfRange indicates a raw value violates its kind's domain
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrUnresolvedDependency indicates a derivation rule read a key that is not resolved yet
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrIncompleteElicitation indicates required user input is missing
	ErrIncompleteElicitation = errors.New("incomplete elicitation")

	// ErrInfeasibleOption indicates an option combination that cannot be scored
	ErrInfeasibleOption = errors.New("infeasible option")
)

// Model construction errors

var (
	// ErrInvalidModel indicates a malformed factor registry or decision plan
	ErrInvalidModel = errors.New("invalid decision model")

	// ErrUnknownFactor indicates a factor key that is not registered
	ErrUnknownFactor = errors.New("unknown factor")

	// ErrUnknownAgent indicates an agent without value items
	ErrUnknownAgent = errors.New("unknown agent")
)

// OutOfRangeError carries the offending factor and its declared bounds
type OutOfRangeError struct {
	Factor string
	Value  interface{}
	Min    float64
	Max    float64
}

func (e *OutOfRangeError) Error() string {
	if e.Min == 0 && e.Max == 0 {
		return fmt.Sprintf("%v: factor %q: unexpected value %v", ErrValueOutOfRange, e.Factor, e.Value)
	}
	return fmt.Sprintf("%v: factor %q: %v not in [%g, %g]", ErrValueOutOfRange, e.Factor, e.Value, e.Min, e.Max)
}

func (e *OutOfRangeError) Unwrap() error { return ErrValueOutOfRange }

// UnresolvedError reports which factor needed which missing key
type UnresolvedError struct {
	Factor  string
	Missing string
}

func (e *UnresolvedError) Error() string {
	if e.Factor == "" {
		return fmt.Sprintf("%v: %q", ErrUnresolvedDependency, e.Missing)
	}
	return fmt.Sprintf("%v: %q reads %q", ErrUnresolvedDependency, e.Factor, e.Missing)
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolvedDependency }

// IncompleteError names the first missing input found.
// Agent and Item are empty when the missing input is a factor value rather than a weight.
type IncompleteError struct {
	Factor string
	Agent  string
	Item   string
}

func (e *IncompleteError) Error() string {
	if e.Agent == "" {
		return fmt.Sprintf("%v: factor %q has no value", ErrIncompleteElicitation, e.Factor)
	}
	return fmt.Sprintf("%v: %s has not weighted %q (factor %q)", ErrIncompleteElicitation, e.Agent, e.Item, e.Factor)
}

func (e *IncompleteError) Unwrap() error { return ErrIncompleteElicitation }

// InfeasibleError reports an option set that reached a place it should have been filtered from
type InfeasibleError struct {
	Factor string
	Reason string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInfeasibleOption, e.Factor, e.Reason)
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasibleOption }

// IsDefect reports whether err is a programming defect rather than missing user input.
func IsDefect(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrUnresolvedDependency) ||
		errors.Is(err, ErrInfeasibleOption) ||
		errors.Is(err, ErrInvalidModel)
}

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap ties validation failures to ErrInvalidModel
func (e *ValidationError) Unwrap() error {
	return ErrInvalidModel
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Unwrap exposes every collected error to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
