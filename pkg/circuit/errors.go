package circuit

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every rejected operation leaves the circuit untouched.
var (
	ErrComponentNotFound    = errors.New("component not found")
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrUnknownComponentType = errors.New("unknown component type")
	ErrWrongComponentType   = errors.New("wrong component type")
	ErrInvalidName          = errors.New("name must not be empty")
	ErrSelfConnection       = errors.New("cannot connect a component to itself")
	ErrPortMismatch         = errors.New("connection needs exactly one output and one input")
	ErrPortUnavailable      = errors.New("component does not expose this port")
	ErrDuplicateConnection  = errors.New("connection already exists")
	ErrInvalidPatch         = errors.New("invalid property patch")
	ErrNoPendingGesture     = errors.New("no connection gesture in progress")
	ErrGestureInProgress    = errors.New("connection gesture already in progress")
	ErrGestureCancelled     = errors.New("connection gesture cancelled")
	ErrNoSwitchInputs       = errors.New("light has no switch wired into it")
)

// CircuitError provides structured context for a rejected operation.
type CircuitError struct {
	Op     string // Operation that failed (e.g., "connect", "toggle_switch")
	Entity string // "component", "connection" or "gesture"
	ID     string // Entity ID (if applicable)
	Field  string // Property name for patch errors
	Cause  error
}

// Error implements the error interface.
func (e *CircuitError) Error() string {
	switch {
	case e.ID != "" && e.Field != "":
		return fmt.Sprintf("%s %s %s (field %s): %v", e.Op, e.Entity, e.ID, e.Field, e.Cause)
	case e.ID != "":
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("%s %s (field %s): %v", e.Op, e.Entity, e.Field, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CircuitError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building CircuitErrors.
type ErrorBuilder struct {
	err CircuitError
}

// NewError creates a new error builder for op.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: CircuitError{Op: op}}
}

// Component sets the entity to "component" with the given ID.
func (b *ErrorBuilder) Component(id string) *ErrorBuilder {
	b.err.Entity = "component"
	b.err.ID = id
	return b
}

// Connection sets the entity to "connection" with the given ID.
func (b *ErrorBuilder) Connection(id string) *ErrorBuilder {
	b.err.Entity = "connection"
	b.err.ID = id
	return b
}

// Gesture sets the entity to "gesture".
func (b *ErrorBuilder) Gesture() *ErrorBuilder {
	b.err.Entity = "gesture"
	return b
}

// Field sets the property name for patch errors.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

func componentNotFound(op, id string) error {
	return NewError(op).Component(id).Cause(ErrComponentNotFound).Err()
}

func wrongType(op, id string, want ComponentType) error {
	return NewError(op).Component(id).Cause(fmt.Errorf("%w: want %s", ErrWrongComponentType, want)).Err()
}

// IsNotFound returns true if err reports a missing component or connection.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrComponentNotFound) || errors.Is(err, ErrConnectionNotFound)
}

// IsConflict returns true if err reports an edge that already exists.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateConnection) || errors.Is(err, ErrGestureInProgress)
}
