package orm

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Kind classifies engine errors so callers can react to specific conditions
// without string matching.
type Kind uint8

const (
	KindConnection Kind = iota + 1 // The store channel is unavailable or timed out.
	KindSchema                     // Invalid or conflicting collection definition.
	KindConstraint                 // Primary-key or unique-attribute collision.
	KindNotFound                   // Collection, record or ephemeral key absent where presence was required.
	KindValidation                 // Malformed criteria or data shape.
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "ConnectionError"
	case KindSchema:
		return "SchemaError"
	case KindConstraint:
		return "ConstraintError"
	case KindNotFound:
		return "NotFoundError"
	case KindValidation:
		return "ValidationError"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// --------------------------------------------------------------------------
// Error Type
// --------------------------------------------------------------------------

// Error is the error type returned by all engine operations.
//
// CompensationFailed is set when an operation failed AND the cleanup of
// already-applied sub-steps (e.g. claimed index entries) failed too, meaning
// the store may contain dangling index entries. Operators should watch for
// this flag to detect index drift.
type Error struct {
	Kind               Kind
	Msg                string
	CompensationFailed bool
	cause              error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.CompensationFailed {
		msg += " (compensation failed, index entries may be dangling)"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// newError creates a new engine error with the given kind and message.
func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// wrapConnErr wraps a store channel error unchanged as a ConnectionError.
// Channel errors are never retried by the engine.
func wrapConnErr(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConnection, Msg: fmt.Sprintf(format, args...), cause: err}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func isKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsConnection(err error) bool { return isKind(err, KindConnection) }
func IsSchema(err error) bool     { return isKind(err, KindSchema) }
func IsConstraint(err error) bool { return isKind(err, KindConstraint) }
func IsNotFound(err error) bool   { return isKind(err, KindNotFound) }
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// HasCompensationFailed reports whether err carries the compensation-failed flag.
func HasCompensationFailed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.CompensationFailed
}
