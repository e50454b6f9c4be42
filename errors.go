package shapewire

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes serialization/deserialization failures per the
// engine's error taxonomy. Using an enum (rather than sentinel errors)
// keeps hot-path checks (HasError, Kind) allocation-free.
type ErrorKind uint8

const (
	// ErrKindOK indicates no error occurred.
	ErrKindOK ErrorKind = iota
	// ErrKindInvalidData indicates the payload does not conform to
	// MessagePack or to the expected structure.
	ErrKindInvalidData
	// ErrKindDepthExceeded indicates nesting exceeded the configured max depth.
	ErrKindDepthExceeded
	// ErrKindMissingRequiredProperty indicates a required constructor
	// parameter had no value after object consumption.
	ErrKindMissingRequiredProperty
	// ErrKindDisallowedNullValue indicates nil was read where a
	// non-nullable value was expected and policy disallows it.
	ErrKindDisallowedNullValue
	// ErrKindDoublePropertyAssignment indicates the same constructor
	// parameter was set twice during one deserialization.
	ErrKindDoublePropertyAssignment
	// ErrKindUnknownUnionDiscriminator indicates a union discriminator
	// value was not present in the case table.
	ErrKindUnknownUnionDiscriminator
	// ErrKindUnsupportedOperation indicates a shape kind is not
	// representable (delegates, object-keyed dictionaries, etc).
	ErrKindUnsupportedOperation
	// ErrKindCancelled indicates the call was cancelled via the context
	// signal. Never wrapped with a path breadcrumb.
	ErrKindCancelled
	// ErrKindConfigurationError indicates a build-time configuration
	// problem (duplicate union aliases, mixed key-indexing, ...).
	ErrKindConfigurationError
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindOK:
		return "ok"
	case ErrKindInvalidData:
		return "InvalidData"
	case ErrKindDepthExceeded:
		return "DepthExceeded"
	case ErrKindMissingRequiredProperty:
		return "MissingRequiredProperty"
	case ErrKindDisallowedNullValue:
		return "DisallowedNullValue"
	case ErrKindDoublePropertyAssignment:
		return "DoublePropertyAssignment"
	case ErrKindUnknownUnionDiscriminator:
		return "UnknownUnionDiscriminator"
	case ErrKindUnsupportedOperation:
		return "UnsupportedOperation"
	case ErrKindCancelled:
		return "Cancelled"
	case ErrKindConfigurationError:
		return "ConfigurationError"
	default:
		return "Unknown"
	}
}

// Error is the engine's error value. It stays a plain struct (not a
// pointer) so the common "no error" case costs nothing but a zero value,
// the same trade-off the teacher's Error type makes.
type Error struct {
	kind ErrorKind
	msg  string

	// path is a breadcrumb of property/parameter/union-case/collection-index
	// segments accumulated as the error propagates up through nested
	// converters. Innermost segment first.
	path []string

	// buffer bookkeeping, populated by InvalidDataError variants.
	offset, need, size int
}

// Ok reports whether no error occurred.
func (e Error) Ok() bool { return e.kind == ErrKindOK }

// HasError reports whether an error occurred.
func (e Error) HasError() bool { return e.kind != ErrKindOK }

// Kind returns the error category.
func (e Error) Kind() ErrorKind { return e.kind }

// Error implements the error interface.
func (e Error) Error() string {
	if e.kind == ErrKindOK {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.kind.String())
	b.WriteString(": ")
	b.WriteString(e.msg)
	if len(e.path) > 0 {
		b.WriteString(" (at ")
		for i := len(e.path) - 1; i >= 0; i-- {
			b.WriteString(e.path[i])
			if i > 0 {
				b.WriteByte('.')
			}
		}
		b.WriteByte(')')
	}
	return b.String()
}

// WithPath returns a copy of e with an additional breadcrumb segment.
// Cancellation errors are never wrapped, matching spec §7's propagation
// rule ("Cancellation is never wrapped").
func (e Error) WithPath(segment string) Error {
	if e.kind == ErrKindOK || e.kind == ErrKindCancelled {
		return e
	}
	next := e
	next.path = append(append([]string(nil), e.path...), segment)
	return next
}

func newError(kind ErrorKind, msg string) Error {
	return Error{kind: kind, msg: msg}
}

// InvalidDataError reports a structural mismatch in the msgpack stream,
// e.g. an array header was expected but a map header was seen.
func InvalidDataError(format string, args ...any) Error {
	return newError(ErrKindInvalidData, fmt.Sprintf(format, args...))
}

// BufferOutOfBoundError reports a read/write beyond the buffer's bounds.
func BufferOutOfBoundError(offset, need, size int) Error {
	e := newError(ErrKindInvalidData, fmt.Sprintf("buffer out of bound: offset=%d need=%d size=%d", offset, need, size))
	e.offset, e.need, e.size = offset, need, size
	return e
}

// DepthExceededError reports that nesting exceeded the configured max depth.
func DepthExceededError(depth, max int) Error {
	return newError(ErrKindDepthExceeded, fmt.Sprintf("depth %d exceeds max depth %d", depth, max))
}

// MissingRequiredPropertyError reports required constructor parameters
// that remained unset after the object's map/array was fully consumed.
func MissingRequiredPropertyError(names []string) Error {
	return newError(ErrKindMissingRequiredProperty, fmt.Sprintf("missing required properties: %s", strings.Join(names, ", ")))
}

// DisallowedNullValueError reports a nil read where the policy forbids it.
func DisallowedNullValueError(member string) Error {
	return newError(ErrKindDisallowedNullValue, fmt.Sprintf("null not allowed for non-nullable member %q", member))
}

// DoublePropertyAssignmentError reports the same constructor parameter
// being set twice within one deserialization.
func DoublePropertyAssignmentError(param string) Error {
	return newError(ErrKindDoublePropertyAssignment, fmt.Sprintf("parameter %q assigned twice", param))
}

// UnknownUnionDiscriminatorError reports a discriminator absent from the
// union's case table.
func UnknownUnionDiscriminatorError(discriminator any) Error {
	return newError(ErrKindUnknownUnionDiscriminator, fmt.Sprintf("unknown union discriminator: %v", discriminator))
}

// UnsupportedOperationError reports a shape kind that cannot be represented.
func UnsupportedOperationError(what string) Error {
	return newError(ErrKindUnsupportedOperation, what)
}

// CancelledError reports that a call was cancelled.
func CancelledError() Error {
	return newError(ErrKindCancelled, "operation cancelled")
}

// ConfigurationErrorf reports a build-time converter-construction problem.
func ConfigurationErrorf(format string, args ...any) Error {
	return newError(ErrKindConfigurationError, fmt.Sprintf(format, args...))
}

// IsShortRead reports whether e was raised because the buffer held fewer
// bytes than a read needed (as opposed to a structural mismatch), the
// signal the async driver uses to suspend rather than fail outright.
func (e Error) IsShortRead() bool {
	return e.kind == ErrKindInvalidData && e.need > 0
}

// WrapError lifts a plain error into an Error of the given kind, preserving
// an existing Error unchanged.
func WrapError(err error, kind ErrorKind) Error {
	if err == nil {
		return Error{kind: ErrKindOK}
	}
	if e, ok := err.(Error); ok {
		return e
	}
	return newError(kind, err.Error())
}

// Pointer-receiver helpers used for first-error-wins accumulation across
// a sequence of ByteBuffer reads or writes, mirroring the teacher's SetError/TakeError/
// CheckError trio on *writer.Error.

// SetError records err if no error has been recorded yet.
func (e *Error) SetError(err error) {
	if e == nil || e.kind != ErrKindOK || err == nil {
		return
	}
	*e = WrapError(err, ErrKindInvalidData)
}

// TakeError returns the recorded error (if any) and resets the receiver.
func (e *Error) TakeError() error {
	if e == nil || e.kind == ErrKindOK {
		return nil
	}
	result := *e
	*e = Error{}
	return result
}

// CheckError returns the recorded error (if any) without resetting it.
func (e *Error) CheckError() error {
	if e == nil || e.kind == ErrKindOK {
		return nil
	}
	return *e
}
