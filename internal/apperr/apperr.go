// Package apperr defines the tagged error kinds used across service layers.
//
// Components return an [*Error] carrying a [Kind] so that the HTTP boundary
// can translate failures into status codes without string matching. Errors
// wrap an optional cause and participate in errors.Is/As chains.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary translation.
type Kind int

const (
	// KindInternal is an unexpected failure. Maps to 500.
	KindInternal Kind = iota

	// KindValidation covers malformed input: bad IDs, bad filenames,
	// illegal workflow transitions. Maps to 400.
	KindValidation

	// KindNotFound covers unknown jobs, export jobs, and missing artifacts.
	// Maps to 404.
	KindNotFound

	// KindConflict covers requests that contradict current state. Maps to 409.
	KindConflict

	// KindTooLarge covers uploads exceeding the configured size cap. Maps to 413.
	KindTooLarge

	// KindExternal covers failures of external collaborators: transcoder,
	// ASR, diarization, LLM. Maps to 503.
	KindExternal
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooLarge:
		return "too_large"
	case KindExternal:
		return "external"
	default:
		return "internal"
	}
}

// Error is a kinded error with an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// New creates an [*Error] with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an [*Error] with the given kind, message, and cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Validation creates a validation error.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// NotFound creates a not-found error.
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// External creates an external-dependency error wrapping err.
func External(err error, format string, args ...any) *Error {
	return Wrap(KindExternal, err, format, args...)
}

// KindOf extracts the [Kind] from an error chain. Errors without an [*Error]
// in the chain are classified as [KindInternal].
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
