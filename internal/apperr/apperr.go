// Package apperr defines the error taxonomy shared by the report engine, the
// store adapters and the HTTP layer.
//
// Every error that reaches a caller carries a stable, machine-checkable Kind
// plus a human-readable message. Handlers translate the Kind into an HTTP
// status; nothing inside the engine retries on any Kind.
//
// Go Learning Note — Typed Errors and errors.As:
// A sentinel (errors.New at package level) is enough when callers only need
// to compare identity. When callers need data from the error (here: the Kind),
// define a struct type that implements the error interface and let callers
// extract it with errors.As. Implementing Unwrap() keeps the original cause
// visible to errors.Is/errors.As further down the chain.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	InvalidCoordinate Kind = "invalid_coordinate"
	MissingField      Kind = "missing_field"
	InvalidEnum       Kind = "invalid_enum"
	RateLimited       Kind = "rate_limited"
	StoreUnavailable  Kind = "store_unavailable"
	Unauthenticated   Kind = "unauthenticated"
	NotFound          Kind = "not_found"
	// InvalidRequest covers bodies that are not well-formed JSON of the
	// expected shape, and arguments outside their documented range.
	InvalidRequest    Kind = "invalid_request"

	// Unknown is returned by KindOf for errors outside the taxonomy.
	Unknown Kind = "unknown"
)

// Error is the concrete error type carried across package boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to an underlying cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the Kind of err, or Unknown if err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Unknown
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the human message without the wrapped cause, which may
// contain driver details that should not leak to clients.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
