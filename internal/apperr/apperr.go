// Package apperr defines the failure kinds business operations report to the
// transport boundary.
package apperr

import (
	"github.com/go-faster/errors"
)

// Kind classifies a failure for translation into a transport status.
type Kind int

const (
	// Internal covers store faults and invariant-violating states.
	Internal Kind = iota
	// NotFound means the addressed cart, account or order does not exist.
	NotFound
	// InvalidRequest means a business precondition was violated.
	InvalidRequest
	// Conflict means the request collides with existing state.
	Conflict
	// Unauthorized means the caller could not be authenticated.
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidRequest:
		return "invalid_request"
	case Conflict:
		return "conflict"
	case Unauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a typed business failure carrying a kind and a caller-facing
// message. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// NotFoundf returns a NotFound error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Message: errors.Errorf(format, args...).Error()}
}

// Invalidf returns an InvalidRequest error with a formatted message.
func Invalidf(format string, args ...any) *Error {
	return &Error{Kind: InvalidRequest, Message: errors.Errorf(format, args...).Error()}
}

// Wrap marks err as an Internal failure described by msg.
func Wrap(err error, msg string) *Error {
	return &Error{Kind: Internal, Message: msg, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or Internal
// when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the caller-facing message of the first *Error in err's
// chain. Errors without a kind yield a generic message so internal details
// never leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "internal server error"
}
