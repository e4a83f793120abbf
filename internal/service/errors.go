package service

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind int

const (
	// KindTransport covers network failures, timeouts, unexpected statuses and malformed responses.
	KindTransport Kind = iota

	// KindAuth covers invalid credentials and missing, expired or rejected tokens.
	KindAuth

	// KindValidation covers missing or malformed input.
	KindValidation

	// KindConflict means the target task no longer exists on the backend.
	KindConflict

	// KindBusy means another mutation for the same target is still in flight.
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every core operation.
type Error struct {
	Op      string // operation that failed, e.g. "update"
	Kind    Kind
	Status  int    // HTTP status, 0 if none
	Message string // user-facing message, server-reported when available
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "service error"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel kind errors such as ErrBusy.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Message != "" || t.Err != nil {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrAuth       = &Error{Kind: KindAuth}
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrTransport  = &Error{Kind: KindTransport}
	ErrBusy       = &Error{Kind: KindBusy}
)

// ErrSessionChanged is returned for results discarded because the session
// changed (logout or a new login) while the request was in flight.
var ErrSessionChanged = &Error{Op: "session", Kind: KindAuth, Message: "session changed while request was in flight"}

// Auth returns an auth error.
func Auth(op, msg string) *Error { return &Error{Op: op, Kind: KindAuth, Message: msg} }

// Validation returns a validation error.
func Validation(op, msg string) *Error { return &Error{Op: op, Kind: KindValidation, Message: msg} }

// Conflict returns a conflict error.
func Conflict(op, msg string) *Error { return &Error{Op: op, Kind: KindConflict, Message: msg} }

// Busy returns a busy error.
func Busy(op, msg string) *Error { return &Error{Op: op, Kind: KindBusy, Message: msg} }

// Transport wraps err as a transport error.
func Transport(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: op, Kind: KindTransport, Message: "request timed out", Err: err}
	}
	return &Error{Op: op, Kind: KindTransport, Err: err}
}

// AsError converts any error into a *Error.
// Errors that are not already classified become transport errors.
func AsError(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Transport(op, err)
}

// KindOf returns the kind of err, or KindTransport if it is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}
