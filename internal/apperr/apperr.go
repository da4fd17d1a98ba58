// Package apperr models the application error taxonomy. Boundary failures
// are classified by kind so callers can decide the fallback chain
// (remote → cache → local file → defaults) explicitly instead of
// swallowing the error.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error at a store or transport boundary.
type Kind string

const (
	KindRemoteUnavailable Kind = "remote_unavailable"
	KindMalformedData     Kind = "malformed_data"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInvalidInput      Kind = "invalid_input"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// Error is an application error carrying a kind, a user-facing message and
// the wrapped cause.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the original error
func (e *Error) Unwrap() error {
	return e.Err
}

// WithMessage returns a copy of the Error with a custom message
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Err: e.Err}
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindInvalidInput, KindMalformedData:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRemoteUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Common error constructors
var (
	RemoteUnavailable = func(err error) *Error { return New(KindRemoteUnavailable, "Remote store unavailable", err) }
	MalformedData     = func(err error) *Error { return New(KindMalformedData, "Malformed data", err) }
	NotFound          = func(err error) *Error { return New(KindNotFound, "Resource not found", err) }
	Conflict          = func(err error) *Error { return New(KindConflict, "Conflict", err) }
	InvalidInput      = func(err error) *Error { return New(KindInvalidInput, "Invalid input", err) }
	Unauthorized      = func(err error) *Error { return New(KindUnauthorized, "Unauthorized", err) }
	Forbidden         = func(err error) *Error { return New(KindForbidden, "Forbidden", err) }
	Internal          = func(err error) *Error { return New(KindInternal, "Internal server error", err) }
)

// KindOf extracts the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsRemoteUnavailable reports whether err is a remote-store connectivity
// failure, the usual trigger for falling back to cache or local files.
func IsRemoteUnavailable(err error) bool {
	return KindOf(err) == KindRemoteUnavailable
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
