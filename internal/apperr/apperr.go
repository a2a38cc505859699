// Package apperr provides the error taxonomy shared by the practice engine
// and its transports.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// KindInternal is an unexpected failure, usually from storage.
	KindInternal Kind = "INTERNAL"
	// KindValidation is missing or malformed input.
	KindValidation Kind = "VALIDATION"
	// KindConflict means the request clashes with current state.
	KindConflict Kind = "CONFLICT"
	// KindNotFound means a game, scenario or user is absent.
	KindNotFound Kind = "NOT_FOUND"
	// KindForbidden means the caller lacks the required role.
	KindForbidden Kind = "FORBIDDEN"
	// KindServiceUnavailable means the language model is disabled or the
	// service is under maintenance.
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	// KindInconsistentState means a game's turns break alternation. The only
	// recovery is abandoning the game.
	KindInconsistentState Kind = "INCONSISTENT_STATE"
	// KindExternalCall means a language model call failed transiently.
	KindExternalCall Kind = "EXTERNAL_CALL"
)

// HTTPStatus maps a kind to an HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindInconsistentState:
		return http.StatusUnprocessableEntity
	case KindExternalCall:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type.
type Error struct {
	Kind    Kind   // Machine-readable category
	Message string // Internal message (for logs)
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a domain error with a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
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

// Sentinels for errors.Is comparisons.
var (
	ErrValidation         = New(KindValidation, "validation failed")
	ErrConflict           = New(KindConflict, "conflict")
	ErrNotFound           = New(KindNotFound, "not found")
	ErrForbidden          = New(KindForbidden, "forbidden")
	ErrServiceUnavailable = New(KindServiceUnavailable, "service unavailable")
	ErrInconsistentState  = New(KindInconsistentState, "inconsistent state")
	ErrExternalCall       = New(KindExternalCall, "external call failed")
)
