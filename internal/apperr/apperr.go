// Package apperr defines the error kinds shared by the domain services and the
// HTTP boundary. Domain errors wrap one of the kinds so callers can branch with
// errors.Is without knowing which package produced the error.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrInvalidState    = errors.New("invalid state")
)

// Error is a domain error with a human readable message and a kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error { return e.kind }

// New creates an error of the given kind.
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func NotFound(msg string) *Error     { return New(ErrNotFound, msg) }
func Forbidden(msg string) *Error    { return New(ErrForbidden, msg) }
func InvalidState(msg string) *Error { return New(ErrInvalidState, msg) }

// Validation formats a validation failure.
func Validation(format string, args ...any) *Error {
	return New(ErrValidation, fmt.Sprintf(format, args...))
}

// HTTPStatus maps an error to the response status used at the request boundary.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsKnown reports whether err carries one of the kinds above.
func IsKnown(err error) bool {
	return HTTPStatus(err) != http.StatusInternalServerError
}
