// Package errdefs defines the error kinds the billing engine returns to its
// callers.
//
// Engine operations fail in one of four caller-visible ways: the resource does
// not exist (NotFound), it already exists or is in a conflicting state
// (Conflict), the request itself is unprocessable (BadRequest), or the caller
// is not entitled to the resource (Forbidden). Transport adapters map these to
// their own status codes (HTTP: 404, 409, 400, 403). Every other error is an
// infrastructure failure and is wrapped with %w as usual.
//
// Classification survives wrapping:
//
//	err := errdefs.NotFound("subscription not found")
//	wrapped := fmt.Errorf("failed to change subscription: %w", err)
//	errdefs.IsNotFound(wrapped) // true
package errdefs

import (
	"errors"
	"fmt"
)

type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

// NotFound returns an error classified as not-found.
func NotFound(msg string) error {
	return &notFoundError{msg: msg}
}

// NotFoundf returns a formatted not-found error.
func NotFoundf(format string, args ...interface{}) error {
	return &notFoundError{msg: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether any error in err's chain is a not-found error.
func IsNotFound(err error) bool {
	var e *notFoundError
	return errors.As(err, &e)
}

type conflictError struct{ msg string }

func (e *conflictError) Error() string { return e.msg }

// Conflict returns an error classified as a conflict with existing state.
func Conflict(msg string) error {
	return &conflictError{msg: msg}
}

// Conflictf returns a formatted conflict error.
func Conflictf(format string, args ...interface{}) error {
	return &conflictError{msg: fmt.Sprintf(format, args...)}
}

// IsConflict reports whether any error in err's chain is a conflict error.
func IsConflict(err error) bool {
	var e *conflictError
	return errors.As(err, &e)
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// BadRequest returns an error classified as an unprocessable request.
func BadRequest(msg string) error {
	return &badRequestError{msg: msg}
}

// BadRequestf returns a formatted bad-request error.
func BadRequestf(format string, args ...interface{}) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// IsBadRequest reports whether any error in err's chain is a bad-request error.
func IsBadRequest(err error) bool {
	var e *badRequestError
	return errors.As(err, &e)
}

type forbiddenError struct{ msg string }

func (e *forbiddenError) Error() string { return e.msg }

// Forbidden returns an error classified as an entitlement failure.
func Forbidden(msg string) error {
	return &forbiddenError{msg: msg}
}

// Forbiddenf returns a formatted forbidden error.
func Forbiddenf(format string, args ...interface{}) error {
	return &forbiddenError{msg: fmt.Sprintf(format, args...)}
}

// IsForbidden reports whether any error in err's chain is a forbidden error.
func IsForbidden(err error) bool {
	var e *forbiddenError
	return errors.As(err, &e)
}
