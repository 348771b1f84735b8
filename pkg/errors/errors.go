package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrBackend         = errors.New("backend unavailable")
	ErrRateLimited     = errors.New("rate limited")
)

// Error codes used across the app core
const (
	CodeBackend         = "backend"
	CodeValidation      = "validation"
	CodePartial         = "partial"
	CodeForbidden       = "forbidden"
	CodeUnauthenticated = "unauthenticated"
	CodeRateLimited     = "rate_limited"
	CodeNotFound        = "not_found"
)

// Error represents a custom error type
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new error with a message
func New(message string) error {
	return &Error{
		Message: message,
	}
}

// Wrap wraps an error with additional message
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
	}
}

// WrapWithCode wraps an error with a code and message
func WrapWithCode(err error, code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation reports a rejected input. The write is never attempted.
func Validation(message string) error {
	return &Error{
		Code:    CodeValidation,
		Message: message,
		Err:     ErrInvalidInput,
	}
}

// Backend wraps a failed read or write against a remote store.
func Backend(err error, message string) error {
	if err == nil {
		return nil
	}
	return WrapWithCode(err, CodeBackend, message)
}

// Partial wraps a failed follow-up write whose primary write already succeeded.
func Partial(err error, message string) error {
	if err == nil {
		return nil
	}
	return WrapWithCode(err, CodePartial, message)
}

// Forbidden reports an action on an entity the caller does not own.
func Forbidden(message string) error {
	return &Error{
		Code:    CodeForbidden,
		Message: message,
		Err:     ErrForbidden,
	}
}

// Unauthenticated reports an action that needs a signed-in principal.
func Unauthenticated(message string) error {
	return &Error{
		Code:    CodeUnauthenticated,
		Message: message,
		Err:     ErrUnauthenticated,
	}
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetCode returns the error code if it exists
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetMessage returns the error message
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsNotFound returns true if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation returns true if the error was raised before any write was attempted
func IsValidation(err error) bool {
	return GetCode(err) == CodeValidation || errors.Is(err, ErrInvalidInput)
}

// IsPartial returns true if a primary write succeeded but a follow-up write did not
func IsPartial(err error) bool {
	return GetCode(err) == CodePartial
}

// IsForbidden returns true if the error is a forbidden error
func IsForbidden(err error) bool {
	return GetCode(err) == CodeForbidden || errors.Is(err, ErrForbidden)
}

// IsUnauthenticated returns true if the error is an unauthenticated error
func IsUnauthenticated(err error) bool {
	return GetCode(err) == CodeUnauthenticated || errors.Is(err, ErrUnauthenticated)
}
