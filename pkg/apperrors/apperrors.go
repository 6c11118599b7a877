// Package apperrors defines the coded error taxonomy shared by every
// engine operation. Services return these; the HTTP layer maps codes to
// statuses and renders the message as a (success, message) envelope.
package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies an engine failure.
type Code string

const (
	// CodeValidation marks malformed input, e.g. units != 1 or units > 4.
	CodeValidation Code = "validation"
	// CodeEligibility marks a donor still inside the 30-day cooldown.
	CodeEligibility Code = "eligibility"
	// CodeConsistency marks business-rule refusals: insufficient stock,
	// area mismatch, invalid status transition.
	CodeConsistency Code = "consistency"
	// CodeNotFound marks an unknown donor, recipient or request id.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks failed authentication or a forbidden caller.
	CodeUnauthorized Code = "unauthorized"
	// CodeConflict marks a serialization conflict; the caller resubmits.
	CodeConflict Code = "conflict"
	// CodePersistence marks an underlying storage failure.
	CodePersistence Code = "persistence"
)

// Error is a coded engine error. Message is safe to show to the caller.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error with a caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted caller-facing message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from err, or CodePersistence when err carries
// none. A nil err has no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodePersistence
}

// MessageOf extracts the caller-facing message, falling back to a generic
// one so internal detail never leaks through the envelope.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
