package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
)

// Error carries a kind plus a caller-facing message. The wrapped cause, if
// any, is logged but never serialized into responses.
type Error struct {
	kind    Kind
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

// Message returns the caller-facing message without the cause chain.
func (e *Error) Message() string { return e.message }

// Kind returns the classification of err, or KindInternal if err is not an
// *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err, or a generic message
// for unclassified failures.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.message
	}
	return "internal server error"
}

func Validation(format string, args ...interface{}) error {
	return &Error{kind: KindValidation, message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{kind: KindNotFound, message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{kind: KindConflict, message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) error {
	return &Error{kind: KindUnauthorized, message: message}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...), cause: cause}
}
