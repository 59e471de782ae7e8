// Package errs defines the error-kind taxonomy shared across the
// council service boundary.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a boundary error, not its Go type.
type Kind string

const (
	KindValidation  Kind = "ValidationError"
	KindNotFound    Kind = "NotFound"
	KindWrongStatus Kind = "WrongStatus"
	KindRateLimit   Kind = "RateLimit"
	KindTimeout     Kind = "Timeout"
	KindSafety      Kind = "Safety"
	KindProvider    Kind = "Provider"
	KindParse       Kind = "ParseError"
	KindNode        Kind = "NodeError"
	KindDeliverable Kind = "DeliverablesError"
)

// Error wraps a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsRetryable reports whether the LLM-facing error kind should be retried.
// Safety violations and all non-LLM kinds are never retryable.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindRateLimit, KindTimeout, KindProvider:
		return true
	default:
		return false
	}
}
