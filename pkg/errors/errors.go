package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Type classifies errors produced by the resolution pipeline.
type Type string

const (
	TypeInvalidURL  Type = "invalid_url"
	TypeNotFound    Type = "not_found"
	TypeRateLimited Type = "rate_limited"
	TypeAuth        Type = "auth"
	TypeParsing     Type = "parsing"
	TypeNoMedia     Type = "no_media"
	TypeUpstream    Type = "upstream"
)

// Error is a tagged error carrying its taxonomy type and an optional cause.
type Error struct {
	Type    Type
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a tagged error without a cause.
func New(t Type, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Newf creates a tagged error with a formatted message.
func Newf(t Type, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a tagged error that preserves the underlying cause.
func Wrap(t Type, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// TypeOf returns the taxonomy type of err, unwrapping as needed.
// Errors outside the taxonomy are treated as upstream failures.
func TypeOf(err error) Type {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Type
	}
	return TypeUpstream
}

// IsNotFound reports whether err is a terminal not-found error.
func IsNotFound(err error) bool {
	return TypeOf(err) == TypeNotFound
}

// IsRateLimited reports whether err is an upstream throttle signal.
func IsRateLimited(err error) bool {
	return TypeOf(err) == TypeRateLimited
}

// HTTPStatus maps an error to the status code the HTTP boundary should
// return. Anything outside the taxonomy maps to 500 so a single failed
// request never takes the process down.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case TypeInvalidURL:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the human-readable message for the HTTP boundary.
func Detail(err error) string {
	var tagged *Error
	if errors.As(err, &tagged) {
		if tagged.Cause != nil {
			return fmt.Sprintf("%s: %v", tagged.Message, tagged.Cause)
		}
		return tagged.Message
	}
	return err.Error()
}
