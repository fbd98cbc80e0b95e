package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes with meaning to callers.
const (
	// CodeNotFound is returned when a single-row read matched nothing.
	CodeNotFound = "PGRST116"
	// CodeRejected marks an RPC that ran but reported success=false.
	CodeRejected = "rejected"
)

// Error is a failure reported by the backend. Message is always set.
type Error struct {
	Message string
	Code    string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error, defaulting the message from the status.
func NewError(status int, code, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = "unknown backend error"
	}
	return &Error{Message: message, Code: code, Status: status}
}

// NotFound builds the error for a single-row read that matched nothing.
func NotFound(what string) *Error {
	return &Error{
		Message: what + " not found",
		Code:    CodeNotFound,
		Status:  http.StatusNotAcceptable,
	}
}

// Rejected builds the error for an RPC that reported failure in its payload.
func Rejected(message string) *Error {
	if message == "" {
		message = "operation rejected"
	}
	return &Error{Message: message, Code: CodeRejected}
}

// IsNotFound reports whether err is a not-found backend error.
func IsNotFound(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Code == CodeNotFound
}

// AsError extracts the backend error from err, if any.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
