// Package validation checks user input before it reaches the backend.
//
// Every validator is a pure function. Invalid input never panics; it yields a
// Result with Valid false, a readable Error and the zero Value.
package validation

import (
	"errors"
	"strings"
)

// Result is the outcome of validating a single field.
type Result[T any] struct {
	Valid bool
	Value T
	Error string
}

// Err returns the failure as an error, or nil when the result is valid.
func (r Result[T]) Err() error {
	if r.Valid {
		return nil
	}
	return &Error{Messages: []string{r.Error}}
}

func ok[T any](v T) Result[T] {
	return Result[T]{Valid: true, Value: v}
}

func fail[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

// Report is the outcome of validating a whole record. Errors holds every
// failing rule in field order.
type Report struct {
	Valid  bool
	Errors []string
}

func (r *Report) check(valid bool, msg string) {
	if !valid {
		r.Errors = append(r.Errors, msg)
	}
}

func (r *Report) finish() Report {
	r.Valid = len(r.Errors) == 0
	return *r
}

// Err returns the failures as an error, or nil when the report is valid.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	return &Error{Messages: r.Errors}
}

// Error is a client-side validation failure. It is never the result of a
// network call.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return strings.Join(e.Messages, "; ")
}

// IsValidationError reports whether err is or wraps a validation failure.
func IsValidationError(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}
