package core

// validation.go holds the error types produced while checking input.
//
// A ValidationError carries one or more human-readable messages. The parser
// collects every line problem into a single ValidationError so callers can
// show them all at once; boundary checks (blank file name, missing upload)
// produce a ValidationError with a single message.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a requested summary does not exist.
var ErrNotFound = errors.New("not found")

// ErrCapacityExceeded is wrapped by the ValidationError returned when a file
// holds more rows than the parser accepts.
var ErrCapacityExceeded = errors.New("row limit exceeded")

// ValidationError reports caller-correctable input problems.
type ValidationError struct {
	Messages []string
	cause    error
}

// NewValidationError creates a ValidationError from one or more messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	switch len(e.Messages) {
	case 0:
		return "validation failed"
	case 1:
		return e.Messages[0]
	default:
		return fmt.Sprintf("validation failed (%d errors): %s",
			len(e.Messages), strings.Join(e.Messages, "; "))
	}
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// AsValidation reports whether err is or wraps a ValidationError and returns
// its messages.
func AsValidation(err error) ([]string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Messages, true
	}
	return nil, false
}

func capacityError(max int) *ValidationError {
	return &ValidationError{
		Messages: []string{fmt.Sprintf("row count exceeds %d", max)},
		cause:    ErrCapacityExceeded,
	}
}

// InvariantError signals a violated precondition between components,
// for example aggregating an empty sample list. It indicates a bug upstream,
// not bad input.
type InvariantError struct {
	Op      string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: invariant violated: %s", e.Op, e.Message)
}
