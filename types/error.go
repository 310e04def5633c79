// Package types provides core types shared across the engine.
// This package has ZERO dependencies on other packages in this module to
// avoid circular imports.
package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a unified error code for configuration and run failures.
type ErrorCode string

const (
	// ErrInvalidConfig indicates a malformed or inconsistent configuration.
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrInvalidRoster indicates a roster that cannot start a run: no
	// assistant agents, duplicate names, or more than one user proxy.
	ErrInvalidRoster ErrorCode = "INVALID_ROSTER"
	// ErrReplyFailed indicates a single agent's reply capability failed.
	ErrReplyFailed ErrorCode = "REPLY_FAILED"
	// ErrRunAborted indicates the run transitioned to Failed.
	ErrRunAborted ErrorCode = "RUN_ABORTED"
	// ErrRunState indicates an operation that is illegal in the run's
	// current state, such as starting a chat twice.
	ErrRunState ErrorCode = "RUN_STATE"
	// ErrTranscriptFull indicates an append past the transcript's capacity.
	ErrTranscriptFull ErrorCode = "TRANSCRIPT_FULL"
	// ErrTraceSink indicates a trace sink rejected a write.
	ErrTraceSink ErrorCode = "TRACE_SINK"
)

// Error is a structured error with a code and an optional cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause attaches a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from an error chain.
// Returns the empty code if no *Error is found.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether the error chain contains an *Error with the code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
