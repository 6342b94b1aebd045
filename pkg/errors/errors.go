// Package errors provides structured error types for ghostcanvas.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the canvas engine, CLI and host bridge
//   - Machine-readable error codes for programmatic handling
//   - User-friendly messages for transient, dismissible notifications
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes follow the failure taxonomy of the source-editing engine:
//   - PARSE_FAILURE: input text could not be scanned; prior state is kept
//   - SOURCE_NOT_FOUND / STALE_SOURCE_LOCATION: a location no longer resolves
//   - NO_SIBLING_IN_DIRECTION / NON_REORDERABLE_CONTEXT: boundary conditions
//   - PROTOCOL_TIMEOUT: a frame did not answer in time
//   - INVARIANT_VIOLATION: a scene graph operation was rejected
//
// # Usage
//
//	err := errors.New(errors.ErrCodeSourceNotFound, "no element at %s", loc)
//	if errors.Is(err, errors.ErrCodeSourceNotFound) {
//	    // abort, show notification
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeParseFailure, scanErr, "scan %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"

	// Source text errors
	ErrCodeParseFailure        Code = "PARSE_FAILURE"
	ErrCodeSourceNotFound      Code = "SOURCE_NOT_FOUND"
	ErrCodeStaleSourceLocation Code = "STALE_SOURCE_LOCATION"

	// Boundary conditions (informational)
	ErrCodeNoSiblingInDirection  Code = "NO_SIBLING_IN_DIRECTION"
	ErrCodeNonReorderableContext Code = "NON_REORDERABLE_CONTEXT"

	// Protocol errors
	ErrCodeProtocolTimeout Code = "PROTOCOL_TIMEOUT"
	ErrCodeFrameNotFound   Code = "FRAME_NOT_FOUND"

	// Scene graph errors
	ErrCodeInvariantViolation Code = "INVARIANT_VIOLATION"
	ErrCodeNodeNotFound       Code = "NODE_NOT_FOUND"

	// Storage errors
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsInformational reports whether err is a valid boundary condition
// (no sibling that way, not reorderable) rather than a failure.
func IsInformational(err error) bool {
	switch GetCode(err) {
	case ErrCodeNoSiblingInDirection, ErrCodeNonReorderableContext:
		return true
	}
	return false
}

// IsLocationError reports whether err means a source location no longer
// resolves and the caller must refresh it before retrying.
func IsLocationError(err error) bool {
	switch GetCode(err) {
	case ErrCodeSourceNotFound, ErrCodeStaleSourceLocation:
		return true
	}
	return false
}
