// Package errors provides structured error types for tensorplan.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_MISMATCH, MALFORMED_*: Structural failures while building or running a plan
//   - INTERNAL_*: Unexpected internal errors
//
// The evaluation engine reports five domain failures, all of which propagate
// to the caller unchanged:
//
//	SHAPE_MISMATCH         a leaf yielder returned data whose extents disagree with the index spaces
//	MISSING_LEAF           no data is available for a leaf descriptor
//	MALFORMED_COMBINATION  two operands cannot be combined (incompatible sum layouts, bad index roles)
//	DUPLICATE_STORE        a fingerprint was stored twice in one cache
//	COMPLEX_NARROWING      a scalar with a non-zero imaginary part reached a real backend
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMissingLeaf, "no data for %s", desc)
//	if errors.Is(err, errors.ErrCodeMissingLeaf) {
//	    // Handle missing input
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMissingLeaf, origErr, "read %s", path)
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
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"
	ErrCodeInvalidExpression Code = "INVALID_EXPRESSION"
	ErrCodeInvalidPath       Code = "INVALID_PATH"

	// Evaluation errors
	ErrCodeShapeMismatch Code = "SHAPE_MISMATCH"
	ErrCodeMissingLeaf   Code = "MISSING_LEAF"
	ErrCodeMalformed     Code = "MALFORMED_COMBINATION"
	ErrCodeDuplicate     Code = "DUPLICATE_STORE"
	ErrCodeNarrowing     Code = "COMPLEX_NARROWING"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

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

// Is reports whether err carries the given error code anywhere in its chain.
// Wrapping an engine error in another coded error keeps the inner code visible.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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
