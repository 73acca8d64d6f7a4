// Package errors defines the stable error taxonomy for panopticon.
// Workspace acquisition failures are the only fatal kind; every tool-level
// failure is recorded as a value inside the report instead of propagating.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SourceUnavailable indicates no usable workspace could be produced
	SourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	// ToolMissing indicates an analyzer binary was not found on PATH
	ToolMissing ErrorCode = "TOOL_MISSING"
	// ToolExecutionError indicates an analyzer process failed without usable output
	ToolExecutionError ErrorCode = "TOOL_EXECUTION_ERROR"
	// ToolTimeout indicates an analyzer exceeded its wall-clock bound
	ToolTimeout ErrorCode = "TOOL_TIMEOUT"
	// ToolOutputUnparsable indicates analyzer output did not match its declared shape
	ToolOutputUnparsable ErrorCode = "TOOL_OUTPUT_UNPARSABLE"
	// NoLanguageDetected indicates the workspace contains no supported language
	NoLanguageDetected ErrorCode = "NO_LANGUAGE_DETECTED"
	// InvalidParameter indicates a malformed request parameter
	InvalidParameter ErrorCode = "INVALID_PARAMETER"
	// NotFound indicates a requested entity does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// StorageError indicates the history store failed
	StorageError ErrorCode = "STORAGE_ERROR"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is a coded panopticon error with an optional cause.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a coded error wrapping an optional cause.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// NewSourceUnavailable reports that no usable workspace exists for location.
func NewSourceUnavailable(location string, cause error) *Error {
	return New(SourceUnavailable, fmt.Sprintf("source unavailable: %s", location), cause)
}

// NewToolMissing reports an analyzer binary absent from PATH.
func NewToolMissing(tool string) *Error {
	return New(ToolMissing, fmt.Sprintf("analyzer binary not found: %s", tool), nil)
}

// NewToolExecutionError reports an analyzer process failure.
func NewToolExecutionError(tool string, cause error) *Error {
	return New(ToolExecutionError, fmt.Sprintf("analyzer failed: %s", tool), cause)
}

// NewToolTimeout reports an analyzer exceeding its execution bound.
func NewToolTimeout(tool string, seconds int) *Error {
	return New(ToolTimeout, fmt.Sprintf("analyzer %s exceeded %ds", tool, seconds), nil)
}

// NewToolOutputUnparsable reports malformed analyzer output.
func NewToolOutputUnparsable(tool string, cause error) *Error {
	return New(ToolOutputUnparsable, fmt.Sprintf("analyzer output unparsable: %s", tool), cause)
}

// NewNoLanguageDetected reports a workspace with no supported language.
func NewNoLanguageDetected(dir string) *Error {
	return New(NoLanguageDetected, fmt.Sprintf("no supported language detected in %s", dir), nil)
}

// NewInvalidParameter reports a malformed request parameter.
func NewInvalidParameter(name, reason string) *Error {
	return New(InvalidParameter, fmt.Sprintf("invalid parameter %s: %s", name, reason), nil)
}

// NewNotFound reports a missing entity.
func NewNotFound(what string) *Error {
	return New(NotFound, fmt.Sprintf("not found: %s", what), nil)
}

// NewStorageError reports a history store failure.
func NewStorageError(op string, cause error) *Error {
	return New(StorageError, fmt.Sprintf("history store %s failed", op), cause)
}

// NewInternal reports an unexpected failure.
func NewInternal(message string, cause error) *Error {
	return New(InternalError, message, cause)
}

// HasCode reports whether err or any error in its chain carries code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or InternalError when err is not
// a coded error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}
