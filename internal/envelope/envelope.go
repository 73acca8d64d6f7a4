// Package envelope provides the standard response wrapper shared by MCP tool
// results and CLI JSON output. Every response carries a schema version, the
// tool-specific payload, and any warnings or error produced while serving it.
package envelope

import (
	"errors"

	apperrors "panopticon/internal/errors"
)

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"

// Warning represents a non-fatal issue surfaced alongside the payload.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorInfo is the serialized form of a coded error.
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Response is the wrapper for every tool response.
type Response struct {
	SchemaVersion string      `json:"schemaVersion"`
	Data          interface{} `json:"data"`
	Warnings      []Warning   `json:"warnings,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
}

// Failed reports whether the response carries an error.
func (r *Response) Failed() bool {
	return r.Error != nil
}

// errorInfo converts any error into its serialized form. Coded errors keep
// their code and details; everything else becomes INTERNAL_ERROR.
func errorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	var coded *apperrors.Error
	if errors.As(err, &coded) {
		return &ErrorInfo{
			Code:    string(coded.Code),
			Message: coded.Message,
			Details: coded.Details,
		}
	}
	return &ErrorInfo{
		Code:    string(apperrors.InternalError),
		Message: err.Error(),
	}
}
