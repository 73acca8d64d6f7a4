package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      SourceUnavailable,
			message:   "source unavailable: https://example.com/a.git",
			cause:     stderrors.New("connection refused"),
			wantParts: []string{"SOURCE_UNAVAILABLE", "source unavailable", "connection refused"},
		},
		{
			name:      "without cause",
			code:      ToolMissing,
			message:   "analyzer binary not found: gosec",
			cause:     nil,
			wantParts: []string{"TOOL_MISSING", "gosec"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.cause)
			got := err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewStorageError("record", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"direct match", NewToolTimeout("pmd", 120), ToolTimeout, true},
		{"direct mismatch", NewToolTimeout("pmd", 120), ToolMissing, false},
		{"wrapped match", fmt.Errorf("analyze: %w", NewSourceUnavailable("x", nil)), SourceUnavailable, true},
		{"plain error", stderrors.New("plain"), InternalError, false},
		{"nil", nil, SourceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.err, tt.code); got != tt.want {
				t.Errorf("HasCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewInvalidParameter("paths", "must not be empty")); got != InvalidParameter {
		t.Errorf("CodeOf() = %v, want %v", got, InvalidParameter)
	}
	if got := CodeOf(stderrors.New("anything")); got != InternalError {
		t.Errorf("CodeOf(plain) = %v, want %v", got, InternalError)
	}
	if got := CodeOf(fmt.Errorf("wrap: %w", NewNotFound("run 42"))); got != NotFound {
		t.Errorf("CodeOf(wrapped) = %v, want %v", got, NotFound)
	}
}

func TestWithDetails(t *testing.T) {
	err := NewToolOutputUnparsable("bandit", stderrors.New("unexpected end of JSON input")).
		WithDetails(map[string]interface{}{"rawPrefix": "{\"resul"})

	if err.Details == nil {
		t.Fatal("Details should be set")
	}
	details, ok := err.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("Details type = %T, want map", err.Details)
	}
	if details["rawPrefix"] != "{\"resul" {
		t.Errorf("Details[rawPrefix] = %v", details["rawPrefix"])
	}
}

func TestConstructorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want ErrorCode
	}{
		{"source unavailable", NewSourceUnavailable("url", nil), SourceUnavailable},
		{"tool missing", NewToolMissing("trivy"), ToolMissing},
		{"tool execution", NewToolExecutionError("eslint", nil), ToolExecutionError},
		{"tool timeout", NewToolTimeout("gosec", 60), ToolTimeout},
		{"output unparsable", NewToolOutputUnparsable("pmd", nil), ToolOutputUnparsable},
		{"no language", NewNoLanguageDetected("/tmp/x"), NoLanguageDetected},
		{"invalid parameter", NewInvalidParameter("branch", "empty"), InvalidParameter},
		{"not found", NewNotFound("run"), NotFound},
		{"storage", NewStorageError("prune", nil), StorageError},
		{"internal", NewInternal("boom", nil), InternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.want {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.want)
			}
		})
	}
}
