// Package report normalizes heterogeneous analyzer outputs (JSON, XML,
// line-oriented text) into one aggregate report. Every tool invocation ends
// in exactly one terminal outcome; failures are values inside the report.
package report

import (
	"time"
)

// Outcome is the terminal state of one tool invocation.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeNoFindings     Outcome = "no-findings"
	OutcomeToolMissing    Outcome = "tool-missing"
	OutcomeExecutionError Outcome = "execution-error"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeParseError     Outcome = "parse-error"
)

// Failed reports whether the outcome represents a tool-level failure.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeSuccess, OutcomeNoFindings:
		return false
	default:
		return true
	}
}

// Format declares the output shape a tool emits.
type Format string

const (
	FormatJSON  Format = "json"
	FormatXML   Format = "xml"
	FormatLines Format = "lines"
)

// Finding is one normalized issue record.
type Finding struct {
	File     string  `json:"file"`
	Line     int     `json:"line,omitempty"`
	Rule     string  `json:"rule,omitempty"`
	Severity string  `json:"severity,omitempty"`
	Message  string  `json:"message,omitempty"`
	Function string  `json:"function,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// ToolResult is the normalized outcome of one tool invocation. Never mutated
// after creation.
type ToolResult struct {
	Tool       string                 `json:"tool"`
	Outcome    Outcome                `json:"outcome"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Findings   []Finding              `json:"findings,omitempty"`
	Raw        string                 `json:"raw,omitempty"`
	Error      string                 `json:"error,omitempty"`
	DurationMs int64                  `json:"durationMs"`
}

// Execution is the raw material a tool invocation produced, before
// normalization.
type Execution struct {
	Tool     string
	Format   Format
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Missing  bool
	TimedOut bool
	Err      error
	Duration time.Duration
}

// Summary tallies the normalized records across all tools. Computed once,
// deterministically, from the findings lists.
type Summary struct {
	FindingsTotal int            `json:"findingsTotal"`
	BySeverity    map[string]int `json:"bySeverity,omitempty"`
	ByTool        map[string]int `json:"byTool,omitempty"`
	ToolsRun      int            `json:"toolsRun"`
	ToolsFailed   int            `json:"toolsFailed"`
}

// StatusSuccess is the status of every structurally complete report. Tool
// failures live inside the report; only a fatal acquisition failure prevents
// a report from existing at all.
const StatusSuccess = "success"

// Report is the aggregate returned to the caller.
type Report struct {
	Status       string                            `json:"status"`
	RequestID    string                            `json:"requestId,omitempty"`
	Languages    map[string]float64                `json:"languages"`
	Analysis     map[string]map[string]*ToolResult `json:"analysis"`
	SecurityScan *ToolResult                       `json:"security_scan,omitempty"`
	Summary      *Summary                          `json:"summary,omitempty"`
	Reason       string                            `json:"reason,omitempty"`
	Stale        bool                              `json:"stale,omitempty"`
	GeneratedAt  time.Time                         `json:"generatedAt"`
	DurationMs   int64                             `json:"durationMs"`
}
