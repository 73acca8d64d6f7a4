package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// rawExcerptLimit caps how much raw output a parse-error result carries for
// diagnostics.
const rawExcerptLimit = 512

// Normalize converts a raw execution into its terminal ToolResult. Process
// failures (missing binary, timeout, start errors) win over output parsing;
// a non-zero exit code alone does not, as long as stdout still parses.
func Normalize(exec Execution) *ToolResult {
	res := &ToolResult{
		Tool:       exec.Tool,
		DurationMs: exec.Duration.Milliseconds(),
	}

	switch {
	case exec.Missing:
		res.Outcome = OutcomeToolMissing
		res.Error = fmt.Sprintf("%s is not installed or not on PATH", exec.Tool)
		return res
	case exec.TimedOut:
		res.Outcome = OutcomeTimeout
		res.Error = fmt.Sprintf("%s exceeded its time limit and was terminated", exec.Tool)
		return res
	case exec.Err != nil:
		res.Outcome = OutcomeExecutionError
		res.Error = exec.Err.Error()
		if msg := excerpt(exec.Stderr); msg != "" {
			res.Error = res.Error + ": " + msg
		}
		return res
	}

	stdout := bytes.TrimSpace(exec.Stdout)
	if len(stdout) == 0 {
		if exec.ExitCode != 0 {
			res.Outcome = OutcomeExecutionError
			res.Error = fmt.Sprintf("%s exited with code %d and produced no output", exec.Tool, exec.ExitCode)
			if msg := excerpt(exec.Stderr); msg != "" {
				res.Error = res.Error + ": " + msg
			}
			return res
		}
		res.Outcome = OutcomeNoFindings
		return res
	}

	switch exec.Format {
	case FormatJSON:
		normalizeJSON(res, stdout)
	case FormatXML:
		normalizeXML(res, stdout)
	case FormatLines:
		normalizeLines(res, stdout)
	default:
		res.Outcome = OutcomeParseError
		res.Raw = string(truncate(stdout))
		res.Error = fmt.Sprintf("no parser registered for output format %q", exec.Format)
	}
	return res
}

// normalizeJSON keeps the tool's own schema as an opaque payload. Top-level
// arrays are wrapped so the payload is always a JSON object.
func normalizeJSON(res *ToolResult, stdout []byte) {
	var value interface{}
	if err := json.Unmarshal(stdout, &value); err != nil {
		res.Outcome = OutcomeParseError
		res.Raw = string(truncate(stdout))
		res.Error = fmt.Sprintf("invalid JSON output: %v", err)
		return
	}
	switch v := value.(type) {
	case map[string]interface{}:
		res.Payload = v
	default:
		res.Payload = map[string]interface{}{"results": value}
	}
	res.Outcome = OutcomeSuccess
}

// xmlReport matches the violation layout of PMD-style analyzers.
type xmlReport struct {
	Files []struct {
		Name       string `xml:"name,attr"`
		Violations []struct {
			BeginLine int    `xml:"beginline,attr"`
			Rule      string `xml:"rule,attr"`
			Priority  int    `xml:"priority,attr"`
			Text      string `xml:",chardata"`
		} `xml:"violation"`
	} `xml:"file"`
}

func normalizeXML(res *ToolResult, stdout []byte) {
	var doc xmlReport
	if err := xml.Unmarshal(stdout, &doc); err != nil {
		res.Outcome = OutcomeParseError
		res.Raw = string(truncate(stdout))
		res.Error = fmt.Sprintf("invalid XML output: %v", err)
		return
	}
	var findings []Finding
	for _, file := range doc.Files {
		for _, v := range file.Violations {
			findings = append(findings, Finding{
				File:     file.Name,
				Line:     v.BeginLine,
				Rule:     v.Rule,
				Severity: severityFromPriority(v.Priority),
				Message:  strings.TrimSpace(v.Text),
			})
		}
	}
	if len(findings) == 0 {
		res.Outcome = OutcomeNoFindings
		return
	}
	res.Outcome = OutcomeSuccess
	res.Findings = findings
}

// severityFromPriority maps PMD's 1 (blocker) to 5 (informational) scale onto
// the shared severity classes.
func severityFromPriority(priority int) string {
	switch {
	case priority <= 2:
		return "high"
	case priority == 3:
		return "medium"
	default:
		return "low"
	}
}

// normalizeLines parses score-per-function output such as
// "15 mypkg (*T).Method path/file.go:12:1". Lines that do not fit the token
// layout are skipped; if nothing fits at all the output is unparsable.
func normalizeLines(res *ToolResult, stdout []byte) {
	var findings []Finding
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if f, ok := parseScoreLine(line); ok {
			findings = append(findings, f)
		}
	}
	if len(findings) == 0 {
		res.Outcome = OutcomeParseError
		res.Raw = string(truncate(stdout))
		res.Error = "no line matched the expected score/function/location layout"
		return
	}
	res.Outcome = OutcomeSuccess
	res.Findings = findings
}

func parseScoreLine(line string) (Finding, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Finding{}, false
	}
	score, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Finding{}, false
	}
	location := fields[len(fields)-1]
	file, lineNo := splitLocation(location)
	if file == "" {
		return Finding{}, false
	}
	return Finding{
		File:     file,
		Line:     lineNo,
		Function: strings.Join(fields[2:len(fields)-1], " "),
		Score:    score,
	}, true
}

// splitLocation separates "path/file.go:12:1" into path and line number. The
// path may itself contain colons on some platforms, so the split walks from
// the right.
func splitLocation(location string) (string, int) {
	rest := location
	var nums []string
	for i := 0; i < 2; i++ {
		idx := strings.LastIndex(rest, ":")
		if idx < 0 {
			break
		}
		if _, err := strconv.Atoi(rest[idx+1:]); err != nil {
			break
		}
		nums = append(nums, rest[idx+1:])
		rest = rest[:idx]
	}
	if len(nums) == 0 || rest == "" {
		return location, 0
	}
	lineNo, _ := strconv.Atoi(nums[len(nums)-1])
	return rest, lineNo
}

func truncate(raw []byte) []byte {
	if len(raw) <= rawExcerptLimit {
		return raw
	}
	return raw[:rawExcerptLimit]
}

func excerpt(stderr []byte) string {
	return string(bytes.TrimSpace(truncate(stderr)))
}
