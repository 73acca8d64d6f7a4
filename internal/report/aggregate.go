package report

import (
	"time"
)

// BuildInput carries everything the aggregate report is derived from.
// Placement maps each tool to the languages it reports under; a tool with no
// languages is the repository-wide security scan.
type BuildInput struct {
	RequestID string
	Languages map[string]float64
	Results   map[string]*ToolResult
	Placement map[string][]string
	Reason    string
	Stale     bool
	Duration  time.Duration
}

// Build assembles the caller-facing report. The summary is computed here,
// once, from the normalized results; callers never re-derive it.
func Build(in BuildInput) *Report {
	rep := &Report{
		Status:      StatusSuccess,
		RequestID:   in.RequestID,
		Languages:   in.Languages,
		Analysis:    make(map[string]map[string]*ToolResult),
		Reason:      in.Reason,
		Stale:       in.Stale,
		GeneratedAt: time.Now().UTC(),
		DurationMs:  in.Duration.Milliseconds(),
	}
	if rep.Languages == nil {
		rep.Languages = map[string]float64{}
	}

	summary := &Summary{
		BySeverity: make(map[string]int),
		ByTool:     make(map[string]int),
	}
	for tool, res := range in.Results {
		if res == nil {
			continue
		}
		summary.ToolsRun++
		if res.Outcome.Failed() {
			summary.ToolsFailed++
		}
		if n := len(res.Findings); n > 0 {
			summary.ByTool[tool] = n
			summary.FindingsTotal += n
			for _, f := range res.Findings {
				if f.Severity != "" {
					summary.BySeverity[f.Severity]++
				}
			}
		}

		langs := in.Placement[tool]
		if len(langs) == 0 {
			rep.SecurityScan = res
			continue
		}
		for _, lang := range langs {
			if rep.Analysis[lang] == nil {
				rep.Analysis[lang] = make(map[string]*ToolResult)
			}
			rep.Analysis[lang][tool] = res
		}
	}
	if len(summary.BySeverity) == 0 {
		summary.BySeverity = nil
	}
	if len(summary.ByTool) == 0 {
		summary.ByTool = nil
	}
	rep.Summary = summary
	return rep
}
