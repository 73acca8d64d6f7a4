package report

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestBuildGroupsResultsByLanguage(t *testing.T) {
	gosec := &ToolResult{Tool: "gosec", Outcome: OutcomeSuccess, Payload: map[string]interface{}{"Issues": []interface{}{}}}
	gocyclo := &ToolResult{Tool: "gocyclo", Outcome: OutcomeSuccess, Findings: []Finding{{File: "a.go", Line: 3, Score: 12}}}
	pmd := &ToolResult{Tool: "pmd", Outcome: OutcomeSuccess, Findings: []Finding{
		{File: "App.java", Line: 5, Severity: "high"},
		{File: "App.java", Line: 9, Severity: "low"},
	}}
	trivy := &ToolResult{Tool: "trivy", Outcome: OutcomeNoFindings}

	rep := Build(BuildInput{
		RequestID: "req-1",
		Languages: map[string]float64{"go": 0.6, "java": 0.4},
		Results: map[string]*ToolResult{
			"gosec":   gosec,
			"gocyclo": gocyclo,
			"pmd":     pmd,
			"trivy":   trivy,
		},
		Placement: map[string][]string{
			"gosec":   {"go"},
			"gocyclo": {"go"},
			"pmd":     {"java"},
			"trivy":   nil,
		},
		Duration: 3 * time.Second,
	})

	if rep.Status != StatusSuccess {
		t.Fatalf("Status = %q", rep.Status)
	}
	if rep.RequestID != "req-1" {
		t.Errorf("RequestID = %q", rep.RequestID)
	}
	if rep.DurationMs != 3000 {
		t.Errorf("DurationMs = %d, want 3000", rep.DurationMs)
	}

	if got := rep.Analysis["go"]; len(got) != 2 || got["gosec"] != gosec || got["gocyclo"] != gocyclo {
		t.Errorf("Analysis[go] = %v, want gosec and gocyclo", got)
	}
	if got := rep.Analysis["java"]; len(got) != 1 || got["pmd"] != pmd {
		t.Errorf("Analysis[java] = %v, want pmd", got)
	}
	if rep.SecurityScan != trivy {
		t.Errorf("SecurityScan = %v, want the trivy result", rep.SecurityScan)
	}
	if _, ok := rep.Analysis[""]; ok {
		t.Error("security scan leaked into the analysis map")
	}
}

func TestBuildSummary(t *testing.T) {
	rep := Build(BuildInput{
		Languages: map[string]float64{"go": 1.0},
		Results: map[string]*ToolResult{
			"gocyclo": {Tool: "gocyclo", Outcome: OutcomeSuccess, Findings: []Finding{
				{File: "a.go", Score: 11},
				{File: "b.go", Score: 18},
			}},
			"gosec": {Tool: "gosec", Outcome: OutcomeToolMissing, Error: "gosec is not installed"},
			"trivy": {Tool: "trivy", Outcome: OutcomeSuccess, Findings: []Finding{
				{File: "go.sum", Severity: "high"},
				{File: "go.sum", Severity: "high"},
				{File: "go.sum", Severity: "medium"},
			}},
		},
		Placement: map[string][]string{"gocyclo": {"go"}, "gosec": {"go"}},
	})

	want := &Summary{
		FindingsTotal: 5,
		BySeverity:    map[string]int{"high": 2, "medium": 1},
		ByTool:        map[string]int{"gocyclo": 2, "trivy": 3},
		ToolsRun:      3,
		ToolsFailed:   1,
	}
	if diff := cmp.Diff(want, rep.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildEmpty(t *testing.T) {
	rep := Build(BuildInput{Reason: "no supported language detected"})

	if rep.Languages == nil || len(rep.Languages) != 0 {
		t.Errorf("Languages = %v, want empty non-nil map", rep.Languages)
	}
	if len(rep.Analysis) != 0 {
		t.Errorf("Analysis = %v, want empty", rep.Analysis)
	}
	if rep.SecurityScan != nil {
		t.Errorf("SecurityScan = %v, want nil", rep.SecurityScan)
	}
	if rep.Summary == nil || rep.Summary.ToolsRun != 0 {
		t.Errorf("Summary = %+v, want zero tools", rep.Summary)
	}
	if rep.Summary.BySeverity != nil || rep.Summary.ByTool != nil {
		t.Errorf("empty tallies should be omitted, got %+v", rep.Summary)
	}
	if rep.Reason != "no supported language detected" {
		t.Errorf("Reason = %q", rep.Reason)
	}
	if rep.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

func TestBuildStaleFlag(t *testing.T) {
	rep := Build(BuildInput{Languages: map[string]float64{"go": 1.0}, Stale: true})
	if !rep.Stale {
		t.Error("Stale flag not carried into the report")
	}
}
