package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"panopticon/internal/language"
	"panopticon/internal/report"
)

// writeStub drops an executable shell script into dir and returns its path.
func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func stubSelection(name, binary string, format report.Format) Selection {
	return Selection{
		Spec:      ToolSpec{Name: name, Binary: binary, Format: format},
		Languages: []language.Language{language.Go},
	}
}

func TestRunExecutesInWorkspace(t *testing.T) {
	bins := t.TempDir()
	workspace := t.TempDir()
	jsonTool := writeStub(t, bins, "jsontool", `printf '{"cwd": "%s"}' "$PWD"`)
	linesTool := writeStub(t, bins, "linestool", `echo "7 pkg Fn file.go:3:1"`)

	runner := NewRunner(30, 2, nil)
	results := runner.Run(context.Background(), workspace, []Selection{
		stubSelection("jsontool", jsonTool, report.FormatJSON),
		stubSelection("linestool", linesTool, report.FormatLines),
	})

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	jr := results["jsontool"]
	if jr.Outcome != report.OutcomeSuccess {
		t.Fatalf("jsontool outcome = %q (error: %s)", jr.Outcome, jr.Error)
	}
	wantDir, err := filepath.EvalSymlinks(workspace)
	if err != nil {
		t.Fatal(err)
	}
	gotDir, _ := jr.Payload["cwd"].(string)
	if resolved, err := filepath.EvalSymlinks(gotDir); err != nil || resolved != wantDir {
		t.Errorf("tool ran in %q, want %q", gotDir, wantDir)
	}

	lr := results["linestool"]
	if lr.Outcome != report.OutcomeSuccess || len(lr.Findings) != 1 {
		t.Errorf("linestool = %+v", lr)
	}
}

func TestRunTimeoutDoesNotDisturbOthers(t *testing.T) {
	bins := t.TempDir()
	slow := writeStub(t, bins, "slow", `exec sleep 5`)
	quick := writeStub(t, bins, "quick", `echo '{"ok": true}'`)

	runner := NewRunner(1, 2, nil)
	results := runner.Run(context.Background(), t.TempDir(), []Selection{
		stubSelection("slow", slow, report.FormatJSON),
		stubSelection("quick", quick, report.FormatJSON),
	})

	if got := results["slow"].Outcome; got != report.OutcomeTimeout {
		t.Errorf("slow outcome = %q, want timeout", got)
	}
	if got := results["quick"].Outcome; got != report.OutcomeSuccess {
		t.Errorf("quick outcome = %q, want success (error: %s)", got, results["quick"].Error)
	}
}

func TestRunMissingTool(t *testing.T) {
	runner := NewRunner(30, 2, nil)
	results := runner.Run(context.Background(), t.TempDir(), []Selection{
		stubSelection("ghost", "panopticon-test-no-such-binary", report.FormatJSON),
	})

	res := results["ghost"]
	if res.Outcome != report.OutcomeToolMissing {
		t.Errorf("outcome = %q, want tool-missing", res.Outcome)
	}
}

func TestRunNonzeroExitWithParseableOutput(t *testing.T) {
	bins := t.TempDir()
	tool := writeStub(t, bins, "findings", `echo '{"issues": [1, 2]}'; exit 1`)

	runner := NewRunner(30, 1, nil)
	results := runner.Run(context.Background(), t.TempDir(), []Selection{
		stubSelection("findings", tool, report.FormatJSON),
	})

	if got := results["findings"].Outcome; got != report.OutcomeSuccess {
		t.Errorf("outcome = %q, want success despite exit 1", got)
	}
}

func TestRunExecutionError(t *testing.T) {
	bins := t.TempDir()
	tool := writeStub(t, bins, "broken", `echo "boom" >&2; exit 2`)

	runner := NewRunner(30, 1, nil)
	results := runner.Run(context.Background(), t.TempDir(), []Selection{
		stubSelection("broken", tool, report.FormatJSON),
	})

	res := results["broken"]
	if res.Outcome != report.OutcomeExecutionError {
		t.Errorf("outcome = %q, want execution-error", res.Outcome)
	}
	if res.Error == "" {
		t.Error("error message missing")
	}
}

func TestRunManyToolsBoundedParallel(t *testing.T) {
	bins := t.TempDir()
	var selections []Selection
	for _, name := range []string{"t1", "t2", "t3", "t4", "t5"} {
		tool := writeStub(t, bins, name, `echo '{}'`)
		selections = append(selections, stubSelection(name, tool, report.FormatJSON))
	}

	runner := NewRunner(30, 2, nil)
	results := runner.Run(context.Background(), t.TempDir(), selections)

	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	for name, res := range results {
		if res.Outcome != report.OutcomeSuccess {
			t.Errorf("%s outcome = %q", name, res.Outcome)
		}
	}
}
