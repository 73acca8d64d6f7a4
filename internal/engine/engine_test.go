package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"panopticon/internal/analyzer"
	"panopticon/internal/config"
	apperrors "panopticon/internal/errors"
	"panopticon/internal/gitops"
	"panopticon/internal/history"
	"panopticon/internal/language"
	"panopticon/internal/logging"
	"panopticon/internal/report"
	"panopticon/internal/source"
	"panopticon/internal/testutil"
	"panopticon/internal/workspace"
)

type fakeCache struct {
	path  string
	stale bool
	err   error
	calls int
}

func (f *fakeCache) Acquire(_ context.Context, _ source.Identity) (*workspace.Acquisition, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &workspace.Acquisition{Path: f.path, Key: "test", Stale: f.stale, LastSync: time.Now()}, nil
}

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// stubbedRegistry rebinds the go and java tools plus the security scanner to
// local scripts so analysis runs without any real tool installed.
func stubbedRegistry(t *testing.T) *analyzer.Registry {
	t.Helper()
	bins := t.TempDir()
	gosec := writeStub(t, bins, "gosec", `echo '{"Issues": [{"rule_id": "G101"}]}'`)
	gocyclo := writeStub(t, bins, "gocyclo", `echo '12 main serve main.go:5:1'`)
	staticcheck := writeStub(t, bins, "staticcheck", `echo '{"checks": []}'`)
	pmd := writeStub(t, bins, "pmd", `cat <<'XML'
<?xml version="1.0"?>
<pmd version="7.0.0"><file name="App.java"><violation beginline="3" rule="UnusedImports" priority="4">unused import</violation><violation beginline="9" rule="EmptyCatchBlock" priority="2">empty catch</violation></file></pmd>
XML`)
	trivy := writeStub(t, bins, "trivy", `echo '{"Results": []}'`)

	overlay := fmt.Sprintf(`
[tools.gosec]
binary = %q

[tools.gocyclo]
binary = %q

[tools.staticcheck]
binary = %q

[tools.pmd]
binary = %q

[tools.trivy]
binary = %q
`, gosec, gocyclo, staticcheck, pmd, trivy)

	overlayPath := filepath.Join(bins, "tools.toml")
	if err := os.WriteFile(overlayPath, []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := analyzer.DefaultRegistry()
	if err := registry.ApplyOverlay(overlayPath); err != nil {
		t.Fatal(err)
	}
	return registry
}

func newTestEngine(t *testing.T, cache acquirer, registry *analyzer.Registry) *Engine {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return &Engine{
		cfg:      config.DefaultConfig(),
		cache:    cache,
		git:      gitops.NewClient(nil),
		detector: language.NewDetector(0, nil),
		registry: registry,
		runner:   analyzer.NewRunner(30, 4, nil),
		store:    store,
		logger:   logging.Discard(),
	}
}

func mixedFixture(t *testing.T) string {
	return testutil.WriteTree(t, map[string]string{
		"main.go":   "package main\n\nfunc main() {}\n",
		"server.go": "package main\n\nimport \"fmt\"\n\nfunc serve() { fmt.Println(\"up\") }\n",
		"App.java":  "package app;\n\npublic class App {}\n",
	})
}

func TestAnalyzeRepositoryEndToEnd(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: mixedFixture(t)}, stubbedRegistry(t))

	rep, err := e.AnalyzeRepository(context.Background(), AnalyzeRequest{
		Source: Source{Location: "https://gitlab.example.com/group/project.git", Branch: "main"},
	})
	if err != nil {
		t.Fatalf("AnalyzeRepository: %v", err)
	}

	if rep.Status != report.StatusSuccess || rep.RequestID == "" {
		t.Errorf("rep = status %q, requestId %q", rep.Status, rep.RequestID)
	}
	if math.Abs(rep.Languages["go"]-2.0/3.0) > 0.01 || math.Abs(rep.Languages["java"]-1.0/3.0) > 0.01 {
		t.Errorf("Languages = %v", rep.Languages)
	}

	goTools := rep.Analysis["go"]
	if len(goTools) != 3 {
		t.Fatalf("Analysis[go] has %d tools: %v", len(goTools), goTools)
	}
	if goTools["gocyclo"].Outcome != report.OutcomeSuccess || len(goTools["gocyclo"].Findings) != 1 {
		t.Errorf("gocyclo = %+v", goTools["gocyclo"])
	}
	if goTools["gosec"].Payload == nil {
		t.Errorf("gosec = %+v", goTools["gosec"])
	}

	pmd := rep.Analysis["java"]["pmd"]
	if pmd == nil || len(pmd.Findings) != 2 {
		t.Fatalf("pmd = %+v", pmd)
	}

	if rep.SecurityScan == nil || rep.SecurityScan.Tool != "trivy" {
		t.Fatalf("SecurityScan = %+v", rep.SecurityScan)
	}
	if rep.Summary.ToolsRun != 5 || rep.Summary.ToolsFailed != 0 {
		t.Errorf("Summary = %+v", rep.Summary)
	}
	if rep.Summary.FindingsTotal != 3 {
		t.Errorf("FindingsTotal = %d, want 3 (1 gocyclo + 2 pmd)", rep.Summary.FindingsTotal)
	}

	entries, err := e.RecentRuns(5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != rep.RequestID {
		t.Fatalf("history entries = %+v", entries)
	}
	if entries[0].FindingsTotal != 3 || entries[0].Branch != "main" {
		t.Errorf("recorded entry = %+v", entries[0])
	}

	stored, err := e.GetRun(rep.RequestID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if stored.Report == nil || stored.Report.Summary.FindingsTotal != 3 {
		t.Errorf("stored report = %+v", stored.Report)
	}
}

func TestAnalyzeRepositoryNoLanguage(t *testing.T) {
	fixture := testutil.WriteTree(t, map[string]string{"README.md": "# docs\n"})
	e := newTestEngine(t, &fakeCache{path: fixture}, stubbedRegistry(t))

	rep, err := e.AnalyzeRepository(context.Background(), AnalyzeRequest{
		Source: Source{Location: "https://gitlab.example.com/group/docs.git"},
	})
	if err != nil {
		t.Fatalf("AnalyzeRepository: %v", err)
	}

	if rep.Reason == "" {
		t.Error("no-language report carries no reason")
	}
	if len(rep.Languages) != 0 || len(rep.Analysis) != 0 || rep.SecurityScan != nil {
		t.Errorf("rep = %+v, want empty analysis", rep)
	}
	if rep.Summary.ToolsRun != 0 {
		t.Errorf("ToolsRun = %d, want 0", rep.Summary.ToolsRun)
	}

	entries, err := e.RecentRuns(5)
	if err != nil || len(entries) != 1 {
		t.Fatalf("nothing-to-analyze run not recorded: %v %v", entries, err)
	}
}

func TestAnalyzeRepositoryMinConfidenceOverride(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: mixedFixture(t)}, stubbedRegistry(t))

	half := 0.5
	rep, err := e.AnalyzeRepository(context.Background(), AnalyzeRequest{
		Source:        Source{Location: "https://gitlab.example.com/group/project.git"},
		MinConfidence: &half,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := rep.Analysis["java"]; ok {
		t.Errorf("java analyzed below the requested threshold: %v", rep.Analysis)
	}
	if rep.Summary.ToolsRun != 4 {
		t.Errorf("ToolsRun = %d, want 4 (go tools plus security scan)", rep.Summary.ToolsRun)
	}
	if rep.SecurityScan == nil {
		t.Error("security scan skipped")
	}
}

func TestAnalyzeRepositoryLanguageFilter(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: mixedFixture(t)}, stubbedRegistry(t))

	rep, err := e.AnalyzeRepository(context.Background(), AnalyzeRequest{
		Source:    Source{Location: "https://gitlab.example.com/group/project.git"},
		Languages: []string{"java"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := rep.Analysis["go"]; ok {
		t.Errorf("go analyzed despite the java filter: %v", rep.Analysis)
	}
	if _, ok := rep.Analysis["java"]; !ok {
		t.Errorf("java missing from analysis: %v", rep.Analysis)
	}
	if rep.SecurityScan == nil {
		t.Error("security scan skipped")
	}
	if len(rep.Languages) != 1 {
		t.Errorf("Languages = %v, want java only", rep.Languages)
	}
}

func TestAnalyzeRepositoryValidation(t *testing.T) {
	cache := &fakeCache{path: t.TempDir()}
	e := newTestEngine(t, cache, analyzer.DefaultRegistry())

	bad := 1.5
	tests := []struct {
		name string
		req  AnalyzeRequest
	}{
		{"missing location", AnalyzeRequest{}},
		{"threshold out of range", AnalyzeRequest{Source: Source{Location: "x"}, MinConfidence: &bad}},
		{"unknown language", AnalyzeRequest{Source: Source{Location: "x"}, Languages: []string{"cobol"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.AnalyzeRepository(context.Background(), tt.req)
			if !apperrors.HasCode(err, apperrors.InvalidParameter) {
				t.Fatalf("err = %v, want INVALID_PARAMETER", err)
			}
		})
	}
	if cache.calls != 0 {
		t.Errorf("invalid requests reached the cache %d times", cache.calls)
	}
}

func TestAnalyzeRepositorySourceUnavailable(t *testing.T) {
	cache := &fakeCache{err: apperrors.NewSourceUnavailable("https://gitlab.example.com/gone.git", errors.New("connect: refused"))}
	e := newTestEngine(t, cache, analyzer.DefaultRegistry())

	_, err := e.AnalyzeRepository(context.Background(), AnalyzeRequest{
		Source: Source{Location: "https://gitlab.example.com/gone.git"},
	})
	if !apperrors.HasCode(err, apperrors.SourceUnavailable) {
		t.Fatalf("err = %v, want SOURCE_UNAVAILABLE", err)
	}

	entries, err := e.RecentRuns(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed acquisition recorded a run: %+v", entries)
	}
}

func TestAnalyzeRepositoryStaleWorkspace(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: mixedFixture(t), stale: true}, stubbedRegistry(t))

	rep, err := e.AnalyzeRepository(context.Background(), AnalyzeRequest{
		Source: Source{Location: "https://gitlab.example.com/group/project.git"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Stale {
		t.Error("stale acquisition not reflected in the report")
	}
}

func TestDetectLanguagesOperation(t *testing.T) {
	fixture := testutil.WriteTree(t, map[string]string{"main.go": "package main\n"})
	e := newTestEngine(t, &fakeCache{path: fixture}, analyzer.DefaultRegistry())

	langs, err := e.DetectLanguages(context.Background(), Source{Location: "https://gitlab.example.com/g/p.git"})
	if err != nil {
		t.Fatal(err)
	}
	if len(langs) != 1 || langs["go"] != 1.0 {
		t.Errorf("langs = %v, want {go: 1}", langs)
	}
}

func TestHistoryDisabled(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: t.TempDir()}, analyzer.DefaultRegistry())
	e.store = nil

	if _, err := e.RecentRuns(5); !apperrors.HasCode(err, apperrors.InvalidParameter) {
		t.Errorf("RecentRuns err = %v", err)
	}
	if _, err := e.GetRun("x"); !apperrors.HasCode(err, apperrors.InvalidParameter) {
		t.Errorf("GetRun err = %v", err)
	}
}
