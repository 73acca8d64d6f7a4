// Package engine ties acquisition, detection, dispatch, and aggregation into
// the operations the serving layers expose. Every operation takes a source
// descriptor and works against the shared workspace cache.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"panopticon/internal/analyzer"
	"panopticon/internal/config"
	apperrors "panopticon/internal/errors"
	"panopticon/internal/gitops"
	"panopticon/internal/history"
	"panopticon/internal/language"
	"panopticon/internal/logging"
	"panopticon/internal/provision"
	"panopticon/internal/report"
	"panopticon/internal/source"
	"panopticon/internal/workspace"
)

// Source identifies the repository an operation targets.
type Source struct {
	Location   string `json:"location"`
	Credential string `json:"credential,omitempty"`
	Branch     string `json:"branch,omitempty"`
}

func (s Source) identity() source.Identity {
	return source.Identity{Location: s.Location, Credential: s.Credential, Branch: s.Branch}
}

func (s Source) validate() error {
	if s.Location == "" {
		return apperrors.NewInvalidParameter("location", "repository location is required")
	}
	return nil
}

// AnalyzeRequest is a full analysis request. MinConfidence overrides the
// configured selection threshold for this request only; Languages restricts
// analysis to the named languages (the security scan still runs).
type AnalyzeRequest struct {
	Source
	MinConfidence *float64 `json:"minConfidence,omitempty"`
	Languages     []string `json:"languages,omitempty"`
}

func (r AnalyzeRequest) validate() error {
	if err := r.Source.validate(); err != nil {
		return err
	}
	if r.MinConfidence != nil && (*r.MinConfidence < 0 || *r.MinConfidence > 1) {
		return apperrors.NewInvalidParameter("minConfidence", "must be between 0 and 1")
	}
	for _, name := range r.Languages {
		if _, ok := language.Parse(name); !ok {
			return apperrors.NewInvalidParameter("languages", fmt.Sprintf("unsupported language %q", name))
		}
	}
	return nil
}

// restrict drops detected languages outside the requested set.
func (r AnalyzeRequest) restrict(confidences map[language.Language]float64) map[language.Language]float64 {
	if len(r.Languages) == 0 {
		return confidences
	}
	keep := make(map[language.Language]bool, len(r.Languages))
	for _, name := range r.Languages {
		if lang, ok := language.Parse(name); ok {
			keep[lang] = true
		}
	}
	filtered := make(map[language.Language]float64)
	for lang, conf := range confidences {
		if keep[lang] {
			filtered[lang] = conf
		}
	}
	return filtered
}

type acquirer interface {
	Acquire(ctx context.Context, id source.Identity) (*workspace.Acquisition, error)
}

// Engine is the orchestration core shared by the MCP server and the CLI.
type Engine struct {
	cfg      *config.Config
	cache    acquirer
	git      *gitops.Client
	detector *language.Detector
	registry *analyzer.Registry
	runner   *analyzer.Runner
	store    *history.Store
	logger   *logging.Logger
}

// New wires an engine from configuration.
func New(cfg *config.Config, logger *logging.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	client := gitops.NewClient(logger)
	cache, err := workspace.NewCache(cfg.CacheDir, workspace.NewGitVCS(client), cfg.Fetch.Strict, logger)
	if err != nil {
		return nil, err
	}

	registry := analyzer.DefaultRegistry()
	if cfg.Analysis.OverlayPath != "" {
		if err := registry.ApplyOverlay(cfg.Analysis.OverlayPath); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		cfg:      cfg,
		cache:    cache,
		git:      client,
		detector: language.NewDetector(cfg.Analysis.MaxFileSizeBytes, logger),
		registry: registry,
		runner:   analyzer.NewRunner(cfg.Analysis.ToolTimeoutSeconds, cfg.Analysis.MaxParallelTools, logger),
		logger:   logger.Component("engine"),
	}

	if cfg.History.Enabled {
		path, err := cfg.HistoryLocation()
		if err != nil {
			return nil, err
		}
		store, err := history.Open(path, cfg.History.MaxRuns, logger)
		if err != nil {
			return nil, err
		}
		e.store = store
	}
	return e, nil
}

// Close releases the engine's persistent resources.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// AnalyzeRepository runs the full pipeline: acquire, detect, select, run,
// aggregate, record. Tool-level failures come back inside the report; only
// invalid input and source acquisition fail the request itself.
func (e *Engine) AnalyzeRepository(ctx context.Context, req AnalyzeRequest) (*report.Report, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	requestID := uuid.NewString()
	id := req.identity()
	e.logger.Info("Analysis started", map[string]interface{}{
		"requestId": requestID,
		"location":  id.RedactedLocation(),
		"branch":    req.Branch,
	})

	acq, err := e.cache.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}

	confidences, err := e.detector.Detect(acq.Path)
	if err != nil {
		return nil, apperrors.NewInternal("language detection failed", err)
	}
	confidences = req.restrict(confidences)

	minConfidence := e.cfg.Analysis.MinConfidence
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}

	var rep *report.Report
	if len(confidences) == 0 {
		e.logger.Info("Nothing to analyze", map[string]interface{}{
			"requestId": requestID,
			"location":  id.RedactedLocation(),
		})
		rep = report.Build(report.BuildInput{
			RequestID: requestID,
			Reason:    "no supported language detected",
			Stale:     acq.Stale,
			Duration:  time.Since(start),
		})
	} else {
		selections := e.registry.Select(confidences, minConfidence)
		results := e.runner.Run(ctx, acq.Path, selections)
		rep = report.Build(report.BuildInput{
			RequestID: requestID,
			Languages: languageMap(confidences),
			Results:   results,
			Placement: analyzer.Placement(selections),
			Stale:     acq.Stale,
			Duration:  time.Since(start),
		})
	}

	e.record(id, req.Branch, start, rep)
	e.logger.Info("Analysis finished", map[string]interface{}{
		"requestId":  requestID,
		"durationMs": rep.DurationMs,
		"findings":   rep.Summary.FindingsTotal,
		"toolsRun":   rep.Summary.ToolsRun,
	})
	return rep, nil
}

// DetectLanguages acquires the source and reports language confidences. An
// empty map means nothing recognizable was found.
func (e *Engine) DetectLanguages(ctx context.Context, src Source) (map[string]float64, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	acq, err := e.cache.Acquire(ctx, src.identity())
	if err != nil {
		return nil, err
	}
	confidences, err := e.detector.Detect(acq.Path)
	if err != nil {
		return nil, apperrors.NewInternal("language detection failed", err)
	}
	return languageMap(confidences), nil
}

// Doctor probes every registered tool on the local system.
func (e *Engine) Doctor(ctx context.Context) []provision.ToolStatus {
	return provision.NewChecker(e.registry, e.logger).Check(ctx)
}

// CacheDir returns the workspace cache root.
func (e *Engine) CacheDir() string {
	return e.cfg.CacheDir
}

// HistoryEnabled reports whether runs are being recorded.
func (e *Engine) HistoryEnabled() bool {
	return e.store != nil
}

// RecentRuns lists recorded analysis runs, newest first.
func (e *Engine) RecentRuns(limit int) ([]history.Entry, error) {
	if e.store == nil {
		return nil, apperrors.NewInvalidParameter("history", "history recording is disabled")
	}
	return e.store.Recent(limit)
}

// GetRun loads one recorded run with its full report.
func (e *Engine) GetRun(id string) (*history.Entry, error) {
	if e.store == nil {
		return nil, apperrors.NewInvalidParameter("history", "history recording is disabled")
	}
	return e.store.Get(id)
}

func (e *Engine) record(id source.Identity, branch string, start time.Time, rep *report.Report) {
	if e.store == nil {
		return
	}
	entry := history.Entry{
		ID:            rep.RequestID,
		Location:      id.RedactedLocation(),
		Branch:        branch,
		Status:        rep.Status,
		Languages:     rep.Languages,
		FindingsTotal: rep.Summary.FindingsTotal,
		Stale:         rep.Stale,
		StartedAt:     start,
		DurationMs:    rep.DurationMs,
		Report:        rep,
	}
	if err := e.store.Record(entry); err != nil {
		e.logger.Warn("Run not recorded", map[string]interface{}{
			"runId": entry.ID,
			"error": err.Error(),
		})
	}
}

func languageMap(confidences map[language.Language]float64) map[string]float64 {
	out := make(map[string]float64, len(confidences))
	for lang, conf := range confidences {
		out[string(lang)] = conf
	}
	return out
}
