package analyzer

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"panopticon/internal/logging"
	"panopticon/internal/report"
)

const (
	defaultTimeout  = 120 * time.Second
	defaultParallel = 4
)

// Runner executes selected tools against a workspace directory. Tools run in
// parallel up to a bound; each one is isolated, so a failure or timeout in
// one never disturbs the others.
type Runner struct {
	timeout  time.Duration
	parallel int
	logger   *logging.Logger
}

// NewRunner builds a runner. Non-positive limits fall back to defaults.
func NewRunner(timeoutSeconds, parallel int, logger *logging.Logger) *Runner {
	timeout := time.Duration(timeoutSeconds) * time.Second
	if timeoutSeconds <= 0 {
		timeout = defaultTimeout
	}
	if parallel <= 0 {
		parallel = defaultParallel
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{
		timeout:  timeout,
		parallel: parallel,
		logger:   logger.Component("analyzer"),
	}
}

// Run invokes every selected tool with the workspace as working directory and
// returns normalized results keyed by tool name. Failures are values in the
// map; Run itself only observes the context.
func (r *Runner) Run(ctx context.Context, dir string, selections []Selection) map[string]*report.ToolResult {
	results := make(map[string]*report.ToolResult, len(selections))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for _, sel := range selections {
		spec := sel.Spec
		g.Go(func() error {
			res := r.runOne(gctx, dir, spec)
			mu.Lock()
			results[spec.Name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // failures live in the results

	return results
}

func (r *Runner) runOne(ctx context.Context, dir string, spec ToolSpec) *report.ToolResult {
	path, err := exec.LookPath(spec.Binary)
	if err != nil {
		r.logger.Info("Tool not installed", map[string]interface{}{"tool": spec.Name})
		return report.Normalize(report.Execution{Tool: spec.Name, Missing: true})
	}

	toolCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(toolCtx, path, spec.Args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// A killed tool can leave children holding the output pipes open; do not
	// wait for them past the deadline.
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	execution := report.Execution{
		Tool:     spec.Name,
		Format:   spec.Format,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: duration,
		TimedOut: errors.Is(toolCtx.Err(), context.DeadlineExceeded),
	}
	if runErr != nil && !execution.TimedOut {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			execution.ExitCode = exitErr.ExitCode()
		} else {
			execution.Err = runErr
		}
	}

	res := report.Normalize(execution)
	r.logger.Debug("Tool finished", map[string]interface{}{
		"tool":       spec.Name,
		"outcome":    string(res.Outcome),
		"durationMs": duration.Milliseconds(),
	})
	return res
}
