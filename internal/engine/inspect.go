package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"

	apperrors "panopticon/internal/errors"
	"panopticon/internal/gitops"
	"panopticon/internal/manifest"
	"panopticon/internal/paths"
	"panopticon/internal/treeview"
)

const (
	maxInspectBytes   = 256 * 1024
	maxInspectFiles   = 50
	maxHistoryCommits = 200
)

// Structure is a repository layout description.
type Structure struct {
	Tree      *treeview.Tree      `json:"tree"`
	Manifests []manifest.Manifest `json:"manifests,omitempty"`
}

// DescribeStructure renders the directory tree and parses any dependency
// manifests found in the working tree.
func (e *Engine) DescribeStructure(ctx context.Context, src Source, opts treeview.Options) (*Structure, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	acq, err := e.cache.Acquire(ctx, src.identity())
	if err != nil {
		return nil, err
	}

	tree, err := treeview.Render(acq.Path, opts)
	if err != nil {
		return nil, apperrors.NewInternal("cannot render repository tree", err)
	}
	manifests, err := manifest.Discover(acq.Path)
	if err != nil {
		return nil, apperrors.NewInternal("manifest discovery failed", err)
	}
	return &Structure{Tree: tree, Manifests: manifests}, nil
}

// FileContent is one inspected file. Per-file problems are carried in Error
// so a bad path never sinks the batch.
type FileContent struct {
	Path      string `json:"path"`
	Content   string `json:"content,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

// InspectFiles reads files from the working tree. Paths are relative to the
// repository root; anything resolving outside it is rejected per file.
func (e *Engine) InspectFiles(ctx context.Context, src Source, requested []string) ([]FileContent, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return nil, apperrors.NewInvalidParameter("paths", "at least one path is required")
	}
	if len(requested) > maxInspectFiles {
		return nil, apperrors.NewInvalidParameter("paths", fmt.Sprintf("at most %d paths per request", maxInspectFiles))
	}

	acq, err := e.cache.Acquire(ctx, src.identity())
	if err != nil {
		return nil, err
	}

	out := make([]FileContent, 0, len(requested))
	for _, rel := range requested {
		out = append(out, readWorkspaceFile(acq.Path, rel))
	}
	return out, nil
}

func readWorkspaceFile(root, rel string) FileContent {
	fc := FileContent{Path: rel}

	full := paths.JoinWorkspacePath(root, rel)
	if !paths.IsWithinRoot(full, root) {
		fc.Error = "path is outside the repository"
		return fc
	}

	info, err := os.Stat(full)
	if err != nil {
		fc.Error = "file not found"
		return fc
	}
	if info.IsDir() {
		fc.Error = "path is a directory"
		return fc
	}
	fc.Size = info.Size()

	file, err := os.Open(full)
	if err != nil {
		fc.Error = err.Error()
		return fc
	}
	defer file.Close()

	limit := int64(maxInspectBytes)
	buf := make([]byte, min64(info.Size(), limit))
	n, err := file.Read(buf)
	if err != nil && n == 0 && info.Size() > 0 {
		fc.Error = err.Error()
		return fc
	}
	buf = buf[:n]

	if bytes.IndexByte(buf, 0) >= 0 {
		fc.Error = "binary file"
		return fc
	}
	fc.Content = string(buf)
	fc.Truncated = info.Size() > limit
	return fc
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// ListBranches returns the branches known to the source's remote, refreshed
// by the acquisition fetch.
func (e *Engine) ListBranches(ctx context.Context, src Source) ([]string, error) {
	repo, err := e.openAcquired(ctx, src)
	if err != nil {
		return nil, err
	}
	branches, err := repo.Branches()
	if err != nil {
		return nil, apperrors.NewInternal("cannot list branches", err)
	}
	return branches, nil
}

// Comparison is a unified diff between two revisions.
type Comparison struct {
	Base   string `json:"base"`
	Target string `json:"target"`
	Patch  string `json:"patch"`
}

// CompareRevisions diffs base against target. Empty revisions default to the
// previous commit and HEAD.
func (e *Engine) CompareRevisions(ctx context.Context, src Source, base, target, pathFilter string) (*Comparison, error) {
	if target == "" {
		target = "HEAD"
	}
	if base == "" {
		base = target + "~1"
	}

	repo, err := e.openAcquired(ctx, src)
	if err != nil {
		return nil, err
	}
	patch, err := repo.DiffPatch(base, target, pathFilter)
	if err != nil {
		return nil, apperrors.New(apperrors.NotFound, fmt.Sprintf("cannot diff %s against %s", base, target), err)
	}
	return &Comparison{Base: base, Target: target, Patch: patch}, nil
}

// CommitHistory lists commits reachable from revision, newest first.
func (e *Engine) CommitHistory(ctx context.Context, src Source, revision string, limit int) ([]gitops.Commit, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxHistoryCommits {
		limit = maxHistoryCommits
	}

	repo, err := e.openAcquired(ctx, src)
	if err != nil {
		return nil, err
	}
	commits, err := repo.Commits(revision, limit)
	if err != nil {
		return nil, apperrors.New(apperrors.NotFound, fmt.Sprintf("cannot read history at %q", revision), err)
	}
	return commits, nil
}

func (e *Engine) openAcquired(ctx context.Context, src Source) (*gitops.Repo, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	acq, err := e.cache.Acquire(ctx, src.identity())
	if err != nil {
		return nil, err
	}
	repo, err := e.git.Open(acq.Path)
	if err != nil {
		return nil, apperrors.NewInternal("cannot open cached repository", err)
	}
	return repo, nil
}
