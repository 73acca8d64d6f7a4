// Package gitops wraps go-git behind the minimal version-control surface the
// workspace cache depends on, plus the read-only repository operations the
// engine exposes (branches, log, diff).
package gitops

import (
	"context"
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"panopticon/internal/logging"
)

// Client performs git operations. Safe for concurrent use; all state lives
// in the repositories it opens.
type Client struct {
	logger *logging.Logger
}

// NewClient creates a git client.
func NewClient(logger *logging.Logger) *Client {
	return &Client{logger: logger.Component("gitops")}
}

// Repo is an open repository handle.
type Repo struct {
	repo *git.Repository
	dir  string
}

// Dir returns the working tree directory of the handle.
func (r *Repo) Dir() string {
	return r.dir
}

// Clone materializes address into dir. A non-empty branch selects the branch
// to check out; otherwise the remote's default branch is used.
func (c *Client) Clone(ctx context.Context, address, dir, branch string, auth AuthConfig) (*Repo, error) {
	method, err := PrepareAuth(auth)
	if err != nil {
		return nil, err
	}

	opts := &git.CloneOptions{
		URL:  address,
		Auth: method,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	c.logger.Debug("Cloning repository", map[string]interface{}{
		"dir":    dir,
		"branch": branch,
	})

	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return nil, fmt.Errorf("clone failed: %w", err)
	}
	return &Repo{repo: repo, dir: dir}, nil
}

// Open opens an existing working tree. Returns an error when dir is not a
// repository (including partial clones missing their .git layout).
func (c *Client) Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}
	return &Repo{repo: repo, dir: dir}, nil
}

// RemoteURL returns the first URL of the origin remote, which is the address
// the repository was cloned from.
func (r *Repo) RemoteURL() (string, error) {
	remote, err := r.repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", fmt.Errorf("no origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}
	return urls[0], nil
}

// Fetch updates remote-tracking references. An already-up-to-date remote is
// success, not an error.
func (r *Repo) Fetch(ctx context.Context, auth AuthConfig) error {
	method, err := PrepareAuth(auth)
	if err != nil {
		return err
	}

	err = r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		Auth:       method,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch failed: %w", err)
	}
	return nil
}

// CheckoutBranch switches the working tree to branch. A branch known only to
// the remote gets a local branch created from its remote-tracking reference.
func (r *Repo) CheckoutBranch(branch string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree unavailable: %w", err)
	}

	local := plumbing.NewBranchReferenceName(branch)
	if _, err := r.repo.Reference(local, true); err == nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: local, Force: true}); err != nil {
			return fmt.Errorf("checkout %s failed: %w", branch, err)
		}
		return nil
	}

	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(git.DefaultRemoteName, branch), true)
	if err != nil {
		return fmt.Errorf("branch %s not found: %w", branch, err)
	}

	err = wt.Checkout(&git.CheckoutOptions{
		Hash:   remoteRef.Hash(),
		Branch: local,
		Create: true,
		Force:  true,
	})
	if err != nil {
		return fmt.Errorf("checkout %s failed: %w", branch, err)
	}
	return nil
}
