package workspace

import (
	"context"

	"panopticon/internal/gitops"
)

// VCS is the minimal version-control surface the cache depends on.
type VCS interface {
	// Clone materializes address into dir, checking out branch when given.
	Clone(ctx context.Context, address, dir, branch string) (Repo, error)
	// Open opens an existing slot directory, failing when it is not a
	// usable repository.
	Open(dir string) (Repo, error)
}

// Repo is an open slot repository.
type Repo interface {
	// RemoteURL reports the address the repository was cloned from.
	RemoteURL() (string, error)
	// Fetch updates remote-tracking state.
	Fetch(ctx context.Context) error
	// CheckoutBranch switches the working tree to branch.
	CheckoutBranch(branch string) error
}

// gitVCS adapts the gitops client to the cache surface. Credentials travel
// inside the authenticated address, so no separate auth config is attached.
type gitVCS struct {
	client *gitops.Client
}

// NewGitVCS wraps a gitops client as the cache's version-control subsystem.
func NewGitVCS(client *gitops.Client) VCS {
	return &gitVCS{client: client}
}

func (g *gitVCS) Clone(ctx context.Context, address, dir, branch string) (Repo, error) {
	repo, err := g.client.Clone(ctx, address, dir, branch, gitops.AuthConfig{})
	if err != nil {
		return nil, err
	}
	return gitRepo{repo}, nil
}

func (g *gitVCS) Open(dir string) (Repo, error) {
	repo, err := g.client.Open(dir)
	if err != nil {
		return nil, err
	}
	return gitRepo{repo}, nil
}

type gitRepo struct {
	*gitops.Repo
}

func (r gitRepo) Fetch(ctx context.Context) error {
	return r.Repo.Fetch(ctx, gitops.AuthConfig{})
}
