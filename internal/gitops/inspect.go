package gitops

import (
	"fmt"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Commit is one entry of a repository log.
type Commit struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Email   string    `json:"email"`
	When    time.Time `json:"when"`
	Message string    `json:"message"`
}

// Branches lists branch names known from the remote, sorted, without the
// remote prefix. The symbolic HEAD entry is skipped.
func (r *Repo) Branches() ([]string, error) {
	refs, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}

	prefix := "refs/remotes/" + git.DefaultRemoteName + "/"
	var names []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		name := string(ref.Name())
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		short := strings.TrimPrefix(name, prefix)
		if short == "HEAD" {
			return nil
		}
		names = append(names, short)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// Commits returns up to limit commits reachable from revision, newest first.
// An empty revision means the current HEAD. Revisions may be branch names,
// remote-tracking names, or hashes.
func (r *Repo) Commits(revision string, limit int) ([]Commit, error) {
	hash, err := r.resolve(revision)
	if err != nil {
		return nil, err
	}

	iter, err := r.repo.Log(&git.LogOptions{From: hash})
	if err != nil {
		return nil, fmt.Errorf("log failed: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			When:    c.Author.When,
			Message: strings.TrimRight(c.Message, "\n"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commits, nil
}

// DiffPatch produces the unified patch text between two revisions, optionally
// restricted to paths under pathFilter.
func (r *Repo) DiffPatch(base, target, pathFilter string) (string, error) {
	baseCommit, err := r.commitAt(base)
	if err != nil {
		return "", err
	}
	targetCommit, err := r.commitAt(target)
	if err != nil {
		return "", err
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return "", fmt.Errorf("tree of %s: %w", base, err)
	}
	targetTree, err := targetCommit.Tree()
	if err != nil {
		return "", fmt.Errorf("tree of %s: %w", target, err)
	}

	changes, err := object.DiffTree(baseTree, targetTree)
	if err != nil {
		return "", fmt.Errorf("diff failed: %w", err)
	}

	if pathFilter != "" {
		var filtered object.Changes
		for _, ch := range changes {
			name := ch.To.Name
			if name == "" {
				name = ch.From.Name
			}
			if name == pathFilter || strings.HasPrefix(name, strings.TrimSuffix(pathFilter, "/")+"/") {
				filtered = append(filtered, ch)
			}
		}
		changes = filtered
	}

	patch, err := changes.Patch()
	if err != nil {
		return "", fmt.Errorf("rendering patch: %w", err)
	}
	return patch.String(), nil
}

func (r *Repo) commitAt(revision string) (*object.Commit, error) {
	hash, err := r.resolve(revision)
	if err != nil {
		return nil, err
	}
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", revision, err)
	}
	return commit, nil
}

// resolve turns a revision string into a commit hash, trying the remote
// namespace when the bare name is unknown locally.
func (r *Repo) resolve(revision string) (plumbing.Hash, error) {
	if revision == "" {
		head, err := r.repo.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("resolving HEAD: %w", err)
		}
		return head.Hash(), nil
	}

	if h, err := r.repo.ResolveRevision(plumbing.Revision(revision)); err == nil {
		return *h, nil
	}

	remoteRev := plumbing.Revision(git.DefaultRemoteName + "/" + revision)
	if h, err := r.repo.ResolveRevision(remoteRev); err == nil {
		return *h, nil
	}

	return plumbing.ZeroHash, fmt.Errorf("revision %q not found", revision)
}
