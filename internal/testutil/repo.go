// Package testutil builds throwaway git repositories and file trees for
// tests. Commits use a fixed author so fixtures behave the same everywhere.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a git repository rooted in a temp directory.
type Repo struct {
	Dir string
	Git *git.Repository
}

// InitRepo creates a repository under t.TempDir and commits files as
// "initial commit".
func InitRepo(t *testing.T, files map[string]string) *Repo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	r := &Repo{Dir: dir, Git: repo}
	r.Commit(t, files, "initial commit")
	return r
}

// Commit writes files into the worktree, stages them, and commits. It
// returns the commit hash.
func (r *Repo) Commit(t *testing.T, files map[string]string, message string) string {
	t.Helper()
	wt, err := r.Git.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		full := filepath.Join(r.Dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(files[name]), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

// Branch creates a branch at HEAD without switching to it.
func (r *Repo) Branch(t *testing.T, name string) {
	t.Helper()
	head, err := r.Git.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
	if err := r.Git.Storer.SetReference(ref); err != nil {
		t.Fatalf("SetReference %s: %v", name, err)
	}
}

// Checkout switches to an existing branch.
func (r *Repo) Checkout(t *testing.T, name string) {
	t.Helper()
	r.checkout(t, name, false)
}

// CheckoutNew creates a branch at HEAD and switches to it.
func (r *Repo) CheckoutNew(t *testing.T, name string) {
	t.Helper()
	r.checkout(t, name, true)
}

func (r *Repo) checkout(t *testing.T, name string, create bool) {
	t.Helper()
	wt, err := r.Git.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: create,
	})
	if err != nil {
		t.Fatalf("Checkout %s: %v", name, err)
	}
}

// DefaultBranch returns the name of the branch HEAD points at.
func (r *Repo) DefaultBranch(t *testing.T) string {
	t.Helper()
	head, err := r.Git.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	return head.Name().Short()
}

// WriteTree writes a plain directory tree under t.TempDir without version
// control and returns its root.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}
