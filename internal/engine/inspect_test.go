package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"panopticon/internal/analyzer"
	apperrors "panopticon/internal/errors"
	"panopticon/internal/gitops"
	"panopticon/internal/testutil"
	"panopticon/internal/treeview"
)

// clonedFixture builds a source repository with two commits and a feature
// branch, clones it the way a cache slot is cloned, and returns the clone.
func clonedFixture(t *testing.T) string {
	t.Helper()
	src := testutil.InitRepo(t, map[string]string{"main.go": "package main\n\nfunc main() {}\n"})
	src.Commit(t, map[string]string{"handler.go": "package main\n\nfunc handle() {}\n"}, "add handler")
	src.Branch(t, "feature")

	cloneDir := filepath.Join(t.TempDir(), "slot")
	client := gitops.NewClient(nil)
	if _, err := client.Clone(context.Background(), src.Dir, cloneDir, "", gitops.AuthConfig{}); err != nil {
		t.Fatalf("clone fixture: %v", err)
	}
	return cloneDir
}

func gitSource() Source {
	return Source{Location: "https://gitlab.example.com/group/project.git"}
}

func TestDescribeStructure(t *testing.T) {
	fixture := testutil.WriteTree(t, map[string]string{
		"go.mod":           "module example.com/app\n\ngo 1.24\n",
		"main.go":          "package main\n",
		"internal/x/x.go":  "package x\n",
		".git/HEAD":        "ref: refs/heads/main\n",
		".gitlab-ci.yml":   "stages: [test]\n",
		"docs/overview.md": "# overview\n",
	})
	e := newTestEngine(t, &fakeCache{path: fixture}, analyzer.DefaultRegistry())

	structure, err := e.DescribeStructure(context.Background(), gitSource(), treeview.Options{})
	if err != nil {
		t.Fatalf("DescribeStructure: %v", err)
	}

	for _, name := range []string{"main.go", "internal", "docs"} {
		if !strings.Contains(structure.Tree.Rendered, name) {
			t.Errorf("tree missing %q:\n%s", name, structure.Tree.Rendered)
		}
	}
	if strings.Contains(structure.Tree.Rendered, "HEAD") {
		t.Errorf("tree leaks VCS metadata:\n%s", structure.Tree.Rendered)
	}
	if len(structure.Manifests) != 1 || structure.Manifests[0].Name != "example.com/app" {
		t.Errorf("manifests = %+v", structure.Manifests)
	}
}

func TestInspectFiles(t *testing.T) {
	fixture := testutil.WriteTree(t, map[string]string{
		"main.go":      "package main\n",
		"docs/notes.md": "# notes\n",
	})
	if err := os.WriteFile(filepath.Join(fixture, "blob.bin"), []byte{0x7f, 0x00, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, &fakeCache{path: fixture}, analyzer.DefaultRegistry())

	files, err := e.InspectFiles(context.Background(), gitSource(), []string{
		"main.go",
		"docs/notes.md",
		"missing.go",
		"../outside.txt",
		"docs",
		"blob.bin",
	})
	if err != nil {
		t.Fatalf("InspectFiles: %v", err)
	}
	if len(files) != 6 {
		t.Fatalf("got %d results, want 6", len(files))
	}

	byPath := map[string]FileContent{}
	for _, fc := range files {
		byPath[fc.Path] = fc
	}

	if fc := byPath["main.go"]; fc.Content != "package main\n" || fc.Error != "" {
		t.Errorf("main.go = %+v", fc)
	}
	if fc := byPath["docs/notes.md"]; fc.Content != "# notes\n" {
		t.Errorf("docs/notes.md = %+v", fc)
	}
	if fc := byPath["missing.go"]; fc.Error == "" || fc.Content != "" {
		t.Errorf("missing.go = %+v", fc)
	}
	if fc := byPath["../outside.txt"]; !strings.Contains(fc.Error, "outside") {
		t.Errorf("escape attempt = %+v", fc)
	}
	if fc := byPath["docs"]; !strings.Contains(fc.Error, "directory") {
		t.Errorf("directory read = %+v", fc)
	}
	if fc := byPath["blob.bin"]; !strings.Contains(fc.Error, "binary") {
		t.Errorf("binary read = %+v", fc)
	}
}

func TestInspectFilesTruncatesLargeFiles(t *testing.T) {
	fixture := t.TempDir()
	big := strings.Repeat("a", maxInspectBytes+100)
	if err := os.WriteFile(filepath.Join(fixture, "big.txt"), []byte(big), 0o644); err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, &fakeCache{path: fixture}, analyzer.DefaultRegistry())

	files, err := e.InspectFiles(context.Background(), gitSource(), []string{"big.txt"})
	if err != nil {
		t.Fatal(err)
	}
	fc := files[0]
	if !fc.Truncated || len(fc.Content) != maxInspectBytes {
		t.Errorf("big.txt = truncated %v, %d bytes", fc.Truncated, len(fc.Content))
	}
	if fc.Size != int64(len(big)) {
		t.Errorf("Size = %d, want %d", fc.Size, len(big))
	}
}

func TestInspectFilesValidation(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: t.TempDir()}, analyzer.DefaultRegistry())

	if _, err := e.InspectFiles(context.Background(), gitSource(), nil); !apperrors.HasCode(err, apperrors.InvalidParameter) {
		t.Errorf("empty paths err = %v", err)
	}

	tooMany := make([]string, maxInspectFiles+1)
	for i := range tooMany {
		tooMany[i] = "f.go"
	}
	if _, err := e.InspectFiles(context.Background(), gitSource(), tooMany); !apperrors.HasCode(err, apperrors.InvalidParameter) {
		t.Errorf("too many paths err = %v", err)
	}
}

func TestListBranches(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: clonedFixture(t)}, analyzer.DefaultRegistry())

	branches, err := e.ListBranches(context.Background(), gitSource())
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	found := map[string]bool{}
	for _, b := range branches {
		found[b] = true
	}
	if !found["feature"] {
		t.Errorf("branches = %v, want feature included", branches)
	}
}

func TestCompareRevisionsDefaults(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: clonedFixture(t)}, analyzer.DefaultRegistry())

	cmp, err := e.CompareRevisions(context.Background(), gitSource(), "", "", "")
	if err != nil {
		t.Fatalf("CompareRevisions: %v", err)
	}
	if cmp.Base != "HEAD~1" || cmp.Target != "HEAD" {
		t.Errorf("defaults = %s..%s", cmp.Base, cmp.Target)
	}
	if !strings.Contains(cmp.Patch, "handler.go") {
		t.Errorf("patch does not mention the changed file:\n%s", cmp.Patch)
	}
}

func TestCompareRevisionsUnknown(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: clonedFixture(t)}, analyzer.DefaultRegistry())

	_, err := e.CompareRevisions(context.Background(), gitSource(), "no-such-rev", "HEAD", "")
	if !apperrors.HasCode(err, apperrors.NotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestCommitHistory(t *testing.T) {
	e := newTestEngine(t, &fakeCache{path: clonedFixture(t)}, analyzer.DefaultRegistry())

	commits, err := e.CommitHistory(context.Background(), gitSource(), "", 0)
	if err != nil {
		t.Fatalf("CommitHistory: %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}
	if commits[0].Message != "add handler" || commits[1].Message != "initial commit" {
		t.Errorf("order = %q, %q", commits[0].Message, commits[1].Message)
	}

	one, err := e.CommitHistory(context.Background(), gitSource(), "", 1)
	if err != nil || len(one) != 1 {
		t.Errorf("limited history = %v, %v", one, err)
	}
}
