package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigDir(t *testing.T) {
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if !strings.HasSuffix(dir, ConfigDirName) {
		t.Errorf("ConfigDir() = %q, want suffix %q", dir, ConfigDirName)
	}

	file, err := ConfigFile()
	if err != nil {
		t.Fatalf("ConfigFile() error = %v", err)
	}
	if filepath.Dir(file) != dir {
		t.Errorf("ConfigFile() dir = %q, want %q", filepath.Dir(file), dir)
	}
	if filepath.Base(file) != "config.json" {
		t.Errorf("ConfigFile() base = %q, want config.json", filepath.Base(file))
	}
}

func TestDefaultHistoryPath(t *testing.T) {
	p, err := DefaultHistoryPath()
	if err != nil {
		t.Fatalf("DefaultHistoryPath() error = %v", err)
	}
	if filepath.Base(p) != "history.db" {
		t.Errorf("DefaultHistoryPath() = %q, want history.db base", p)
	}
}

func TestDefaultCacheRoot(t *testing.T) {
	root := DefaultCacheRoot()
	if !strings.Contains(root, "panopticon") {
		t.Errorf("DefaultCacheRoot() = %q, want to contain panopticon", root)
	}
}

func TestEnsureDir(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "a", "b", "c")

	if err := EnsureDir(target); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("Stat after EnsureDir: %v", err)
	}
	if !info.IsDir() {
		t.Error("EnsureDir target is not a directory")
	}

	// Idempotent
	if err := EnsureDir(target); err != nil {
		t.Errorf("EnsureDir() second call error = %v", err)
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "src", "main.go")
	if err := os.MkdirAll(filepath.Dir(sub), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sub, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(sub, root)
	if err != nil {
		t.Fatalf("CanonicalizePath() error = %v", err)
	}
	if got != "src/main.go" {
		t.Errorf("CanonicalizePath() = %q, want src/main.go", got)
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"inside", filepath.Join(root, "README.md"), true},
		{"nested inside", filepath.Join(root, "a", "b", "c.txt"), true},
		{"root itself", root, true},
		{"parent escape", filepath.Join(root, ".."), false},
		{"traversal escape", filepath.Join(root, "..", "other"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinRoot(tt.path, root); got != tt.want {
				t.Errorf("IsWithinRoot(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestJoinWorkspacePath(t *testing.T) {
	got := JoinWorkspacePath("/work/slot", "src/app/main.py")
	want := filepath.Join("/work/slot", "src", "app", "main.py")
	if got != want {
		t.Errorf("JoinWorkspacePath() = %q, want %q", got, want)
	}

	// Backslashes are treated as separators, not literals
	got = JoinWorkspacePath("/work/slot", "src\\app\\main.py")
	if got != want {
		t.Errorf("JoinWorkspacePath(backslash) = %q, want %q", got, want)
	}
}
