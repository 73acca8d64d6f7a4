// Package paths resolves panopticon's on-disk locations and provides
// workspace-relative path containment checks used by file read-back.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDirName is the directory under the user home holding config and state.
const ConfigDirName = ".panopticon"

// ConfigDir returns the panopticon configuration directory, creating nothing.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDirName), nil
}

// ConfigFile returns the path of the JSON configuration file.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultHistoryPath returns the default location of the run history database.
func DefaultHistoryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// DefaultCacheRoot returns the directory under which workspace slots live
// when the configuration does not override it.
func DefaultCacheRoot() string {
	return filepath.Join(os.TempDir(), "panopticon")
}

// EnsureDir creates dir (and parents) if absent.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// CanonicalizePath converts an absolute path to a workspace-relative canonical
// path: symlinks resolved, relative to root, forward slashes.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// If the file doesn't exist yet, use the path as-is
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRoot checks if a path stays inside root after canonicalization.
// Read-back requests escaping the workspace are rejected with this.
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// JoinWorkspacePath joins a workspace root with a slash-separated relative path.
func JoinWorkspacePath(root string, relative string) string {
	normalized := strings.ReplaceAll(relative, "\\", "/")
	parts := strings.Split(normalized, "/")
	return filepath.Join(append([]string{root}, parts...)...)
}
