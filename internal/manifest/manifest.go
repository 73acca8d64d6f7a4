// Package manifest discovers and parses dependency manifests (go.mod,
// package.json, pyproject.toml, Cargo.toml, pom.xml, pubspec.yaml) inside a
// checked-out repository. Results are informational; a broken manifest is
// reported in place, never fatal.
package manifest

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind identifies the ecosystem a manifest belongs to.
type Kind string

const (
	KindGoModule      Kind = "go-module"
	KindNodePackage   Kind = "node-package"
	KindPythonProject Kind = "python-project"
	KindCargoCrate    Kind = "cargo-crate"
	KindMavenProject  Kind = "maven-project"
	KindDartPackage   Kind = "dart-package"
)

// Dependency is one declared requirement.
type Dependency struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint,omitempty"`
}

// Manifest is one parsed dependency manifest. Path is relative to the
// repository root.
type Manifest struct {
	Kind         Kind         `json:"kind"`
	Path         string       `json:"path"`
	Name         string       `json:"name,omitempty"`
	Version      string       `json:"version,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	Error        string       `json:"error,omitempty"`
}

type parser func(path string, data []byte) (*Manifest, error)

var parsersByFile = map[string]struct {
	kind  Kind
	parse parser
}{
	"go.mod":         {KindGoModule, parseGoMod},
	"package.json":   {KindNodePackage, parsePackageJSON},
	"pyproject.toml": {KindPythonProject, parsePyProject},
	"Cargo.toml":     {KindCargoCrate, parseCargo},
	"pom.xml":        {KindMavenProject, parsePom},
	"pubspec.yaml":   {KindDartPackage, parsePubspec},
}

// Directories whose manifests describe third-party code, not the project.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
}

// Discover walks root and parses every recognized manifest. Entries come back
// sorted by path.
func Discover(root string) ([]Manifest, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	var out []Manifest
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if entry.IsDir() {
			if skipDirs[entry.Name()] && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		reg, ok := parsersByFile[entry.Name()]
		if !ok {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			out = append(out, Manifest{Kind: reg.kind, Path: rel, Error: readErr.Error()})
			return nil
		}
		m, parseErr := reg.parse(path, data)
		if parseErr != nil {
			out = append(out, Manifest{Kind: reg.kind, Path: rel, Error: parseErr.Error()})
			return nil
		}
		m.Kind = reg.kind
		m.Path = rel
		sortDependencies(m.Dependencies)
		out = append(out, *m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func sortDependencies(deps []Dependency) {
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
}

// splitRequirement separates a PEP 508 style requirement ("requests>=2.28")
// into name and constraint.
func splitRequirement(req string) Dependency {
	req = strings.TrimSpace(req)
	if idx := strings.IndexAny(req, " <>=!~;(["); idx >= 0 {
		return Dependency{
			Name:       strings.TrimSpace(req[:idx]),
			Constraint: strings.TrimSpace(req[idx:]),
		}
	}
	return Dependency{Name: req}
}
