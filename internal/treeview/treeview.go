// Package treeview renders a directory layout as an indented tree. Output is
// bounded in depth and entry count so huge repositories cannot flood a
// response.
package treeview

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultMaxDepth   = 4
	DefaultMaxEntries = 400
)

// Options bound the rendered tree. Zero values take the defaults.
type Options struct {
	MaxDepth   int
	MaxEntries int
}

// Tree is a rendered directory layout.
type Tree struct {
	Rendered  string `json:"rendered"`
	Entries   int    `json:"entries"`
	Truncated bool   `json:"truncated"`
}

// Render walks root and produces the tree text. VCS bookkeeping entries
// (anything named .git*) are skipped.
func Render(root string, opts Options) (*Tree, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("cannot render %s: %w", root, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("cannot render %s: not a directory", root)
	}

	r := &renderer{remaining: opts.MaxEntries, maxDepth: opts.MaxDepth}
	r.walk(root, "", 1)
	return &Tree{
		Rendered:  r.b.String(),
		Entries:   opts.MaxEntries - r.remaining,
		Truncated: r.truncated,
	}, nil
}

type renderer struct {
	b         strings.Builder
	remaining int
	maxDepth  int
	truncated bool
}

func (r *renderer) walk(dir, prefix string, depth int) {
	entries := listVisible(dir)
	for i, entry := range entries {
		if r.remaining <= 0 {
			r.truncated = true
			r.b.WriteString(prefix + "...\n")
			return
		}
		isLast := i == len(entries)-1
		connector, continuation := "├── ", "│   "
		if isLast {
			connector, continuation = "└── ", "    "
		}

		r.b.WriteString(prefix + connector + entry.Name() + "\n")
		r.remaining--

		if !entry.IsDir() {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if depth >= r.maxDepth {
			if len(listVisible(child)) > 0 {
				r.b.WriteString(prefix + continuation + "...\n")
				r.truncated = true
			}
			continue
		}
		r.walk(child, prefix+continuation, depth+1)
	}
}

// listVisible returns dir's entries minus VCS bookkeeping. os.ReadDir sorts
// by name; unreadable directories render as empty.
func listVisible(dir string) []os.DirEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	out := entries[:0]
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".git") {
			continue
		}
		out = append(out, entry)
	}
	return out
}
