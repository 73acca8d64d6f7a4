package language

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"panopticon/internal/logging"
)

// markerWindow is how much of a file's head is searched for marker tokens.
const markerWindow = 1024

// vcsDirs are version-control metadata directories excluded from the walk.
var vcsDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// Detector scores the languages present in a workspace directory.
type Detector struct {
	maxFileSize int64
	logger      *logging.Logger
}

// NewDetector creates a detector. Files larger than maxFileSize bytes are
// skipped to bound cost; a non-positive value applies the 1 MB default.
func NewDetector(maxFileSize int64, logger *logging.Logger) *Detector {
	if maxFileSize <= 0 {
		maxFileSize = 1000000
	}
	return &Detector{
		maxFileSize: maxFileSize,
		logger:      logger.Component("language"),
	}
}

// Detect walks dir and returns a confidence per detected language:
// matched-file-count divided by total matched files, so confidences sum to 1
// when anything matches. An empty map means no supported language, which is
// a terminal condition for the caller, not an error. Only a failure to walk
// the root itself is an error.
func (d *Detector) Detect(dir string) (map[Language]float64, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("workspace not readable: %w", err)
	}

	counts := make(map[Language]int)
	total := 0

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			return nil
		}
		if entry.IsDir() {
			if vcsDirs[entry.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		lang, ok := byExtension[filepath.Ext(entry.Name())]
		if !ok {
			return nil
		}

		info, err := entry.Info()
		if err != nil || info.Size() > d.maxFileSize {
			return nil
		}

		if d.hasMarker(path, lang) {
			counts[lang]++
			total++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking workspace: %w", err)
	}

	confidences := make(map[Language]float64, len(counts))
	if total == 0 {
		return confidences, nil
	}
	for lang, count := range counts {
		confidences[lang] = float64(count) / float64(total)
	}

	d.logger.Debug("Language detection complete", map[string]interface{}{
		"dir":       dir,
		"files":     total,
		"languages": len(confidences),
	})
	return confidences, nil
}

// hasMarker reports whether the head of the file contains any marker token
// registered for lang.
func (d *Detector) hasMarker(path string, lang Language) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, markerWindow)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false
	}
	head = head[:n]

	for _, marker := range profiles[lang].markers {
		if bytes.Contains(head, marker) {
			return true
		}
	}
	return false
}
