// Package history persists analysis runs in a local SQLite database. Reports
// are stored as compressed blobs; listings never decompress them.
package history

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"panopticon/internal/compression"
	apperrors "panopticon/internal/errors"
	"panopticon/internal/logging"
	"panopticon/internal/paths"
	"panopticon/internal/report"
)

// Entry is one recorded analysis run. Location is stored redacted; credentials
// never reach the database.
type Entry struct {
	ID            string             `json:"id"`
	Location      string             `json:"location"`
	Branch        string             `json:"branch,omitempty"`
	Status        string             `json:"status"`
	Languages     map[string]float64 `json:"languages,omitempty"`
	FindingsTotal int                `json:"findingsTotal"`
	Stale         bool               `json:"stale,omitempty"`
	StartedAt     time.Time          `json:"startedAt"`
	DurationMs    int64              `json:"durationMs"`
	Report        *report.Report     `json:"report,omitempty"`
}

// Store is the run history database.
type Store struct {
	conn    *sql.DB
	logger  *logging.Logger
	maxRuns int
}

// Open opens or creates the history database at path. maxRuns bounds retained
// runs; zero or negative keeps everything.
func Open(path string, maxRuns int, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := paths.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, apperrors.NewStorageError("open", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewStorageError("open", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, apperrors.NewStorageError("open", err)
		}
	}

	store := &Store{conn: conn, logger: logger.Component("history"), maxRuns: maxRuns}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, apperrors.NewStorageError("open", err)
	}
	return store, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			location TEXT NOT NULL,
			branch TEXT,
			status TEXT NOT NULL,
			languages TEXT,
			findings_total INTEGER NOT NULL DEFAULT 0,
			stale INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			report BLOB
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_location ON runs(location);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Record inserts a run and prunes history beyond the retention bound.
func (s *Store) Record(entry Entry) error {
	if entry.ID == "" {
		return apperrors.NewInvalidParameter("id", "run id is required")
	}

	languages, err := json.Marshal(entry.Languages)
	if err != nil {
		return apperrors.NewStorageError("record", err)
	}
	blob, err := compressReport(entry.Report)
	if err != nil {
		return apperrors.NewStorageError("record", err)
	}

	query := `
		INSERT INTO runs (id, location, branch, status, languages, findings_total, stale, started_at, duration_ms, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.conn.Exec(query,
		entry.ID,
		entry.Location,
		nullString(entry.Branch),
		entry.Status,
		string(languages),
		entry.FindingsTotal,
		boolToInt(entry.Stale),
		entry.StartedAt.UTC().Format(time.RFC3339Nano),
		entry.DurationMs,
		blob,
	)
	if err != nil {
		return apperrors.NewStorageError("record", err)
	}

	s.logger.Debug("Recorded run", map[string]interface{}{
		"runId":    entry.ID,
		"location": entry.Location,
	})
	return s.prune()
}

func (s *Store) prune() error {
	if s.maxRuns <= 0 {
		return nil
	}
	query := `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
		)
	`
	if _, err := s.conn.Exec(query, s.maxRuns); err != nil {
		return apperrors.NewStorageError("prune", err)
	}
	return nil
}

// Recent lists runs newest first, without report payloads.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, location, branch, status, languages, findings_total, stale, started_at, duration_ms
		FROM runs ORDER BY started_at DESC, id LIMIT ?
	`
	rows, err := s.conn.Query(query, limit)
	if err != nil {
		return nil, apperrors.NewStorageError("list", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("list", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("list", err)
	}
	return out, nil
}

// Get loads one run with its full report.
func (s *Store) Get(id string) (*Entry, error) {
	query := `
		SELECT id, location, branch, status, languages, findings_total, stale, started_at, duration_ms
		FROM runs WHERE id = ?
	`
	entry, err := scanEntry(s.conn.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("run " + id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get", err)
	}

	var blob []byte
	if err := s.conn.QueryRow(`SELECT report FROM runs WHERE id = ?`, id).Scan(&blob); err != nil {
		return nil, apperrors.NewStorageError("get", err)
	}
	rep, err := decompressReport(blob)
	if err != nil {
		return nil, apperrors.NewStorageError("get", err)
	}
	entry.Report = rep
	return &entry, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry     Entry
		branch    sql.NullString
		languages sql.NullString
		stale     int
		startedAt string
	)
	err := row.Scan(
		&entry.ID,
		&entry.Location,
		&branch,
		&entry.Status,
		&languages,
		&entry.FindingsTotal,
		&stale,
		&startedAt,
		&entry.DurationMs,
	)
	if err != nil {
		return Entry{}, err
	}
	entry.Branch = branch.String
	entry.Stale = stale != 0
	if languages.String != "" {
		if err := json.Unmarshal([]byte(languages.String), &entry.Languages); err != nil {
			return Entry{}, err
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		entry.StartedAt = t
	}
	return entry, nil
}

func compressReport(rep *report.Report) ([]byte, error) {
	if rep == nil {
		return nil, nil
	}
	raw, err := json.Marshal(rep)
	if err != nil {
		return nil, err
	}
	return compression.Compress(raw), nil
}

func decompressReport(blob []byte) (*report.Report, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	raw, err := compression.Decompress(blob)
	if err != nil {
		return nil, err
	}
	var rep report.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
