package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Custom errors for source operations
var (
	ErrSourceNotFound = errors.New("source not found")
)

// SourceStore keeps the sync status of each configured journal listing in
// SQLite, next to the articles table.
type SourceStore struct {
	db *sql.DB
}

// Source is one journal listing and the outcome of its last syncs.
type Source struct {
	Name            string     `json:"name"`
	Kind            string     `json:"kind"` // parser variant: jpm, jof, jds, feed
	URL             string     `json:"url"`
	Mode            string     `json:"mode"` // "static" or "browser"
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastFetchedAt   *time.Time `json:"last_fetched_at,omitempty"`
	LastSuccessAt   *time.Time `json:"last_success_at,omitempty"`
	FetchErrorCount int        `json:"fetch_error_count"`
	LastError       *string    `json:"last_error,omitempty"`
	ArticlesAdded   int        `json:"articles_added"` // total over all syncs
}

// NewSourceStore creates a new source store with the given database path.
func NewSourceStore(dbPath string) (*SourceStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SourceStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the sources table if it doesn't exist.
func (s *SourceStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		url TEXT NOT NULL,
		mode TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_fetched_at TEXT,
		last_success_at TEXT,
		fetch_error_count INTEGER DEFAULT 0,
		last_error TEXT,
		articles_added INTEGER DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SourceStore) Close() error {
	return s.db.Close()
}

// Register records a configured source. An existing source keeps its sync
// history; only its kind, URL and mode are refreshed.
func (s *SourceStore) Register(name, kind, url, mode string) (*Source, error) {
	now := time.Now()

	query := `
		INSERT INTO sources (name, kind, url, mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			kind = excluded.kind,
			url = excluded.url,
			mode = excluded.mode,
			updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(query, name, kind, url, mode, formatTime(&now), formatTime(&now))
	if err != nil {
		return nil, fmt.Errorf("failed to register source: %w", err)
	}

	return s.GetSource(name)
}

// GetSource retrieves a source by name.
func (s *SourceStore) GetSource(name string) (*Source, error) {
	row := s.db.QueryRow(selectSources+" WHERE name = ?", name)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query source: %w", err)
	}

	return source, nil
}

// ListSources lists every registered source by name.
func (s *SourceStore) ListSources() ([]Source, error) {
	rows, err := s.db.Query(selectSources + " ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *source)
	}

	return sources, rows.Err()
}

// RecordSuccess marks a completed sync that added the given number of
// articles, and resets the error counter.
func (s *SourceStore) RecordSuccess(name string, added int) error {
	now := time.Now()

	query := `
		UPDATE sources SET
			last_fetched_at = ?,
			last_success_at = ?,
			fetch_error_count = 0,
			last_error = NULL,
			articles_added = articles_added + ?,
			updated_at = ?
		WHERE name = ?
	`

	return s.update(query, formatTime(&now), formatTime(&now), added, formatTime(&now), name)
}

// RecordFailure marks a failed sync.
func (s *SourceStore) RecordFailure(name string, syncErr error) error {
	now := time.Now()
	msg := syncErr.Error()

	query := `
		UPDATE sources SET
			last_fetched_at = ?,
			fetch_error_count = fetch_error_count + 1,
			last_error = ?,
			updated_at = ?
		WHERE name = ?
	`

	return s.update(query, formatTime(&now), msg, formatTime(&now), name)
}

func (s *SourceStore) update(query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSourceNotFound
	}

	return nil
}

const selectSources = `
	SELECT name, kind, url, mode, created_at, updated_at,
	       last_fetched_at, last_success_at, fetch_error_count,
	       last_error, articles_added
	FROM sources
`

type scanner interface {
	Scan(dest ...any) error
}

// scanSource parses one row of selectSources into a Source.
func scanSource(row scanner) (*Source, error) {
	var source Source
	var createdAtStr, updatedAtStr string
	var lastFetchedAtStr, lastSuccessAtStr, lastError sql.NullString

	err := row.Scan(
		&source.Name, &source.Kind, &source.URL, &source.Mode,
		&createdAtStr, &updatedAtStr,
		&lastFetchedAtStr, &lastSuccessAtStr, &source.FetchErrorCount,
		&lastError, &source.ArticlesAdded,
	)
	if err != nil {
		return nil, err
	}

	source.CreatedAt = parseTime(createdAtStr)
	source.UpdatedAt = parseTime(updatedAtStr)

	if lastFetchedAtStr.Valid {
		t := parseTime(lastFetchedAtStr.String)
		source.LastFetchedAt = &t
	}
	if lastSuccessAtStr.Valid {
		t := parseTime(lastSuccessAtStr.String)
		source.LastSuccessAt = &t
	}
	if lastError.Valid {
		source.LastError = &lastError.String
	}

	return &source, nil
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	// Strip monotonic clock for consistent comparisons
	return t.Truncate(0)
}
