// Package history keeps a durable log of fill outcomes in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS fills (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id      TEXT    NOT NULL DEFAULT '',
	file        TEXT    NOT NULL,
	output      TEXT    NOT NULL DEFAULT '',
	status      TEXT    NOT NULL,
	keys        TEXT    NOT NULL DEFAULT '[]',
	error       TEXT    NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS fills_created_at ON fills (created_at);
`

// Entry is one recorded document outcome.
type Entry struct {
	ID         int64     `json:"id"`
	JobID      string    `json:"job_id,omitempty"`
	File       string    `json:"file"`
	Output     string    `json:"output,omitempty"`
	Status     string    `json:"status"`
	Keys       []string  `json:"keys"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is a SQLite-backed history log. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends e. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	keys := e.Keys
	if keys == nil {
		keys = []string{}
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode keys: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fills (job_id, file, output, status, keys, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobID, e.File, e.Output, e.Status, string(keysJSON), e.Error, e.DurationMs,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, file, output, status, keys, error, duration_ms, created_at
		 FROM fills ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var keysJSON, created string
		if err := rows.Scan(&e.ID, &e.JobID, &e.File, &e.Output, &e.Status, &keysJSON, &e.Error, &e.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(keysJSON), &e.Keys); err != nil {
			return nil, fmt.Errorf("decode keys of entry %d: %w", e.ID, err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("decode time of entry %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
