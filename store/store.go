// Package store keeps a small sqlite record of every job seen across
// runs, so repeated scrapes of the same search can tell new postings from
// ones already reported.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/use-agent/jobsift/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen_jobs (
	job_key    TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	company    TEXT NOT NULL DEFAULT '',
	location   TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	first_seen TEXT NOT NULL
);`

// Store wraps the seen-jobs database. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// RecordIfNew inserts the job unless its key was already seen.
// Returns true when the job was new.
func (s *Store) RecordIfNew(ctx context.Context, job models.EnrichedJob) (bool, error) {
	if job.JobKey == "" {
		return false, fmt.Errorf("store: job has no key")
	}
	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO seen_jobs(job_key, title, company, location, url, first_seen)
VALUES(?,?,?,?,?,?);`,
		job.JobKey,
		job.Title,
		job.Company,
		job.Location,
		job.URL,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("store: insert: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Seen reports whether a job key is already recorded.
func (s *Store) Seen(ctx context.Context, jobKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM seen_jobs WHERE job_key = ?;`, jobKey).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: query: %w", err)
	}
	return true, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
