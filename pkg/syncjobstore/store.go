// Package syncjobstore is an optional, write-only audit trail of
// synchronization job lifecycle transitions. It exists purely for
// after-the-fact observability ("which jobs did this instance open, and
// how did they end"); it is never read back to resume or re-derive a
// job's state, so it does not provide persistent resumability across
// process restarts.
package syncjobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver
)

// Open connects to a Postgres audit database at dsn.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("syncjobstore: open: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS sync_job_transitions (
	id BIGSERIAL PRIMARY KEY,
	job_id TEXT NOT NULL,
	instance_id TEXT NOT NULL,
	state TEXT NOT NULL,
	reason TEXT,
	occurred_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_job_transitions_job ON sync_job_transitions(job_id);
`

// Store appends job lifecycle transitions to Postgres via lib/pq.
type Store struct {
	db *sql.DB
}

// New wraps an already-opened *sql.DB (driver "postgres").
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the audit table if absent.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("syncjobstore: init schema: %w", err)
	}
	return nil
}

// RecordTransition appends one state transition and returns any database
// error. The orchestrator discards that error rather than failing the
// job: the audit trail is best-effort observability, not part of the
// job's correctness.
func (s *Store) RecordTransition(ctx context.Context, jobID, instanceID, state, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_job_transitions (job_id, instance_id, state, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, jobID, instanceID, state, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("syncjobstore: record transition: %w", err)
	}
	return nil
}
