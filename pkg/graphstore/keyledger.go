package graphstore

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteKeyLedger enforces the §3 invariant that "_key uniqueness is
// enforced at the point of storage" across the whole store, independent
// of which bucket or shard an entity/relationship lands in. Embedded,
// pure-Go sqlite (modernc.org/sqlite) is used rather than a cgo driver,
// matching the teacher's own choice for its embedded stores.
type SQLiteKeyLedger struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteKeyLedger opens (creating if absent) a ledger at path. Use
// ":memory:" for a per-invocation in-memory ledger — the common case,
// since persistent resumability across process restarts is out of scope.
func NewSQLiteKeyLedger(path string) (*SQLiteKeyLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("graphstore: open key ledger: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one writer at a time

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS seen_keys (kind TEXT NOT NULL, key TEXT NOT NULL, PRIMARY KEY (kind, key))`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("graphstore: create key ledger table: %w", err)
	}
	return &SQLiteKeyLedger{db: db}, nil
}

// Reserve implements KeyLedger.
func (l *SQLiteKeyLedger) Reserve(kind, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`INSERT INTO seen_keys (kind, key) VALUES (?, ?)`, kind, key)
	if err != nil {
		return fmt.Errorf("key already claimed: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (l *SQLiteKeyLedger) Close() error {
	return l.db.Close()
}
