/*
Package sqlite provides the SQLite-backed implementation of every
storage interface in the system.

PURPOSE:
  Implements ledger.EntryStore, ledger.CompanyStore,
  reconcile.ImportStore, and dispute.Store. In production the same
  patterns apply to PostgreSQL; only minor SQL dialect differences.

INVARIANTS ENFORCED AT THE STORE LEVEL:
  - idx_entries_external_ref: one affiliate-import entry per
    (company, external ref). Re-importing the same external transaction
    is rejected by the database, not just application logic.
  - idx_imports_external: at most one NON-REJECTED import record per
    (company, platform, external id). Rejected records drop out of the
    partial index, so the slot frees for re-import.

CAS DISCIPLINE:
  Every status transition is a guarded UPDATE:
    UPDATE ... SET status = new WHERE id = ? AND status = expected
  Zero rows affected means the guard did not match; callers re-read to
  distinguish not-found, replay, and lost race. Concurrent mutations on
  the same row therefore resolve to exactly one winner with no silent
  overwrite.

ATOMIC LINKAGE:
  ApproveTx wraps the import-record update and the ledger-entry insert
  in one database transaction. This is the only multi-write operation
  in the system.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't
  block, single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/console.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - ledger/store.go:    Interface definitions
  - reconcile/store.go: ImportStore definition
  - dispute/store.go:   Dispute Store definition
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Companies (merchant registry)
	CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Ledger entries
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		company_id TEXT NOT NULL,
		signed_points INTEGER NOT NULL,
		origin TEXT NOT NULL,
		status TEXT NOT NULL,
		external_ref TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		approved_at TEXT,
		fulfilled_at TEXT
	);

	-- CRITICAL: one affiliate-import entry per external event and company.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_external_ref
		ON entries(company_id, external_ref)
		WHERE origin = 'affiliate_import' AND external_ref IS NOT NULL;

	-- Balance fold (hot path)
	CREATE INDEX IF NOT EXISTS idx_entries_user_status
		ON entries(user_id, status);

	-- Payout queue triage
	CREATE INDEX IF NOT EXISTS idx_entries_origin_status
		ON entries(origin, status);

	-- Cursor pagination
	CREATE INDEX IF NOT EXISTS idx_entries_created
		ON entries(created_at DESC, id DESC);

	-- Affiliate import records
	CREATE TABLE IF NOT EXISTS import_records (
		id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		external_id TEXT NOT NULL,
		user_email TEXT,
		user_id TEXT,
		claimed_amount TEXT NOT NULL,
		currency TEXT,
		claimed_points INTEGER NOT NULL,
		final_points INTEGER NOT NULL DEFAULT 0,
		purchase_at TEXT,
		status TEXT NOT NULL,
		linked_entry_id TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one non-rejected record per external event.
	-- Rejected records leave the partial index, freeing the slot.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_imports_external
		ON import_records(company_id, platform, external_id)
		WHERE status != 'rejected';

	CREATE INDEX IF NOT EXISTS idx_imports_status
		ON import_records(status);
	CREATE INDEX IF NOT EXISTS idx_imports_created
		ON import_records(created_at DESC, id DESC);

	-- Dispute cases
	CREATE TABLE IF NOT EXISTS disputes (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		company_id TEXT,
		plan_id TEXT,
		title TEXT NOT NULL,
		category TEXT,
		description TEXT,
		requested_amount TEXT,
		requested_currency TEXT,
		evidence_links TEXT,
		status TEXT NOT NULL,
		assigned_admin_id TEXT,
		resolution_notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_disputes_status
		ON disputes(status);
	CREATE INDEX IF NOT EXISTS idx_disputes_created
		ON disputes(created_at DESC, id DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"entries", "import_records", "disputes", "companies"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeLayout pads nanoseconds to fixed width. Timestamps are TEXT
// columns compared lexicographically (ORDER BY, keyset cursors, range
// filters), so the encoding must sort the same way the times do.
// RFC3339Nano trims trailing zeros and breaks that.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
