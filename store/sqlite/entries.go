/*
entries.go - ledger.EntryStore and ledger.CompanyStore implementation

The status-guarded UPDATE in TransitionEntry is the system's
concurrency control: the losing side of a race affects zero rows and
the engine resolves the outcome by re-reading.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cashloop/points-console/ledger"
)

var _ ledger.EntryStore = (*Store)(nil)
var _ ledger.CompanyStore = (*Store)(nil)

const entryColumns = `id, user_id, company_id, signed_points, origin, status,
	external_ref, notes, created_at, approved_at, fulfilled_at`

// CreateEntry inserts a new ledger entry.
func (s *Store) CreateEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertEntry(ctx, s.db, e)
}

func (s *Store) insertEntry(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, e ledger.Entry) error {
	query := `
		INSERT INTO entries
		(id, user_id, company_id, signed_points, origin, status,
		 external_ref, notes, created_at, approved_at, fulfilled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.CompanyID,
		e.SignedPoints,
		string(e.Origin),
		string(e.Status),
		nullString(e.ExternalRef),
		e.Notes,
		formatTime(e.CreatedAt),
		nullTime(e.ApprovedAt),
		nullTime(e.FulfilledAt),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateExternalRef
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// GetEntry returns an entry or nil.
func (s *Store) GetEntry(ctx context.Context, id string) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE id = ?", id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// TransitionEntry performs the status-guarded update.
func (s *Store) TransitionEntry(ctx context.Context, id string, from, to ledger.Status, mut ledger.EntryMutation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sets := []string{"status = ?"}
	args := []any{string(to)}

	if mut.SetPoints != nil {
		sets = append(sets, "signed_points = ?")
		args = append(args, *mut.SetPoints)
	}
	if mut.SetNotes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *mut.SetNotes)
	}
	if mut.ApprovedAt != nil {
		sets = append(sets, "approved_at = ?")
		args = append(args, formatTime(*mut.ApprovedAt))
	}
	if mut.FulfilledAt != nil {
		sets = append(sets, "fulfilled_at = ?")
		args = append(args, formatTime(*mut.FulfilledAt))
	}

	args = append(args, id, string(from))
	query := "UPDATE entries SET " + strings.Join(sets, ", ") + " WHERE id = ? AND status = ?"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteEntry removes an entry if its status is in allowed.
func (s *Store) DeleteEntry(ctx context.Context, id string, allowed []ledger.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := make([]string, len(allowed))
	args := []any{id}
	for i, st := range allowed {
		placeholders[i] = "?"
		args = append(args, string(st))
	}

	query := "DELETE FROM entries WHERE id = ? AND status IN (" + strings.Join(placeholders, ", ") + ")"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListEntries returns one page, newest first.
func (s *Store) ListEntries(ctx context.Context, f ledger.EntryFilter, cursor ledger.Cursor, limit int) (*ledger.EntryPage, error) {
	afterT, afterID, err := ledger.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var conds []string
	var args []any

	add := func(cond string, val any) {
		conds = append(conds, cond)
		args = append(args, val)
	}

	if f.UserID != "" {
		add("user_id = ?", f.UserID)
	}
	if f.CompanyID != "" {
		add("company_id = ?", f.CompanyID)
	}
	if f.Origin != "" {
		add("origin = ?", string(f.Origin))
	}
	if f.Status != "" {
		add("status = ?", string(f.Status))
	}
	if f.Search != "" {
		add("notes LIKE ?", "%"+f.Search+"%")
	}
	if f.From != nil {
		add("created_at >= ?", formatTime(*f.From))
	}
	if f.To != nil {
		add("created_at <= ?", formatTime(*f.To))
	}
	if f.MinPoints != nil {
		add("signed_points >= ?", *f.MinPoints)
	}
	if f.MaxPoints != nil {
		add("signed_points <= ?", *f.MaxPoints)
	}
	if afterID != "" {
		conds = append(conds, "(created_at < ? OR (created_at = ? AND id < ?))")
		ts := formatTime(afterT)
		args = append(args, ts, ts, afterID)
	}

	query := "SELECT " + entryColumns + " FROM entries"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit+1) // one extra row to detect the next page

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &ledger.EntryPage{}
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		page.NextCursor = ledger.EncodeCursor(last.CreatedAt, last.ID)
	}
	page.Entries = entries
	return page, nil
}

// ListUserEntries returns every entry for a user, oldest first.
func (s *Store) ListUserEntries(ctx context.Context, userID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE user_id = ? ORDER BY created_at ASC, id ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var (
		e           ledger.Entry
		origin      string
		status      string
		externalRef sql.NullString
		notes       sql.NullString
		createdAt   string
		approvedAt  sql.NullString
		fulfilledAt sql.NullString
	)

	err := row.Scan(
		&e.ID, &e.UserID, &e.CompanyID, &e.SignedPoints, &origin, &status,
		&externalRef, &notes, &createdAt, &approvedAt, &fulfilledAt,
	)
	if err != nil {
		return nil, err
	}

	e.Origin = ledger.Origin(origin)
	e.Status = ledger.Status(status)
	e.ExternalRef = externalRef.String
	e.Notes = notes.String
	e.CreatedAt = parseTime(createdAt)
	e.ApprovedAt = parseNullTime(approvedAt)
	e.FulfilledAt = parseNullTime(fulfilledAt)
	return &e, nil
}

// =============================================================================
// COMPANY STORE
// =============================================================================

// SaveCompany inserts or updates a company.
func (s *Store) SaveCompany(ctx context.Context, c ledger.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO companies (id, name, active, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active
	`

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Active, formatTime(createdAt))
	return err
}

// GetCompany returns a company or nil.
func (s *Store) GetCompany(ctx context.Context, id string) (*ledger.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c ledger.Company
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, active, created_at FROM companies WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &c.Active, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// ListCompanies returns all companies ordered by name.
func (s *Store) ListCompanies(ctx context.Context) ([]ledger.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, active, created_at FROM companies ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []ledger.Company
	for rows.Next() {
		var c ledger.Company
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Active, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// SetCompanyActive flips the active flag.
func (s *Store) SetCompanyActive(ctx context.Context, id string, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE companies SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
