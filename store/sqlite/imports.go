/*
imports.go - reconcile.ImportStore implementation

ApproveTx is the one multi-write operation in the system: the record
update and the entry insert share a database transaction, so a
verified claim can never end up approved without its points.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cashloop/points-console/ledger"
	"github.com/cashloop/points-console/reconcile"
)

var _ reconcile.ImportStore = (*Store)(nil)

const importColumns = `id, company_id, platform, external_id, user_email, user_id,
	claimed_amount, currency, claimed_points, final_points, purchase_at,
	status, linked_entry_id, notes, created_at`

// CreateImport inserts a record; the partial unique index turns a live
// duplicate into ErrDuplicateExternalRef.
func (s *Store) CreateImport(ctx context.Context, r reconcile.ImportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO import_records
		(id, company_id, platform, external_id, user_email, user_id,
		 claimed_amount, currency, claimed_points, final_points, purchase_at,
		 status, linked_entry_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var purchaseAt sql.NullString
	if !r.PurchaseAt.IsZero() {
		purchaseAt = sql.NullString{String: formatTime(r.PurchaseAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.CompanyID, r.Platform, r.ExternalID,
		nullString(r.UserEmail), nullString(r.UserID),
		r.ClaimedAmount.String(), nullString(r.Currency),
		r.ClaimedPoints, r.FinalPoints, purchaseAt,
		string(r.Status), nullString(r.LinkedEntryID), r.Notes,
		formatTime(r.CreatedAt),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateExternalRef
		}
		return fmt.Errorf("failed to insert import record: %w", err)
	}
	return nil
}

// GetImport returns a record or nil.
func (s *Store) GetImport(ctx context.Context, id string) (*reconcile.ImportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+importColumns+" FROM import_records WHERE id = ?", id)

	r, err := scanImport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ApproveTx atomically approves the record and creates the linked entry.
func (s *Store) ApproveTx(ctx context.Context, recordID string, finalPoints int64, notes string, entry ledger.Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE import_records
		SET status = ?, final_points = ?, linked_entry_id = ?,
		    notes = CASE WHEN ? = '' THEN notes ELSE ? END
		WHERE id = ? AND status = ?`,
		string(reconcile.ImportApproved), finalPoints, entry.ID,
		notes, notes,
		recordID, string(reconcile.ImportPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to approve import record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, nil
	}

	if err := s.insertEntry(ctx, tx, entry); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// RejectImport transitions pending -> rejected.
func (s *Store) RejectImport(ctx context.Context, recordID, notes string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE import_records
		SET status = ?, notes = CASE WHEN ? = '' THEN notes ELSE ? END
		WHERE id = ? AND status = ?`,
		string(reconcile.ImportRejected), notes, notes,
		recordID, string(reconcile.ImportPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to reject import record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListImports returns one page, newest first.
func (s *Store) ListImports(ctx context.Context, f reconcile.ImportFilter, cursor ledger.Cursor, limit int) (*reconcile.ImportPage, error) {
	afterT, afterID, err := ledger.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var conds []string
	var args []any

	if f.CompanyID != "" {
		conds = append(conds, "company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.Platform != "" {
		conds = append(conds, "platform = ?")
		args = append(args, f.Platform)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		conds = append(conds, "(user_email LIKE ? OR external_id LIKE ?)")
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}
	if f.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, formatTime(*f.To))
	}
	if afterID != "" {
		conds = append(conds, "(created_at < ? OR (created_at = ? AND id < ?))")
		ts := formatTime(afterT)
		args = append(args, ts, ts, afterID)
	}

	query := "SELECT " + importColumns + " FROM import_records"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list import records: %w", err)
	}
	defer rows.Close()

	var records []reconcile.ImportRecord
	for rows.Next() {
		r, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &reconcile.ImportPage{}
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1]
		page.NextCursor = ledger.EncodeCursor(last.CreatedAt, last.ID)
	}
	page.Records = records
	return page, nil
}

// FindUnlinkedApproved returns approved records with no linked entry.
func (s *Store) FindUnlinkedApproved(ctx context.Context) ([]reconcile.ImportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+importColumns+` FROM import_records
		 WHERE status = ? AND (linked_entry_id IS NULL OR linked_entry_id = '')`,
		string(reconcile.ImportApproved))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []reconcile.ImportRecord
	for rows.Next() {
		r, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// LinkImport completes the linkage on an approved, unlinked record.
func (s *Store) LinkImport(ctx context.Context, recordID, entryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE import_records SET linked_entry_id = ?
		WHERE id = ? AND status = ? AND (linked_entry_id IS NULL OR linked_entry_id = '')`,
		entryID, recordID, string(reconcile.ImportApproved))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevertImport moves an approved, unlinked record back to pending.
func (s *Store) RevertImport(ctx context.Context, recordID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE import_records SET status = ?, final_points = 0
		WHERE id = ? AND status = ? AND (linked_entry_id IS NULL OR linked_entry_id = '')`,
		string(reconcile.ImportPending), recordID, string(reconcile.ImportApproved))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanImport(row rowScanner) (*reconcile.ImportRecord, error) {
	var (
		r             reconcile.ImportRecord
		userEmail     sql.NullString
		userID        sql.NullString
		claimedAmount string
		currency      sql.NullString
		purchaseAt    sql.NullString
		status        string
		linkedEntryID sql.NullString
		notes         sql.NullString
		createdAt     string
	)

	err := row.Scan(
		&r.ID, &r.CompanyID, &r.Platform, &r.ExternalID, &userEmail, &userID,
		&claimedAmount, &currency, &r.ClaimedPoints, &r.FinalPoints, &purchaseAt,
		&status, &linkedEntryID, &notes, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	r.UserEmail = userEmail.String
	r.UserID = userID.String
	r.ClaimedAmount, _ = decimal.NewFromString(claimedAmount)
	r.Currency = currency.String
	if t := parseNullTime(purchaseAt); t != nil {
		r.PurchaseAt = *t
	}
	r.Status = reconcile.ImportStatus(status)
	r.LinkedEntryID = linkedEntryID.String
	r.Notes = notes.String
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}
