/*
disputes.go - dispute.Store implementation

Totals by status are computed in the same read lock as the filtered
page so the operator's queue-depth counters and the page they look at
come from one snapshot.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cashloop/points-console/dispute"
	"github.com/cashloop/points-console/ledger"
)

var _ dispute.Store = (*Store)(nil)

const disputeColumns = `id, user_id, company_id, plan_id, title, category, description,
	requested_amount, requested_currency, evidence_links, status,
	assigned_admin_id, resolution_notes, created_at`

// CreateCase inserts a new dispute case.
func (s *Store) CreateCase(ctx context.Context, c dispute.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	linksJSON, _ := json.Marshal(c.EvidenceLinks)

	query := `
		INSERT INTO disputes
		(id, user_id, company_id, plan_id, title, category, description,
		 requested_amount, requested_currency, evidence_links, status,
		 assigned_admin_id, resolution_notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, nullString(c.UserID), nullString(c.CompanyID), nullString(c.PlanID),
		c.Title, c.Category, c.Description,
		c.RequestedAmount.String(), nullString(c.RequestedCurrency),
		string(linksJSON), string(c.Status),
		nullString(c.AssignedAdminID), c.ResolutionNotes,
		formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert dispute: %w", err)
	}
	return nil
}

// GetCase returns a case or nil.
func (s *Store) GetCase(ctx context.Context, id string) (*dispute.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+disputeColumns+" FROM disputes WHERE id = ?", id)

	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// TransitionCase performs the status-guarded update.
func (s *Store) TransitionCase(ctx context.Context, id string, from, to dispute.Status, mut dispute.CaseMutation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sets := []string{"status = ?"}
	args := []any{string(to)}

	if mut.SetResolutionNotes != nil {
		sets = append(sets, "resolution_notes = ?")
		args = append(args, *mut.SetResolutionNotes)
	}
	if mut.SetAssignedAdminID != nil {
		sets = append(sets, "assigned_admin_id = ?")
		args = append(args, *mut.SetAssignedAdminID)
	}

	args = append(args, id, string(from))
	query := "UPDATE disputes SET " + strings.Join(sets, ", ") + " WHERE id = ? AND status = ?"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition dispute: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AssignCase sets the assigned admin on a non-terminal case.
func (s *Store) AssignCase(ctx context.Context, id, adminID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE disputes SET assigned_admin_id = ?
		WHERE id = ? AND status NOT IN (?, ?)`,
		adminID, id,
		string(dispute.StatusResolved), string(dispute.StatusRejected))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteCase removes a case if its status is in allowed.
func (s *Store) DeleteCase(ctx context.Context, id string, allowed []dispute.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := make([]string, len(allowed))
	args := []any{id}
	for i, st := range allowed {
		placeholders[i] = "?"
		args = append(args, string(st))
	}

	query := "DELETE FROM disputes WHERE id = ? AND status IN (" + strings.Join(placeholders, ", ") + ")"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete dispute: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListCases returns one page plus unfiltered totals by status.
func (s *Store) ListCases(ctx context.Context, f dispute.Filter, cursor ledger.Cursor, limit int) (*dispute.Page, error) {
	afterT, afterID, err := ledger.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var conds []string
	var args []any

	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.CompanyID != "" {
		conds = append(conds, "company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Assigned != "" {
		conds = append(conds, "assigned_admin_id = ?")
		args = append(args, f.Assigned)
	}
	if f.Search != "" {
		conds = append(conds, "(title LIKE ? OR description LIKE ?)")
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

	query := "SELECT " + disputeColumns + " FROM disputes"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	defer rows.Close()

	var cases []dispute.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &dispute.Page{}
	if len(cases) > limit {
		cases = cases[:limit]
		last := cases[len(cases)-1]
		page.NextCursor = ledger.EncodeCursor(last.CreatedAt, last.ID)
	}
	page.Cases = cases

	// Global queue depth regardless of the filter.
	page.Totals = make(map[dispute.Status]int)
	totalRows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM disputes GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer totalRows.Close()
	for totalRows.Next() {
		var status string
		var count int
		if err := totalRows.Scan(&status, &count); err != nil {
			return nil, err
		}
		page.Totals[dispute.Status(status)] = count
	}
	if err := totalRows.Err(); err != nil {
		return nil, err
	}

	return page, nil
}

func scanCase(row rowScanner) (*dispute.Case, error) {
	var (
		c                 dispute.Case
		userID            sql.NullString
		companyID         sql.NullString
		planID            sql.NullString
		category          sql.NullString
		description       sql.NullString
		requestedAmount   sql.NullString
		requestedCurrency sql.NullString
		evidenceLinks     sql.NullString
		status            string
		assignedAdminID   sql.NullString
		resolutionNotes   sql.NullString
		createdAt         string
	)

	err := row.Scan(
		&c.ID, &userID, &companyID, &planID, &c.Title, &category, &description,
		&requestedAmount, &requestedCurrency, &evidenceLinks, &status,
		&assignedAdminID, &resolutionNotes, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	c.UserID = userID.String
	c.CompanyID = companyID.String
	c.PlanID = planID.String
	c.Category = category.String
	c.Description = description.String
	if requestedAmount.Valid && requestedAmount.String != "" {
		c.RequestedAmount, _ = decimal.NewFromString(requestedAmount.String)
	}
	c.RequestedCurrency = requestedCurrency.String
	if evidenceLinks.Valid && evidenceLinks.String != "" {
		json.Unmarshal([]byte(evidenceLinks.String), &c.EvidenceLinks)
	}
	c.Status = dispute.Status(status)
	c.AssignedAdminID = assignedAdminID.String
	c.ResolutionNotes = resolutionNotes.String
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}
