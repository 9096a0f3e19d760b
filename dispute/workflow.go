/*
workflow.go - Dispute case operations

PURPOSE:
  Create, assign, update, and delete dispute cases. Assign is a
  dedicated operation distinct from a full status update: claiming
  ownership of a case must not require supplying an edit payload.
  Resolution never mutates the ledger; a case only references ledger
  context.
*/
package dispute

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cashloop/points-console/ledger"
)

// Service exposes the dispute workflow operations.
type Service struct {
	store Store
	log   *zap.Logger
}

// NewService creates a dispute service.
func NewService(store Store) *Service {
	return &Service{store: store, log: zap.L().Named("dispute")}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateInput is a user-facing dispute submission.
type CreateInput struct {
	UserID            string // empty for anonymous
	CompanyID         string
	PlanID            string
	Title             string
	Category          string
	Description       string
	RequestedAmount   string // decimal string
	RequestedCurrency string
	EvidenceLinks     []string
}

// Create opens a new case.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Case, error) {
	if in.Title == "" {
		return nil, &ledger.ValidationError{Field: "title", Reason: "required"}
	}
	if len(in.EvidenceLinks) > MaxEvidenceLinks {
		return nil, &ledger.ValidationError{Field: "evidence_links", Reason: "too many links"}
	}

	amount := decimal.Zero
	if in.RequestedAmount != "" {
		var err error
		amount, err = decimal.NewFromString(in.RequestedAmount)
		if err != nil {
			return nil, &ledger.ValidationError{Field: "requested_amount", Reason: "not a decimal"}
		}
		if amount.IsNegative() {
			return nil, &ledger.ValidationError{Field: "requested_amount", Reason: "must not be negative"}
		}
	}

	c := Case{
		ID:                uuid.NewString(),
		UserID:            in.UserID,
		CompanyID:         in.CompanyID,
		PlanID:            in.PlanID,
		Title:             in.Title,
		Category:          in.Category,
		Description:       in.Description,
		RequestedAmount:   amount,
		RequestedCurrency: in.RequestedCurrency,
		EvidenceLinks:     in.EvidenceLinks,
		Status:            StatusOpen,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.store.CreateCase(ctx, c); err != nil {
		return nil, err
	}

	s.log.Info("dispute opened",
		zap.String("case_id", c.ID),
		zap.String("category", c.Category))

	return &c, nil
}

// =============================================================================
// ASSIGN
// =============================================================================

// Assign claims a case for an administrator. Does not change status.
func (s *Service) Assign(ctx context.Context, id string, actor ledger.Actor) (*Case, error) {
	if actor.AdminID == "" {
		return nil, &ledger.ValidationError{Field: "admin_id", Reason: "required"}
	}

	ok, err := s.store.AssignCase(ctx, id, actor.AdminID)
	if err != nil {
		return nil, err
	}
	if !ok {
		c, err := s.store.GetCase(ctx, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, ledger.ErrNotFound
		}
		if c.AssignedAdminID == actor.AdminID {
			return c, nil // replay
		}
		return nil, &ledger.TransitionError{EntityID: id, From: ledger.Status(c.Status), To: ledger.Status(c.Status)}
	}

	s.log.Info("dispute assigned",
		zap.String("case_id", id),
		zap.String("admin_id", actor.AdminID))

	return s.get(ctx, id)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update transitions a case and optionally records resolution notes.
func (s *Service) Update(ctx context.Context, id string, to Status, notes string, actor ledger.Actor) (*Case, error) {
	if !ValidStatus(to) {
		return nil, &ledger.ValidationError{Field: "status", Reason: "unknown status"}
	}

	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ledger.ErrNotFound
	}
	if c.Status == to {
		return c, nil // replay
	}
	if !CanTransition(c.Status, to) {
		return nil, &ledger.TransitionError{EntityID: id, From: ledger.Status(c.Status), To: ledger.Status(to)}
	}

	var mut CaseMutation
	if notes != "" {
		mut.SetResolutionNotes = &notes
	}

	ok, err := s.store.TransitionCase(ctx, id, c.Status, to, mut)
	if err != nil {
		return nil, err
	}
	if !ok {
		c, err = s.store.GetCase(ctx, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, ledger.ErrNotFound
		}
		if c.Status == to {
			return c, nil
		}
		return nil, &ledger.TransitionError{EntityID: id, From: ledger.Status(c.Status), To: ledger.Status(to)}
	}

	s.log.Info("dispute updated",
		zap.String("case_id", id),
		zap.String("status", string(to)),
		zap.String("admin_id", actor.AdminID))

	return s.get(ctx, id)
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a terminal case. Open or in-progress cases are
// protected.
func (s *Service) Delete(ctx context.Context, id string, actor ledger.Actor) error {
	ok, err := s.store.DeleteCase(ctx, id, []Status{StatusResolved, StatusRejected})
	if err != nil {
		return err
	}
	if ok {
		s.log.Info("dispute deleted",
			zap.String("case_id", id),
			zap.String("admin_id", actor.AdminID))
		return nil
	}

	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return ledger.ErrNotFound
	}
	return &ledger.DeleteError{EntityID: id, Status: ledger.Status(c.Status)}
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a single case.
func (s *Service) Get(ctx context.Context, id string) (*Case, error) {
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (*Case, error) {
	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ledger.ErrNotFound
	}
	return c, nil
}

// List returns one page of cases plus totals by status.
func (s *Service) List(ctx context.Context, f Filter, cursor ledger.Cursor, pageSize int) (*Page, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, &ledger.ValidationError{Field: "status", Reason: "unknown status"}
	}
	return s.store.ListCases(ctx, f, cursor, ledger.ClampPageSize(pageSize))
}
