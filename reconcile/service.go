/*
service.go - Import, approval, and rejection of affiliate records

PURPOSE:
  Service is the reconciliation module's operation surface:

  Import        Create a pending record; duplicates of a live claim are
                refused with ErrDuplicateExternalRef
  ApproveImport One atomic step: record -> approved, ledger entry
                created with origin affiliate_import and status
                approved, linkage stamped
  RejectImport  Record -> rejected; the external id becomes eligible
                for re-import

IDEMPOTENCY:
  Re-running ApproveImport on an already-approved record with the same
  final points returns the existing linkage instead of erroring, which
  also makes it the retry path when a previous attempt died mid-flight.

SEE ALSO:
  - repair.go: The scan for approved-but-unlinked records
*/
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cashloop/points-console/ledger"
)

// Service exposes the reconciliation operations.
type Service struct {
	imports   ImportStore
	entries   ledger.EntryStore
	companies ledger.CompanyStore
	log       *zap.Logger
}

// NewService creates a reconciliation service.
func NewService(imports ImportStore, entries ledger.EntryStore, companies ledger.CompanyStore) *Service {
	return &Service{
		imports:   imports,
		entries:   entries,
		companies: companies,
		log:       zap.L().Named("reconcile"),
	}
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportInput is a raw claim from an affiliate network.
type ImportInput struct {
	CompanyID     string
	Platform      string
	ExternalID    string
	UserEmail     string
	UserID        string
	ClaimedAmount string // decimal string, e.g. "59.90"
	Currency      string
	ClaimedPoints int64
	PurchaseAt    time.Time
}

// Import creates a pending record for an external claim.
func (s *Service) Import(ctx context.Context, in ImportInput) (*ImportRecord, error) {
	if in.CompanyID == "" {
		return nil, &ledger.ValidationError{Field: "company_id", Reason: "required"}
	}
	if in.Platform == "" {
		return nil, &ledger.ValidationError{Field: "platform", Reason: "required"}
	}
	if in.ExternalID == "" {
		return nil, &ledger.ValidationError{Field: "external_id", Reason: "required"}
	}
	if in.UserEmail == "" && in.UserID == "" {
		return nil, &ledger.ValidationError{Field: "user", Reason: "email or user id required"}
	}
	if in.ClaimedPoints < 0 {
		return nil, &ledger.ValidationError{Field: "claimed_points", Reason: "must not be negative"}
	}

	amount, err := parseAmount(in.ClaimedAmount)
	if err != nil {
		return nil, err
	}

	company, err := s.companies.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &ledger.ValidationError{Field: "company_id", Reason: "unknown company"}
	}

	record := ImportRecord{
		ID:            uuid.NewString(),
		CompanyID:     in.CompanyID,
		Platform:      in.Platform,
		ExternalID:    in.ExternalID,
		UserEmail:     in.UserEmail,
		UserID:        in.UserID,
		ClaimedAmount: amount,
		Currency:      in.Currency,
		ClaimedPoints: in.ClaimedPoints,
		PurchaseAt:    in.PurchaseAt,
		Status:        ImportPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.imports.CreateImport(ctx, record); err != nil {
		return nil, err
	}

	s.log.Info("import record created",
		zap.String("record_id", record.ID),
		zap.String("company_id", record.CompanyID),
		zap.String("platform", record.Platform),
		zap.String("external_id", record.ExternalID))

	return &record, nil
}

// =============================================================================
// APPROVE
// =============================================================================

// ApproveImport verifies a claim: the record becomes approved and a
// ledger entry with origin affiliate_import and status approved is
// created and linked, all in one atomic step.
func (s *Service) ApproveImport(ctx context.Context, recordID string, finalPoints int64, notes string, actor ledger.Actor) (*ImportRecord, *ledger.Entry, error) {
	if finalPoints <= 0 {
		return nil, nil, &ledger.ValidationError{Field: "final_points", Reason: "must be positive"}
	}

	record, err := s.imports.GetImport(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, ledger.ErrNotFound
	}

	// Replay of a completed approval.
	if record.Status == ImportApproved && record.LinkedEntryID != "" {
		if record.FinalPoints != finalPoints {
			return nil, nil, &ledger.TransitionError{
				EntityID: recordID,
				Origin:   ledger.OriginAffiliateImport,
				From:     ledger.Status(record.Status),
				To:       ledger.StatusApproved,
			}
		}
		entry, err := s.entries.GetEntry(ctx, record.LinkedEntryID)
		if err != nil {
			return nil, nil, err
		}
		return record, entry, nil
	}

	// A half-linked record is repaired by the repair path, not by a
	// second approval racing it.
	if record.Status != ImportPending {
		return nil, nil, &ledger.TransitionError{
			EntityID: recordID,
			Origin:   ledger.OriginAffiliateImport,
			From:     ledger.Status(record.Status),
			To:       ledger.StatusApproved,
		}
	}
	if record.UserID == "" {
		return nil, nil, &ledger.ValidationError{Field: "user_id", Reason: "claim has no resolved user"}
	}

	now := time.Now().UTC()
	entry := ledger.Entry{
		ID:           uuid.NewString(),
		UserID:       record.UserID,
		CompanyID:    record.CompanyID,
		SignedPoints: finalPoints,
		Origin:       ledger.OriginAffiliateImport,
		Status:       ledger.StatusApproved,
		ExternalRef:  record.ExternalRef(),
		Notes:        notes,
		CreatedAt:    now,
		ApprovedAt:   &now,
	}

	ok, err := s.imports.ApproveTx(ctx, recordID, finalPoints, notes, entry)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// Lost the pending guard; re-read and treat an identical outcome
		// as a replay.
		return s.resolveApproveRace(ctx, recordID, finalPoints)
	}

	s.log.Info("import approved",
		zap.String("record_id", recordID),
		zap.String("entry_id", entry.ID),
		zap.Int64("final_points", finalPoints),
		zap.String("admin_id", actor.AdminID))

	record, err = s.imports.GetImport(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	return record, &entry, nil
}

func (s *Service) resolveApproveRace(ctx context.Context, recordID string, finalPoints int64) (*ImportRecord, *ledger.Entry, error) {
	record, err := s.imports.GetImport(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, ledger.ErrNotFound
	}
	if record.Status == ImportApproved && record.LinkedEntryID != "" && record.FinalPoints == finalPoints {
		entry, err := s.entries.GetEntry(ctx, record.LinkedEntryID)
		if err != nil {
			return nil, nil, err
		}
		return record, entry, nil
	}
	return nil, nil, &ledger.TransitionError{
		EntityID: recordID,
		Origin:   ledger.OriginAffiliateImport,
		From:     ledger.Status(record.Status),
		To:       ledger.StatusApproved,
	}
}

// =============================================================================
// REJECT
// =============================================================================

// RejectImport declines a claim. No ledger entry is created and the
// external id becomes eligible for re-import.
func (s *Service) RejectImport(ctx context.Context, recordID, notes string, actor ledger.Actor) (*ImportRecord, error) {
	record, err := s.imports.GetImport(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ledger.ErrNotFound
	}
	if record.Status == ImportRejected {
		return record, nil // replay
	}
	if record.Status != ImportPending {
		return nil, &ledger.TransitionError{
			EntityID: recordID,
			Origin:   ledger.OriginAffiliateImport,
			From:     ledger.Status(record.Status),
			To:       ledger.StatusRejected,
		}
	}

	ok, err := s.imports.RejectImport(ctx, recordID, notes)
	if err != nil {
		return nil, err
	}
	if !ok {
		record, err = s.imports.GetImport(ctx, recordID)
		if err != nil {
			return nil, err
		}
		if record == nil {
			return nil, ledger.ErrNotFound
		}
		if record.Status == ImportRejected {
			return record, nil
		}
		return nil, &ledger.TransitionError{
			EntityID: recordID,
			Origin:   ledger.OriginAffiliateImport,
			From:     ledger.Status(record.Status),
			To:       ledger.StatusRejected,
		}
	}

	s.log.Info("import rejected",
		zap.String("record_id", recordID),
		zap.String("admin_id", actor.AdminID))

	return s.imports.GetImport(ctx, recordID)
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a single record.
func (s *Service) Get(ctx context.Context, id string) (*ImportRecord, error) {
	record, err := s.imports.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ledger.ErrNotFound
	}
	return record, nil
}

// List returns one page of records.
func (s *Service) List(ctx context.Context, f ImportFilter, cursor ledger.Cursor, pageSize int) (*ImportPage, error) {
	return s.imports.ListImports(ctx, f, cursor, ledger.ClampPageSize(pageSize))
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &ledger.ValidationError{Field: "claimed_amount", Reason: "not a decimal"}
	}
	if amount.IsNegative() {
		return decimal.Zero, &ledger.ValidationError{Field: "claimed_amount", Reason: "must not be negative"}
	}
	return amount, nil
}
