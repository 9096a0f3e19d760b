/*
Package payout is the redeem/payout queue: a constrained view of the
ledger restricted to redeem-request entries.

PURPOSE:
  Operators triage payout requests in two sub-queues, pending and
  approved. The entries themselves live in the ledger and follow the
  ledger state machine; this package only narrows the surface and adds
  the request-side validation. The one deliberate asymmetry in the
  whole system lives here: an approved payout can still be rejected
  before funds move (approved -> rejected, redeem requests only), while
  approved credits are locked. The transition table in ledger/machine.go
  encodes it; this package merely exposes it.

SEE ALSO:
  - ledger/machine.go: The origin-conditional approved -> rejected edge
*/
package payout

import (
	"context"

	"github.com/cashloop/points-console/ledger"
)

// Queue is the payout-request view over the ledger engine.
type Queue struct {
	engine *ledger.Engine
}

// NewQueue creates a payout queue over the engine.
func NewQueue(engine *ledger.Engine) *Queue {
	return &Queue{engine: engine}
}

// =============================================================================
// REQUEST CREATION
// =============================================================================

// Request submits a payout request: a negative pending entry. Balance
// sufficiency is tracked, not enforced, at submission; enforcement is a
// policy decision made at approval time by the operator, and the queue
// never clamps the requested amount.
func (q *Queue) Request(ctx context.Context, userID, companyID string, points int64, notes string, actor ledger.Actor) (*ledger.Entry, error) {
	if points >= 0 {
		return nil, &ledger.ValidationError{Field: "signed_points", Reason: "payout requests must be negative"}
	}
	return q.engine.Submit(ctx, ledger.SubmitInput{
		UserID:       userID,
		CompanyID:    companyID,
		SignedPoints: points,
		Origin:       ledger.OriginRedeemRequest,
		Notes:        notes,
		Actor:        actor,
	})
}

// =============================================================================
// SUB-QUEUES
// =============================================================================

// Pending lists payout requests awaiting first review.
func (q *Queue) Pending(ctx context.Context, cursor ledger.Cursor, pageSize int) (*ledger.EntryPage, error) {
	return q.list(ctx, ledger.StatusPending, cursor, pageSize)
}

// Approved lists payout requests cleared for fulfilment but not yet
// paid out. Entries here may still be rejected.
func (q *Queue) Approved(ctx context.Context, cursor ledger.Cursor, pageSize int) (*ledger.EntryPage, error) {
	return q.list(ctx, ledger.StatusApproved, cursor, pageSize)
}

func (q *Queue) list(ctx context.Context, status ledger.Status, cursor ledger.Cursor, pageSize int) (*ledger.EntryPage, error) {
	return q.engine.List(ctx, ledger.EntryFilter{
		Origin: ledger.OriginRedeemRequest,
		Status: status,
	}, cursor, pageSize)
}

// =============================================================================
// TRANSITIONS - Delegated to the ledger engine, guarded for origin
// =============================================================================

// Approve clears a pending payout request.
func (q *Queue) Approve(ctx context.Context, id, notes string, actor ledger.Actor) (*ledger.Entry, error) {
	if err := q.requireRedeem(ctx, id); err != nil {
		return nil, err
	}
	return q.engine.Approve(ctx, id, nil, notes, actor)
}

// Reject declines a payout request, from pending or from approved.
func (q *Queue) Reject(ctx context.Context, id, notes string, actor ledger.Actor) (*ledger.Entry, error) {
	if err := q.requireRedeem(ctx, id); err != nil {
		return nil, err
	}
	return q.engine.Reject(ctx, id, notes, actor)
}

// Fulfill marks an approved payout request as paid out. Terminal.
func (q *Queue) Fulfill(ctx context.Context, id string, actor ledger.Actor) (*ledger.Entry, error) {
	if err := q.requireRedeem(ctx, id); err != nil {
		return nil, err
	}
	return q.engine.Fulfill(ctx, id, actor)
}

// Delete removes a pending or rejected payout request.
func (q *Queue) Delete(ctx context.Context, id string, actor ledger.Actor) error {
	if err := q.requireRedeem(ctx, id); err != nil {
		return err
	}
	return q.engine.Delete(ctx, id, actor)
}

// requireRedeem keeps the queue from being used to mutate non-payout
// entries through the payout endpoints.
func (q *Queue) requireRedeem(ctx context.Context, id string) error {
	entry, err := q.engine.Get(ctx, id)
	if err != nil {
		return err
	}
	if entry.Origin != ledger.OriginRedeemRequest {
		return &ledger.ValidationError{Field: "entry_id", Reason: "not a payout request"}
	}
	return nil
}
