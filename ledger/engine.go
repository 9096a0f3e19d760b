/*
engine.go - Mutating operations on ledger entries

PURPOSE:
  The Engine owns the five operations the presentation layer consumes:
  Submit, Approve, Reject, Fulfill, Delete. Each executes as one atomic
  read-modify-write against the store; concurrent operations on the
  same entry are resolved by the store's status-guarded update, so the
  losing caller sees ErrInvalidTransition rather than a silent
  overwrite.

IDEMPOTENCY:
  Every operation tolerates at-least-once delivery. Re-invoking Approve
  on an already-approved entry with identical parameters returns the
  existing entry; network retries from the presentation layer are
  expected and must not error or duplicate effects.

RACE RESOLUTION:
  When the CAS guard does not match, the engine re-reads the entry:
  - gone            -> ErrNotFound
  - identical state -> the retry already won; return the entry
  - anything else   -> TransitionError (stale client state)

SEE ALSO:
  - machine.go: Transition legality
  - balance.go: The read-side projection
*/
package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine exposes the ledger's mutating operations and queries.
type Engine struct {
	store     EntryStore
	companies CompanyStore
	log       *zap.Logger
}

// NewEngine creates an engine over the given stores.
func NewEngine(store EntryStore, companies CompanyStore) *Engine {
	return &Engine{store: store, companies: companies, log: zap.L().Named("ledger")}
}

// =============================================================================
// SUBMIT
// =============================================================================

// SubmitInput carries everything needed to create an entry.
type SubmitInput struct {
	UserID       string
	CompanyID    string
	SignedPoints int64
	Origin       Origin

	// InitialStatus is honored only for manual grants; empty means
	// pending. A grant created approved or redeemed skips review.
	InitialStatus Status

	// ExternalRef is set only for affiliate imports.
	ExternalRef string

	Notes string
	Actor Actor
}

// Submit validates the input and creates the entry in its initial
// status. Balance sufficiency is deliberately NOT checked here, nor at
// approval: enforcement of sufficiency is a policy above the ledger,
// and the ledger never clamps or alters the requested points.
func (en *Engine) Submit(ctx context.Context, in SubmitInput) (*Entry, error) {
	if !ValidOrigin(in.Origin) {
		return nil, &ValidationError{Field: "origin", Reason: "unknown origin"}
	}
	if in.SignedPoints == 0 {
		return nil, &ValidationError{Field: "signed_points", Reason: "must be non-zero"}
	}
	if in.Origin == OriginRedeemRequest {
		if in.SignedPoints > 0 {
			return nil, &ValidationError{Field: "signed_points", Reason: "redeem requests must be negative"}
		}
	} else if in.SignedPoints < 0 {
		return nil, &ValidationError{Field: "signed_points", Reason: "credits must be positive"}
	}
	if in.UserID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	if in.ExternalRef != "" && in.Origin != OriginAffiliateImport {
		return nil, &ValidationError{Field: "external_ref", Reason: "only affiliate imports carry an external ref"}
	}

	initial := in.InitialStatus
	if initial == "" {
		initial = StatusPending
	}
	if !ValidStatus(initial) || !ValidInitialStatus(in.Origin, initial) {
		return nil, &ValidationError{Field: "initial_status", Reason: "not allowed for this origin"}
	}

	company, err := en.companies.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &ValidationError{Field: "company_id", Reason: "unknown company"}
	}
	if !company.Active {
		return nil, &ValidationError{Field: "company_id", Reason: "company is inactive"}
	}

	now := time.Now().UTC()
	entry := Entry{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		CompanyID:    in.CompanyID,
		SignedPoints: in.SignedPoints,
		Origin:       in.Origin,
		Status:       initial,
		ExternalRef:  in.ExternalRef,
		Notes:        in.Notes,
		CreatedAt:    now,
	}
	// Grants created past review get their stamps at entry time.
	if initial == StatusApproved || initial == StatusRedeemed {
		entry.ApprovedAt = &now
	}
	if initial == StatusRedeemed {
		entry.FulfilledAt = &now
	}

	if err := en.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	en.log.Info("entry submitted",
		zap.String("entry_id", entry.ID),
		zap.String("user_id", entry.UserID),
		zap.String("origin", string(entry.Origin)),
		zap.Int64("signed_points", entry.SignedPoints),
		zap.String("status", string(entry.Status)),
		zap.String("admin_id", in.Actor.AdminID))

	return &entry, nil
}

// =============================================================================
// APPROVE
// =============================================================================

// Approve moves a pending entry to approved. For affiliate-import
// entries the caller may supply finalPoints: the imported record often
// lacks the verified point value at submission time, and this is the
// only moment signed points may be set. Idempotent on replay with
// identical parameters.
func (en *Engine) Approve(ctx context.Context, id string, finalPoints *int64, notes string, actor Actor) (*Entry, error) {
	entry, err := en.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}

	if finalPoints != nil {
		if entry.Origin != OriginAffiliateImport {
			return nil, &ValidationError{Field: "final_points", Reason: "override allowed only for affiliate imports"}
		}
		if *finalPoints <= 0 {
			return nil, &ValidationError{Field: "final_points", Reason: "must be positive"}
		}
	}

	// Replay of a completed approval with identical parameters.
	if entry.Status == StatusApproved {
		if finalPoints == nil || *finalPoints == entry.SignedPoints {
			return entry, nil
		}
		return nil, &TransitionError{EntityID: id, Origin: entry.Origin, From: entry.Status, To: StatusApproved}
	}
	if entry.Status != StatusPending {
		return nil, &TransitionError{EntityID: id, Origin: entry.Origin, From: entry.Status, To: StatusApproved}
	}

	now := time.Now().UTC()
	mut := EntryMutation{ApprovedAt: &now, SetPoints: finalPoints}
	if notes != "" {
		n := appendNote(entry.Notes, notes, actor)
		mut.SetNotes = &n
	}

	ok, err := en.store.TransitionEntry(ctx, id, StatusPending, StatusApproved, mut)
	if err != nil {
		return nil, err
	}
	if !ok {
		return en.resolveRace(ctx, id, StatusApproved, finalPoints)
	}

	en.log.Info("entry approved",
		zap.String("entry_id", id),
		zap.String("admin_id", actor.AdminID))

	return en.store.GetEntry(ctx, id)
}

// =============================================================================
// REJECT
// =============================================================================

// Reject declines an entry. Legal from pending for every origin; legal
// from approved only for redeem requests that have not been fulfilled,
// since a payout can still be stopped before money moves.
func (en *Engine) Reject(ctx context.Context, id, notes string, actor Actor) (*Entry, error) {
	entry, err := en.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	if entry.Status == StatusRejected {
		return entry, nil // replay
	}
	if !CanTransition(entry.Origin, entry.Status, StatusRejected) {
		return nil, &TransitionError{EntityID: id, Origin: entry.Origin, From: entry.Status, To: StatusRejected}
	}

	var mut EntryMutation
	if notes != "" {
		n := appendNote(entry.Notes, notes, actor)
		mut.SetNotes = &n
	}

	ok, err := en.store.TransitionEntry(ctx, id, entry.Status, StatusRejected, mut)
	if err != nil {
		return nil, err
	}
	if !ok {
		return en.resolveRace(ctx, id, StatusRejected, nil)
	}

	en.log.Info("entry rejected",
		zap.String("entry_id", id),
		zap.String("admin_id", actor.AdminID))

	return en.store.GetEntry(ctx, id)
}

// =============================================================================
// FULFILL
// =============================================================================

// Fulfill marks an approved redeem request as paid out. Terminal.
func (en *Engine) Fulfill(ctx context.Context, id string, actor Actor) (*Entry, error) {
	entry, err := en.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	if entry.Status == StatusRedeemed {
		return entry, nil // replay
	}
	if !CanTransition(entry.Origin, entry.Status, StatusRedeemed) {
		return nil, &TransitionError{EntityID: id, Origin: entry.Origin, From: entry.Status, To: StatusRedeemed}
	}

	now := time.Now().UTC()
	ok, err := en.store.TransitionEntry(ctx, id, StatusApproved, StatusRedeemed, EntryMutation{FulfilledAt: &now})
	if err != nil {
		return nil, err
	}
	if !ok {
		return en.resolveRace(ctx, id, StatusRedeemed, nil)
	}

	en.log.Info("entry fulfilled",
		zap.String("entry_id", id),
		zap.String("admin_id", actor.AdminID))

	return en.store.GetEntry(ctx, id)
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes an entry that never had financial effect. Only pending
// and rejected entries may be deleted; anything else fails with
// ErrPreconditionFailed so financial history is never erased.
func (en *Engine) Delete(ctx context.Context, id string, actor Actor) error {
	ok, err := en.store.DeleteEntry(ctx, id, []Status{StatusPending, StatusRejected})
	if err != nil {
		return err
	}
	if ok {
		en.log.Info("entry deleted",
			zap.String("entry_id", id),
			zap.String("admin_id", actor.AdminID))
		return nil
	}

	entry, err := en.store.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrNotFound
	}
	return &DeleteError{EntityID: id, Status: entry.Status}
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a single entry.
func (en *Engine) Get(ctx context.Context, id string) (*Entry, error) {
	entry, err := en.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

// List returns one page of entries.
func (en *Engine) List(ctx context.Context, f EntryFilter, cursor Cursor, pageSize int) (*EntryPage, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}
	if f.Origin != "" && !ValidOrigin(f.Origin) {
		return nil, &ValidationError{Field: "origin", Reason: "unknown origin"}
	}
	return en.store.ListEntries(ctx, f, cursor, ClampPageSize(pageSize))
}

// =============================================================================
// HELPERS
// =============================================================================

// resolveRace re-reads after a failed CAS to distinguish a lost race
// from an idempotent replay that already landed.
func (en *Engine) resolveRace(ctx context.Context, id string, want Status, wantPoints *int64) (*Entry, error) {
	entry, err := en.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	if entry.Status == want && (wantPoints == nil || *wantPoints == entry.SignedPoints) {
		return entry, nil
	}
	return nil, &TransitionError{EntityID: id, Origin: entry.Origin, From: entry.Status, To: want}
}

func appendNote(existing, note string, actor Actor) string {
	line := note
	if actor.AdminID != "" {
		line = "[" + actor.AdminID + "] " + note
	}
	if existing == "" {
		return line
	}
	return strings.TrimRight(existing, "\n") + "\n" + line
}
