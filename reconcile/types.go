/*
Package reconcile links externally-imported affiliate records to ledger
entries, preventing duplicate import and duplicate payout for the same
external event.

PURPOSE:
  Affiliate networks report purchases as raw claims. Each claim becomes
  an ImportRecord; at most one non-rejected record may exist per
  (company, platform, external id). Approval is the single step that
  both marks the record approved and creates the linked ledger entry,
  atomically. A rejected record frees its slot for re-import, since the
  original claim may have been a data error rather than fraud.

KEY CONCEPTS IN THIS FILE (types.go):
  - ImportRecord: The raw externally-sourced claim
  - ImportStatus: pending -> approved | rejected (both terminal)

SEE ALSO:
  - service.go: Import/approve/reject operations
  - repair.go:  Detects and repairs half-linked records
*/
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IMPORT STATUS
// =============================================================================

type ImportStatus string

const (
	ImportPending  ImportStatus = "pending"
	ImportApproved ImportStatus = "approved"
	ImportRejected ImportStatus = "rejected"
)

// =============================================================================
// IMPORT RECORD - The raw claim prior to, or pending, verification
// =============================================================================

type ImportRecord struct {
	ID        string
	CompanyID string

	// Platform is the affiliate network the claim came from; ExternalID
	// is the network's transaction id. (CompanyID, Platform, ExternalID)
	// is unique across all non-rejected records, enforced at the store
	// level.
	Platform   string
	ExternalID string

	// The claiming user: an email until identity resolution, then an id.
	UserEmail string
	UserID    string

	// What the network claims happened.
	ClaimedAmount decimal.Decimal
	Currency      string
	ClaimedPoints int64
	PurchaseAt    time.Time

	Status ImportStatus

	// FinalPoints is the verified point value recorded at approval; the
	// linked ledger entry is created with exactly this value.
	FinalPoints int64

	// LinkedEntryID points at the ledger entry created by approval. An
	// approved record with no linkage is an invariant violation that
	// the repair scan detects.
	LinkedEntryID string

	Notes     string
	CreatedAt time.Time
}

// ExternalRef is the ledger-side reference for this record, unique per
// company along with the origin.
func (r *ImportRecord) ExternalRef() string {
	return r.Platform + ":" + r.ExternalID
}
