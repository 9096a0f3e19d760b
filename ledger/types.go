/*
Package ledger is the points ledger and approval workflow engine.

PURPOSE:
  This package owns the entities, status state machines, and balance
  derivation rule for a cashback/rewards points ledger. Entries arrive
  through different channels (shop purchases, affiliate imports, manual
  grants, redeem requests), pass through an approval pipeline, and must
  never be double-counted, double-approved, or deleted once they have
  financial effect.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry:   A signed points movement for a user against a company
  - Origin:  The channel that created an entry
  - Status:  Where the entry sits in the approval lifecycle
  - Company: The merchant the points were earned against

DESIGN PRINCIPLES:
  1. Immutability: signed points never change after approval; corrections
     are new entries, never edits to history
  2. Derivation: a user's balance is always recomputed from entries,
     never stored authoritatively
  3. Type Safety: statuses and origins are closed typed constants, and
     the legal-transition table lives in exactly one place (machine.go)

SEE ALSO:
  - machine.go: Legal status transitions
  - engine.go:  Mutating operations (submit/approve/reject/fulfill/delete)
  - balance.go: Balance projection
  - store.go:   Persistence interfaces
*/
package ledger

import (
	"time"
)

// =============================================================================
// ORIGIN - Which channel created the entry
// =============================================================================

type Origin string

const (
	// OriginShopPurchase is points credited for a direct shop purchase.
	OriginShopPurchase Origin = "shop_purchase"

	// OriginAffiliateImport is points credited from an imported
	// affiliate-network record, created only by the reconcile package.
	OriginAffiliateImport Origin = "affiliate_import"

	// OriginManualGrant is an administrator-entered override. Grants may
	// be created already approved or redeemed since a human vetted them
	// at entry time.
	OriginManualGrant Origin = "manual_grant"

	// OriginRedeemRequest is a payout request: a negative entry that
	// consumes balance once approved.
	OriginRedeemRequest Origin = "redeem_request"
)

// ValidOrigin reports whether o is a known origin.
func ValidOrigin(o Origin) bool {
	switch o {
	case OriginShopPurchase, OriginAffiliateImport, OriginManualGrant, OriginRedeemRequest:
		return true
	}
	return false
}

// =============================================================================
// STATUS - Approval lifecycle state
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRedeemed Status = "redeemed"
	StatusRejected Status = "rejected"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRedeemed, StatusRejected:
		return true
	}
	return false
}

// =============================================================================
// ENTRY - A signed points movement
// =============================================================================

// Entry is a single signed points movement for a user against a company.
// Positive points are credits; negative points are payout requests.
type Entry struct {
	ID        string
	UserID    string
	CompanyID string

	// SignedPoints is immutable after approval. The only legal write is
	// the final-points override on approval of an affiliate import.
	SignedPoints int64

	Origin Origin
	Status Status

	// ExternalRef identifies the external affiliate event this entry was
	// reconciled from. Set only for OriginAffiliateImport; unique per
	// company (enforced at the store level).
	ExternalRef string

	Notes string

	CreatedAt   time.Time
	ApprovedAt  *time.Time
	FulfilledAt *time.Time
}

// Terminal reports whether the entry can never transition again.
func (e *Entry) Terminal() bool {
	return e.Status == StatusRejected || e.Status == StatusRedeemed
}

// =============================================================================
// COMPANY - Merchant registry
// =============================================================================

// Company is the merchant a ledger entry is earned against. Submit
// validates that the referenced company exists and is active.
type Company struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// =============================================================================
// ACTOR - The acting administrator
// =============================================================================

// Actor identifies the administrator performing an operation. Supplied by
// an external authorization provider; the engine only needs a stable id.
type Actor struct {
	AdminID string
}
