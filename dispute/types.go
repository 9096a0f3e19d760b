/*
Package dispute is the dispute case workflow: user-raised claims
adjudicated by administrators.

PURPOSE:
  Disputes share the ledger's assignment/approval/terminal-state
  discipline but are an independent state machine; resolving a dispute
  never mutates the ledger. A case may reference a company or plan for
  context only.

STATE MACHINE:
  open         -> in_review | resolved | rejected
  in_review    -> waiting_user | resolved | rejected
  waiting_user -> in_review | resolved | rejected
  resolved, rejected are terminal

  Trivial cases may go straight from open to a terminal state. A case
  in waiting_user returns to in_review when the user responds.

DELETION:
  Only resolved or rejected cases may be deleted; an open or
  in-progress case is never silently discarded.
*/
package dispute

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusOpen        Status = "open"
	StatusInReview    Status = "in_review"
	StatusWaitingUser Status = "waiting_user"
	StatusResolved    Status = "resolved"
	StatusRejected    Status = "rejected"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInReview, StatusWaitingUser, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transition.
func Terminal(s Status) bool {
	return s == StatusResolved || s == StatusRejected
}

// CanTransition is the single legal-transition table for dispute cases.
func CanTransition(from, to Status) bool {
	if Terminal(from) || from == to {
		return false
	}
	switch from {
	case StatusOpen:
		return to == StatusInReview || to == StatusResolved || to == StatusRejected
	case StatusInReview:
		return to == StatusWaitingUser || to == StatusResolved || to == StatusRejected
	case StatusWaitingUser:
		return to == StatusInReview || to == StatusResolved || to == StatusRejected
	}
	return false
}

// MaxEvidenceLinks bounds the evidence list on a case.
const MaxEvidenceLinks = 10

// =============================================================================
// CASE
// =============================================================================

// Case is a user claim requiring human adjudication.
type Case struct {
	ID string

	// UserID is empty for anonymous submissions. Company and plan are
	// context references only; resolution never touches the ledger.
	UserID    string
	CompanyID string
	PlanID    string

	Title       string
	Category    string
	Description string

	RequestedAmount   decimal.Decimal
	RequestedCurrency string

	EvidenceLinks []string

	Status Status

	// AssignedAdminID is set by the dedicated assign operation so that
	// claiming ownership never requires a full edit payload.
	AssignedAdminID string

	ResolutionNotes string
	CreatedAt       time.Time
}
