/*
store.go - Persistence interface for dispute cases

PURPOSE:
  Same CAS discipline as the ledger: every transition is a
  status-guarded update. Listing additionally returns totals by status
  computed next to any filtered page, so operators always see the
  global queue depth alongside the filtered result.
*/
package dispute

import (
	"context"
	"time"

	"github.com/cashloop/points-console/ledger"
)

// Filter narrows list queries. Zero values mean "no filter".
type Filter struct {
	UserID    string
	CompanyID string
	Status    Status
	Assigned  string // assigned admin id
	Search    string // substring match on title and description
	From      *time.Time
	To        *time.Time
}

// Page is one page of cases plus the unfiltered totals by status.
type Page struct {
	Cases      []Case
	NextCursor ledger.Cursor

	// Totals counts every case per status regardless of the filter.
	Totals map[Status]int
}

// CaseMutation is what a transition may stamp alongside the status.
type CaseMutation struct {
	SetResolutionNotes *string
	SetAssignedAdminID *string
}

// Store persists dispute cases.
type Store interface {
	CreateCase(ctx context.Context, c Case) error

	// GetCase returns a case, or nil when it does not exist.
	GetCase(ctx context.Context, id string) (*Case, error)

	// TransitionCase atomically moves a case between statuses. Returns
	// false when the guard did not match.
	TransitionCase(ctx context.Context, id string, from, to Status, mut CaseMutation) (bool, error)

	// AssignCase sets the assigned admin without touching status.
	// Returns false when the case does not exist or is terminal.
	AssignCase(ctx context.Context, id, adminID string) (bool, error)

	// DeleteCase removes a case if its status is one of allowed.
	// Returns false when the guard did not match.
	DeleteCase(ctx context.Context, id string, allowed []Status) (bool, error)

	// ListCases returns one page plus totals by status, newest first.
	ListCases(ctx context.Context, f Filter, cursor ledger.Cursor, limit int) (*Page, error)
}
