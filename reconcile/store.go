/*
store.go - Persistence interface for affiliate import records

PURPOSE:
  The reconciliation module needs one thing beyond ordinary CRUD: a
  single atomic step that marks a record approved AND creates the
  linked ledger entry. ApproveTx carries that; everything else is
  status-guarded updates in the same CAS discipline as the ledger.

SEE ALSO:
  - store/sqlite: Implements ApproveTx as one database transaction
  - repair.go:    Consumes FindUnlinkedApproved
*/
package reconcile

import (
	"context"
	"time"

	"github.com/cashloop/points-console/ledger"
)

// ImportFilter narrows list queries. Zero values mean "no filter".
type ImportFilter struct {
	CompanyID string
	Platform  string
	Status    ImportStatus
	Search    string // substring match on user email and external id
	From      *time.Time
	To        *time.Time
}

// ImportPage is one page of a list result.
type ImportPage struct {
	Records    []ImportRecord
	NextCursor ledger.Cursor
}

// ImportStore persists affiliate import records.
type ImportStore interface {
	// CreateImport inserts a record. Returns ErrDuplicateExternalRef if
	// a non-rejected record for (company, platform, external id) exists.
	CreateImport(ctx context.Context, r ImportRecord) error

	// GetImport returns a record, or nil when it does not exist.
	GetImport(ctx context.Context, id string) (*ImportRecord, error)

	// ApproveTx atomically transitions the record from pending to
	// approved (stamping final points and the linkage) and creates the
	// ledger entry, in one store transaction. Returns false when the
	// pending guard did not match.
	ApproveTx(ctx context.Context, recordID string, finalPoints int64, notes string, entry ledger.Entry) (bool, error)

	// RejectImport transitions pending -> rejected. Returns false when
	// the guard did not match.
	RejectImport(ctx context.Context, recordID, notes string) (bool, error)

	// ListImports returns one page of records, newest first.
	ListImports(ctx context.Context, f ImportFilter, cursor ledger.Cursor, limit int) (*ImportPage, error)

	// FindUnlinkedApproved returns approved records with no linked entry:
	// the partial-linkage invariant violation the repair scan fixes.
	FindUnlinkedApproved(ctx context.Context) ([]ImportRecord, error)

	// LinkImport completes the linkage on an approved, unlinked record.
	// Returns false when the guard did not match.
	LinkImport(ctx context.Context, recordID, entryID string) (bool, error)

	// RevertImport moves an approved, unlinked record back to pending so
	// it can be re-approved. Returns false when the guard did not match.
	RevertImport(ctx context.Context, recordID string) (bool, error)
}
