/*
store.go - Persistence interfaces for the ledger

PURPOSE:
  Defines the contract between the engine and the database. The engine
  requires only three things from a store:
  1. Atomic compare-and-swap status updates ("set status=X where id=Y and
     status=<expected>"), so concurrent approve/reject races resolve to
     exactly one winner
  2. Unique-constraint enforcement on (company, external ref) for
     affiliate-import entries
  3. Hard delete that is itself guarded by the deletable statuses

CURSOR PAGINATION:
  List operations take an opaque cursor and return the next one. The
  cursor encodes (created_at, id) of the last row so pages stay stable
  under concurrent inserts. Page size is capped by the caller.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - ledger/store: In-memory for unit tests

SEE ALSO:
  - engine.go: The only consumer of EntryStore's mutating methods
*/
package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"
)

// MaxPageSize caps every list operation.
const MaxPageSize = 20

// =============================================================================
// ENTRY STORE
// =============================================================================

// EntryMutation is the set of fields a status transition may stamp
// alongside the status itself. SignedPoints may be set only on approval
// of an affiliate import; nothing ever changes it afterwards.
type EntryMutation struct {
	SetPoints   *int64
	SetNotes    *string
	ApprovedAt  *time.Time
	FulfilledAt *time.Time
}

// EntryFilter narrows list queries. Zero values mean "no filter".
type EntryFilter struct {
	UserID    string
	CompanyID string
	Origin    Origin
	Status    Status
	Search    string // substring match on notes
	From      *time.Time
	To        *time.Time
	MinPoints *int64
	MaxPoints *int64
}

// EntryPage is one page of a list result.
type EntryPage struct {
	Entries    []Entry
	NextCursor Cursor
}

// EntryStore persists ledger entries.
type EntryStore interface {
	// CreateEntry inserts a new entry. Returns ErrDuplicateExternalRef if
	// an affiliate-import entry with the same (company, external ref)
	// already exists.
	CreateEntry(ctx context.Context, e Entry) error

	// GetEntry returns an entry, or nil when it does not exist.
	GetEntry(ctx context.Context, id string) (*Entry, error)

	// TransitionEntry atomically moves an entry from one status to
	// another, applying the mutation in the same write. Returns false
	// when the status guard did not match; the caller re-reads to decide
	// between not-found, an idempotent replay, and a lost race.
	TransitionEntry(ctx context.Context, id string, from, to Status, mut EntryMutation) (bool, error)

	// DeleteEntry removes an entry if its status is one of allowed.
	// Returns false when the guard did not match (or no such entry).
	DeleteEntry(ctx context.Context, id string, allowed []Status) (bool, error)

	// ListEntries returns one page of entries matching the filter,
	// newest first.
	ListEntries(ctx context.Context, f EntryFilter, cursor Cursor, limit int) (*EntryPage, error)

	// ListUserEntries returns every entry for a user, for the balance
	// fold. No pagination: the projection must see the whole history.
	ListUserEntries(ctx context.Context, userID string) ([]Entry, error)
}

// =============================================================================
// COMPANY STORE
// =============================================================================

type CompanyStore interface {
	SaveCompany(ctx context.Context, c Company) error
	GetCompany(ctx context.Context, id string) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)

	// SetCompanyActive flips the active flag. Returns false when the
	// company does not exist.
	SetCompanyActive(ctx context.Context, id string, active bool) (bool, error)
}

// =============================================================================
// CURSOR - Opaque, stable list position
// =============================================================================

// Cursor is an opaque list position. Clients must treat it as a token.
type Cursor string

type cursorPayload struct {
	T  time.Time `json:"t"`
	ID string    `json:"id"`
}

// EncodeCursor builds a cursor from the last row of a page.
func EncodeCursor(t time.Time, id string) Cursor {
	raw, _ := json.Marshal(cursorPayload{T: t, ID: id})
	return Cursor(base64.RawURLEncoding.EncodeToString(raw))
}

// DecodeCursor unpacks a cursor. An empty cursor means "from the top".
// A malformed cursor is a validation error: it indicates a corrupted or
// hand-built token, not a stale one.
func DecodeCursor(c Cursor) (time.Time, string, error) {
	if c == "" {
		return time.Time{}, "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return time.Time{}, "", &ValidationError{Field: "cursor", Reason: "malformed"}
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return time.Time{}, "", &ValidationError{Field: "cursor", Reason: "malformed"}
	}
	return p.T, p.ID, nil
}

// ClampPageSize normalizes a requested page size to [1, MaxPageSize].
func ClampPageSize(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
