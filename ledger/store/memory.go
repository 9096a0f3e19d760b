// Package store provides an in-memory EntryStore and CompanyStore
// implementation for unit tests and development.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cashloop/points-console/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	entries   map[string]ledger.Entry
	companies map[string]ledger.Company
}

func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[string]ledger.Entry),
		companies: make(map[string]ledger.Company),
	}
}

var _ ledger.EntryStore = (*Memory)(nil)
var _ ledger.CompanyStore = (*Memory)(nil)

// CreateEntry inserts an entry, enforcing the external-ref uniqueness
// invariant the same way the SQLite unique index does.
func (m *Memory) CreateEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.Origin == ledger.OriginAffiliateImport && e.ExternalRef != "" {
		for _, existing := range m.entries {
			if existing.Origin == ledger.OriginAffiliateImport &&
				existing.CompanyID == e.CompanyID &&
				existing.ExternalRef == e.ExternalRef {
				return ledger.ErrDuplicateExternalRef
			}
		}
	}

	m.entries[e.ID] = e
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id string) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// TransitionEntry is the CAS: the status guard and the write happen
// under one lock, mirroring a single guarded UPDATE.
func (m *Memory) TransitionEntry(_ context.Context, id string, from, to ledger.Status, mut ledger.EntryMutation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.Status != from {
		return false, nil
	}

	e.Status = to
	if mut.SetPoints != nil {
		e.SignedPoints = *mut.SetPoints
	}
	if mut.SetNotes != nil {
		e.Notes = *mut.SetNotes
	}
	if mut.ApprovedAt != nil {
		e.ApprovedAt = mut.ApprovedAt
	}
	if mut.FulfilledAt != nil {
		e.FulfilledAt = mut.FulfilledAt
	}
	m.entries[id] = e
	return true, nil
}

func (m *Memory) DeleteEntry(_ context.Context, id string, allowed []ledger.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	for _, s := range allowed {
		if e.Status == s {
			delete(m.entries, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListEntries(_ context.Context, f ledger.EntryFilter, cursor ledger.Cursor, limit int) (*ledger.EntryPage, error) {
	afterT, afterID, err := ledger.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	var matched []ledger.Entry
	for _, e := range m.entries {
		if !matchEntry(e, f) {
			continue
		}
		matched = append(matched, e)
	}
	m.mu.RUnlock()

	// Newest first, id as tiebreaker, same order as the SQL store.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	page := &ledger.EntryPage{}
	for _, e := range matched {
		if afterID != "" {
			if e.CreatedAt.After(afterT) || (e.CreatedAt.Equal(afterT) && e.ID >= afterID) {
				continue
			}
		}
		if len(page.Entries) == limit {
			last := page.Entries[len(page.Entries)-1]
			page.NextCursor = ledger.EncodeCursor(last.CreatedAt, last.ID)
			return page, nil
		}
		page.Entries = append(page.Entries, e)
	}
	return page, nil
}

func (m *Memory) ListUserEntries(_ context.Context, userID string) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Entry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func matchEntry(e ledger.Entry, f ledger.EntryFilter) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.CompanyID != "" && e.CompanyID != f.CompanyID {
		return false
	}
	if f.Origin != "" && e.Origin != f.Origin {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Notes), strings.ToLower(f.Search)) {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	if f.MinPoints != nil && e.SignedPoints < *f.MinPoints {
		return false
	}
	if f.MaxPoints != nil && e.SignedPoints > *f.MaxPoints {
		return false
	}
	return true
}

// =============================================================================
// COMPANY STORE
// =============================================================================

func (m *Memory) SaveCompany(_ context.Context, c ledger.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
	return nil
}

func (m *Memory) GetCompany(_ context.Context, id string) (*ledger.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) ListCompanies(_ context.Context) ([]ledger.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SetCompanyActive(_ context.Context, id string, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.companies[id]
	if !ok {
		return false, nil
	}
	c.Active = active
	m.companies[id] = c
	return true, nil
}
