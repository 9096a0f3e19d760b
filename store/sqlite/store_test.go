package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashloop/points-console/dispute"
	"github.com/cashloop/points-console/ledger"
	"github.com/cashloop/points-console/reconcile"
	"github.com/cashloop/points-console/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testEntry(userID string, points int64) ledger.Entry {
	return ledger.Entry{
		ID:           uuid.NewString(),
		UserID:       userID,
		CompanyID:    "acme",
		SignedPoints: points,
		Origin:       ledger.OriginShopPurchase,
		Status:       ledger.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

func importEntry(companyID, externalRef string) ledger.Entry {
	now := time.Now().UTC()
	return ledger.Entry{
		ID:           uuid.NewString(),
		UserID:       "u1",
		CompanyID:    companyID,
		SignedPoints: 100,
		Origin:       ledger.OriginAffiliateImport,
		Status:       ledger.StatusApproved,
		ExternalRef:  externalRef,
		CreatedAt:    now,
		ApprovedAt:   &now,
	}
}

// =============================================================================
// ENTRY CRUD AND CAS TESTS
// =============================================================================

func TestStore_Entry_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := testEntry("u1", 500)
	e.Notes = "order #1001"
	require.NoError(t, store.CreateEntry(ctx, e))

	got, err := store.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.UserID, got.UserID)
	assert.Equal(t, e.SignedPoints, got.SignedPoints)
	assert.Equal(t, e.Notes, got.Notes)
	assert.Nil(t, got.ApprovedAt)
	assert.True(t, e.CreatedAt.Equal(got.CreatedAt))
}

func TestStore_GetEntry_Missing_ReturnsNil(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetEntry(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_TransitionEntry_GuardEnforced(t *testing.T) {
	// GIVEN: A pending entry
	// WHEN: Two transitions race with the same expected status
	// THEN: Exactly one CAS succeeds

	store := newTestStore(t)
	ctx := context.Background()
	e := testEntry("u1", 500)
	require.NoError(t, store.CreateEntry(ctx, e))

	now := time.Now().UTC()
	ok, err := store.TransitionEntry(ctx, e.ID, ledger.StatusPending, ledger.StatusApproved, ledger.EntryMutation{ApprovedAt: &now})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TransitionEntry(ctx, e.ID, ledger.StatusPending, ledger.StatusRejected, ledger.EntryMutation{})
	require.NoError(t, err)
	assert.False(t, ok, "guard must not match after the first transition")

	got, err := store.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedAt)
}

func TestStore_TransitionEntry_SetPointsAppliedAtomically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	e := testEntry("u1", 120)
	e.Origin = ledger.OriginAffiliateImport
	e.ExternalRef = "awin:1"
	require.NoError(t, store.CreateEntry(ctx, e))

	final := int64(110)
	now := time.Now().UTC()
	notes := "verified"
	ok, err := store.TransitionEntry(ctx, e.ID, ledger.StatusPending, ledger.StatusApproved, ledger.EntryMutation{
		SetPoints:  &final,
		SetNotes:   &notes,
		ApprovedAt: &now,
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(110), got.SignedPoints)
	assert.Equal(t, "verified", got.Notes)
}

func TestStore_DeleteEntry_AllowedStatusesOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	e := testEntry("u1", 500)
	require.NoError(t, store.CreateEntry(ctx, e))

	ok, err := store.DeleteEntry(ctx, e.ID, []ledger.Status{ledger.StatusRejected})
	require.NoError(t, err)
	assert.False(t, ok, "pending entry not in allowed set")

	ok, err = store.DeleteEntry(ctx, e.ID, []ledger.Status{ledger.StatusPending, ledger.StatusRejected})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// =============================================================================
// UNIQUENESS INVARIANT TESTS
// =============================================================================

func TestStore_CreateEntry_DuplicateExternalRef_Rejected(t *testing.T) {
	// GIVEN: An affiliate-import entry for (company, external ref)
	// WHEN: Inserting a second entry for the same pair
	// THEN: Rejected with the duplicate kind

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEntry(ctx, importEntry("acme", "awin:ord-1")))
	err := store.CreateEntry(ctx, importEntry("acme", "awin:ord-1"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateExternalRef)
}

func TestStore_CreateEntry_SameRefDifferentCompany_Allowed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEntry(ctx, importEntry("acme", "awin:ord-1")))
	assert.NoError(t, store.CreateEntry(ctx, importEntry("globex", "awin:ord-1")))
}

func TestStore_CreateEntry_NonImportEntriesIgnoreIndex(t *testing.T) {
	// The unique index is partial: plain purchases never collide even
	// with identical empty refs.
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEntry(ctx, testEntry("u1", 100)))
	assert.NoError(t, store.CreateEntry(ctx, testEntry("u1", 100)))
}

// =============================================================================
// PAGINATION TESTS
// =============================================================================

func TestStore_ListEntries_NewestFirstStableCursor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	ids := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		e := testEntry("u1", int64(100+i))
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.CreateEntry(ctx, e))
		ids = append(ids, e.ID)
	}

	page, err := store.ListEntries(ctx, ledger.EntryFilter{UserID: "u1"}, "", 3)
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, ids[6], page.Entries[0].ID, "newest first")
	require.NotEmpty(t, page.NextCursor)

	page2, err := store.ListEntries(ctx, ledger.EntryFilter{UserID: "u1"}, page.NextCursor, 3)
	require.NoError(t, err)
	require.Len(t, page2.Entries, 3)
	assert.Equal(t, ids[3], page2.Entries[0].ID)

	page3, err := store.ListEntries(ctx, ledger.EntryFilter{UserID: "u1"}, page2.NextCursor, 3)
	require.NoError(t, err)
	require.Len(t, page3.Entries, 1)
	assert.Empty(t, page3.NextCursor, "last page carries no cursor")
}

func TestStore_ListEntries_SubSecondTimestampsSortByTime(t *testing.T) {
	// GIVEN: Entries in the same second with fractional timestamps whose
	//        trimmed encodings would sort differently than their times
	//        (.12 < .1 as strings, whole seconds after any fraction)
	// WHEN: Listing and range-filtering
	// THEN: Order and filters follow time, matching the in-memory store

	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	offsets := []time.Duration{
		0,
		100 * time.Millisecond,
		120 * time.Millisecond,
		time.Second,
	}
	ids := make([]string, len(offsets))
	for i, off := range offsets {
		e := testEntry("u1", int64(100+i))
		e.CreatedAt = base.Add(off)
		require.NoError(t, store.CreateEntry(ctx, e))
		ids[i] = e.ID
	}

	page, err := store.ListEntries(ctx, ledger.EntryFilter{UserID: "u1"}, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Entries, 4)
	assert.Equal(t, ids[3], page.Entries[0].ID)
	assert.Equal(t, ids[2], page.Entries[1].ID, ".12 is newer than .1")
	assert.Equal(t, ids[1], page.Entries[2].ID)
	assert.Equal(t, ids[0], page.Entries[3].ID, "whole second is oldest")

	// Cursor continues across the fractional boundary without skips.
	page, err = store.ListEntries(ctx, ledger.EntryFilter{UserID: "u1"}, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, ids[2], page.Entries[1].ID)
	page, err = store.ListEntries(ctx, ledger.EntryFilter{UserID: "u1"}, page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, ids[1], page.Entries[0].ID)
	assert.Equal(t, ids[0], page.Entries[1].ID)

	from := base.Add(110 * time.Millisecond)
	page, err = store.ListEntries(ctx, ledger.EntryFilter{UserID: "u1", From: &from}, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2, "range filter must compare by time")
	assert.Equal(t, ids[3], page.Entries[0].ID)
	assert.Equal(t, ids[2], page.Entries[1].ID)
}

func TestStore_ListEntries_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	credit := testEntry("u1", 500)
	credit.Notes = "birthday bonus"
	require.NoError(t, store.CreateEntry(ctx, credit))

	redeem := testEntry("u1", -200)
	redeem.Origin = ledger.OriginRedeemRequest
	require.NoError(t, store.CreateEntry(ctx, redeem))

	other := testEntry("u2", 300)
	require.NoError(t, store.CreateEntry(ctx, other))

	page, err := store.ListEntries(ctx, ledger.EntryFilter{Origin: ledger.OriginRedeemRequest}, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, redeem.ID, page.Entries[0].ID)

	page, err = store.ListEntries(ctx, ledger.EntryFilter{Search: "birthday"}, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, credit.ID, page.Entries[0].ID)

	min := int64(250)
	page, err = store.ListEntries(ctx, ledger.EntryFilter{MinPoints: &min}, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)
}

// =============================================================================
// IMPORT RECORD TESTS
// =============================================================================

func testImport(externalID string) reconcile.ImportRecord {
	return reconcile.ImportRecord{
		ID:            uuid.NewString(),
		CompanyID:     "acme",
		Platform:      "awin",
		ExternalID:    externalID,
		UserEmail:     "alice@example.com",
		UserID:        "u1",
		ClaimedPoints: 120,
		Status:        reconcile.ImportPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestStore_CreateImport_DuplicateLive_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateImport(ctx, testImport("ord-1")))
	err := store.CreateImport(ctx, testImport("ord-1"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateExternalRef)
}

func TestStore_CreateImport_RejectedRecordFreesSlot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testImport("ord-1")
	require.NoError(t, store.CreateImport(ctx, first))
	ok, err := store.RejectImport(ctx, first.ID, "bad data")
	require.NoError(t, err)
	require.True(t, ok)

	assert.NoError(t, store.CreateImport(ctx, testImport("ord-1")))
}

func TestStore_ApproveTx_AtomicRecordAndEntry(t *testing.T) {
	// GIVEN: A pending record
	// WHEN: ApproveTx runs
	// THEN: Record approved with linkage AND entry inserted, one transaction

	store := newTestStore(t)
	ctx := context.Background()

	record := testImport("ord-1")
	require.NoError(t, store.CreateImport(ctx, record))

	entry := importEntry("acme", "awin:ord-1")
	ok, err := store.ApproveTx(ctx, record.ID, 110, "verified", entry)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.GetImport(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, reconcile.ImportApproved, got.Status)
	assert.Equal(t, int64(110), got.FinalPoints)
	assert.Equal(t, entry.ID, got.LinkedEntryID)

	stored, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestStore_ApproveTx_GuardFailure_LeavesNoEntry(t *testing.T) {
	// GIVEN: A record already rejected
	// WHEN: ApproveTx runs against it
	// THEN: The guard fails and the entry insert is rolled back with it

	store := newTestStore(t)
	ctx := context.Background()

	record := testImport("ord-1")
	require.NoError(t, store.CreateImport(ctx, record))
	ok, err := store.RejectImport(ctx, record.ID, "")
	require.NoError(t, err)
	require.True(t, ok)

	entry := importEntry("acme", "awin:ord-1")
	ok, err = store.ApproveTx(ctx, record.ID, 110, "", entry)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, stored, "guard failure must roll the entry back")
}

// =============================================================================
// DISPUTE STORE TESTS
// =============================================================================

func testCase(title string) dispute.Case {
	return dispute.Case{
		ID:        uuid.NewString(),
		UserID:    "u1",
		Title:     title,
		Status:    dispute.StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
}

func TestStore_Dispute_RoundTripWithEvidence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCase("Missing cashback")
	c.EvidenceLinks = []string{"https://example.com/a.pdf", "https://example.com/b.png"}
	require.NoError(t, store.CreateCase(ctx, c))

	got, err := store.GetCase(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.EvidenceLinks, got.EvidenceLinks)
}

func TestStore_AssignCase_TerminalCasesRefused(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCase("Short payout")
	require.NoError(t, store.CreateCase(ctx, c))

	ok, err := store.AssignCase(ctx, c.ID, "ops-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TransitionCase(ctx, c.ID, dispute.StatusOpen, dispute.StatusResolved, dispute.CaseMutation{})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.AssignCase(ctx, c.ID, "ops-2")
	require.NoError(t, err)
	assert.False(t, ok, "resolved case cannot be re-assigned")
}

func TestStore_ListCases_TotalsIgnoreFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	open := testCase("A")
	require.NoError(t, store.CreateCase(ctx, open))
	resolved := testCase("B")
	resolved.Status = dispute.StatusResolved
	require.NoError(t, store.CreateCase(ctx, resolved))

	page, err := store.ListCases(ctx, dispute.Filter{Status: dispute.StatusOpen}, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Cases, 1)
	assert.Equal(t, 1, page.Totals[dispute.StatusOpen])
	assert.Equal(t, 1, page.Totals[dispute.StatusResolved], "totals count the whole table")
}

// =============================================================================
// RESET TESTS
// =============================================================================

func TestStore_Reset_ClearsEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCompany(ctx, ledger.Company{ID: "acme", Name: "Acme", Active: true, CreatedAt: time.Now().UTC()}))
	require.NoError(t, store.CreateEntry(ctx, testEntry("u1", 100)))
	require.NoError(t, store.CreateImport(ctx, testImport("ord-1")))
	require.NoError(t, store.CreateCase(ctx, testCase("X")))

	require.NoError(t, store.Reset(ctx))

	companies, err := store.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Empty(t, companies)
	entries, err := store.ListUserEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
