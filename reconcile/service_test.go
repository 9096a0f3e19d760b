package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashloop/points-console/ledger"
	"github.com/cashloop/points-console/reconcile"
	"github.com/cashloop/points-console/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*reconcile.Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SaveCompany(context.Background(), ledger.Company{ID: "acme", Name: "Acme Shop", Active: true}))

	return reconcile.NewService(store, store, store), store
}

func claim(externalID string) reconcile.ImportInput {
	return reconcile.ImportInput{
		CompanyID:     "acme",
		Platform:      "awin",
		ExternalID:    externalID,
		UserEmail:     "alice@example.com",
		UserID:        "u-alice",
		ClaimedAmount: "59.90",
		Currency:      "EUR",
		ClaimedPoints: 120,
	}
}

// =============================================================================
// IMPORT TESTS
// =============================================================================

func TestService_Import_CreatesPendingRecord(t *testing.T) {
	svc, _ := newTestService(t)

	record, err := svc.Import(context.Background(), claim("ord-1"))
	require.NoError(t, err)

	assert.Equal(t, reconcile.ImportPending, record.Status)
	assert.Equal(t, "59.9", record.ClaimedAmount.String())
	assert.Empty(t, record.LinkedEntryID)
	assert.Equal(t, "awin:ord-1", record.ExternalRef())
}

func TestService_Import_DuplicateLiveClaim_Refused(t *testing.T) {
	// GIVEN: A pending claim for (company, platform, external id)
	// WHEN: Importing the same external event again
	// THEN: Refused with the duplicate kind

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, claim("ord-1"))
	require.NoError(t, err)

	_, err = svc.Import(ctx, claim("ord-1"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateExternalRef)
}

func TestService_Import_AfterRejection_SlotIsFree(t *testing.T) {
	// GIVEN: A rejected claim
	// WHEN: The network re-sends the corrected event
	// THEN: The re-import is accepted

	svc, _ := newTestService(t)
	ctx := context.Background()

	record, err := svc.Import(ctx, claim("ord-1"))
	require.NoError(t, err)
	_, err = svc.RejectImport(ctx, record.ID, "wrong amount", ledger.Actor{AdminID: "ops-1"})
	require.NoError(t, err)

	again, err := svc.Import(ctx, claim("ord-1"))
	require.NoError(t, err)
	assert.NotEqual(t, record.ID, again.ID)
	assert.Equal(t, reconcile.ImportPending, again.Status)
}

func TestService_Import_ValidationFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*reconcile.ImportInput)
	}{
		{"missing company", func(in *reconcile.ImportInput) { in.CompanyID = "" }},
		{"missing platform", func(in *reconcile.ImportInput) { in.Platform = "" }},
		{"missing external id", func(in *reconcile.ImportInput) { in.ExternalID = "" }},
		{"no user at all", func(in *reconcile.ImportInput) { in.UserEmail = ""; in.UserID = "" }},
		{"negative points", func(in *reconcile.ImportInput) { in.ClaimedPoints = -1 }},
		{"bad amount", func(in *reconcile.ImportInput) { in.ClaimedAmount = "fifty" }},
		{"negative amount", func(in *reconcile.ImportInput) { in.ClaimedAmount = "-2.50" }},
		{"unknown company", func(in *reconcile.ImportInput) { in.CompanyID = "ghost" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := claim("ord-x")
			tc.mutate(&in)
			_, err := svc.Import(ctx, in)
			assert.ErrorIs(t, err, ledger.ErrValidation)
		})
	}
}

// =============================================================================
// APPROVE TESTS - The atomic record+entry step
// =============================================================================

func TestService_ApproveImport_CreatesLinkedEntry(t *testing.T) {
	// GIVEN: A pending claim with a resolved user
	// WHEN: Approving with a final point value
	// THEN: Record approved, entry created approved, both sides linked

	svc, store := newTestService(t)
	ctx := context.Background()

	record, err := svc.Import(ctx, claim("ord-1"))
	require.NoError(t, err)

	approved, entry, err := svc.ApproveImport(ctx, record.ID, 110, "verified", ledger.Actor{AdminID: "ops-1"})
	require.NoError(t, err)

	assert.Equal(t, reconcile.ImportApproved, approved.Status)
	assert.Equal(t, int64(110), approved.FinalPoints)
	assert.Equal(t, entry.ID, approved.LinkedEntryID)

	assert.Equal(t, ledger.OriginAffiliateImport, entry.Origin)
	assert.Equal(t, ledger.StatusApproved, entry.Status)
	assert.Equal(t, int64(110), entry.SignedPoints)
	assert.Equal(t, "awin:ord-1", entry.ExternalRef)

	// The entry is real and queryable.
	stored, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.ApprovedAt)
}

func TestService_ApproveImport_Replay_ReturnsExistingLinkage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	record, err := svc.Import(ctx, claim("ord-1"))
	require.NoError(t, err)
	_, first, err := svc.ApproveImport(ctx, record.ID, 110, "", ledger.Actor{})
	require.NoError(t, err)

	_, second, err := svc.ApproveImport(ctx, record.ID, 110, "", ledger.Actor{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "replay must not create a second entry")

	// A replay with a different value is a conflict.
	_, _, err = svc.ApproveImport(ctx, record.ID, 120, "", ledger.Actor{})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestService_ApproveImport_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.ApproveImport(ctx, "nope", 100, "", ledger.Actor{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	record, err := svc.Import(ctx, claim("ord-1"))
	require.NoError(t, err)
	_, _, err = svc.ApproveImport(ctx, record.ID, 0, "", ledger.Actor{})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, _, err = svc.ApproveImport(ctx, record.ID, -10, "", ledger.Actor{})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestService_ApproveImport_UnresolvedUser_Refused(t *testing.T) {
	// A claim with only an email and no resolved user id cannot produce
	// a ledger entry yet.
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := claim("ord-1")
	in.UserID = ""
	record, err := svc.Import(ctx, in)
	require.NoError(t, err)

	_, _, err = svc.ApproveImport(ctx, record.ID, 110, "", ledger.Actor{})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestService_ApproveImport_RejectedRecord_Fails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	record, err := svc.Import(ctx, claim("ord-1"))
	require.NoError(t, err)
	_, err = svc.RejectImport(ctx, record.ID, "", ledger.Actor{})
	require.NoError(t, err)

	_, _, err = svc.ApproveImport(ctx, record.ID, 110, "", ledger.Actor{})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

// =============================================================================
// REJECT TESTS
// =============================================================================

func TestService_RejectImport_NoEntryCreated(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	record, err := svc.Import(ctx, claim("ord-1"))
	require.NoError(t, err)

	rejected, err := svc.RejectImport(ctx, record.ID, "tracking mismatch", ledger.Actor{AdminID: "ops-1"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.ImportRejected, rejected.Status)
	assert.Empty(t, rejected.LinkedEntryID)

	entries, err := store.ListUserEntries(ctx, "u-alice")
	require.NoError(t, err)
	assert.Empty(t, entries, "rejection must not touch the ledger")

	// Replay is a no-op.
	again, err := svc.RejectImport(ctx, record.ID, "", ledger.Actor{})
	require.NoError(t, err)
	assert.Equal(t, reconcile.ImportRejected, again.Status)
}

// =============================================================================
// LIST TESTS
// =============================================================================

func TestService_List_FilterByStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Import(ctx, claim("ord-1"))
	require.NoError(t, err)
	_, err = svc.Import(ctx, claim("ord-2"))
	require.NoError(t, err)
	_, _, err = svc.ApproveImport(ctx, a.ID, 110, "", ledger.Actor{})
	require.NoError(t, err)

	page, err := svc.List(ctx, reconcile.ImportFilter{Status: reconcile.ImportPending}, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "ord-2", page.Records[0].ExternalID)
}
