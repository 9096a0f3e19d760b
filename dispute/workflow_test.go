package dispute_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashloop/points-console/dispute"
	"github.com/cashloop/points-console/ledger"
	"github.com/cashloop/points-console/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) *dispute.Service {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return dispute.NewService(store)
}

func openCase(t *testing.T, svc *dispute.Service, title string) *dispute.Case {
	t.Helper()
	c, err := svc.Create(context.Background(), dispute.CreateInput{
		UserID: "u1",
		Title:  title,
	})
	require.NoError(t, err)
	return c
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestService_Create_OpensCase(t *testing.T) {
	svc := newTestService(t)

	c, err := svc.Create(context.Background(), dispute.CreateInput{
		UserID:          "u1",
		Title:           "Missing cashback",
		Category:        "missing_points",
		RequestedAmount: "31.00",
		EvidenceLinks:   []string{"https://example.com/receipt.pdf"},
	})
	require.NoError(t, err)

	assert.Equal(t, dispute.StatusOpen, c.Status)
	assert.Equal(t, "31", c.RequestedAmount.String())
	assert.Empty(t, c.AssignedAdminID)
}

func TestService_Create_Anonymous_Allowed(t *testing.T) {
	svc := newTestService(t)
	c, err := svc.Create(context.Background(), dispute.CreateInput{Title: "Wrong rate applied"})
	require.NoError(t, err)
	assert.Empty(t, c.UserID)
}

func TestService_Create_ValidationFailures(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, dispute.CreateInput{})
	assert.ErrorIs(t, err, ledger.ErrValidation, "title required")

	links := make([]string, dispute.MaxEvidenceLinks+1)
	for i := range links {
		links[i] = "https://example.com/x"
	}
	_, err = svc.Create(ctx, dispute.CreateInput{Title: "T", EvidenceLinks: links})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.Create(ctx, dispute.CreateInput{Title: "T", RequestedAmount: "lots"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = svc.Create(ctx, dispute.CreateInput{Title: "T", RequestedAmount: "-5"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// =============================================================================
// ASSIGN TESTS
// =============================================================================

func TestService_Assign_ClaimsCase(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c := openCase(t, svc, "Short payout")

	assigned, err := svc.Assign(ctx, c.ID, ledger.Actor{AdminID: "ops-dana"})
	require.NoError(t, err)
	assert.Equal(t, "ops-dana", assigned.AssignedAdminID)
	assert.Equal(t, dispute.StatusOpen, assigned.Status, "assignment does not change status")

	// Same admin claiming again is a replay.
	again, err := svc.Assign(ctx, c.ID, ledger.Actor{AdminID: "ops-dana"})
	require.NoError(t, err)
	assert.Equal(t, "ops-dana", again.AssignedAdminID)
}

func TestService_Assign_RequiresAdmin(t *testing.T) {
	svc := newTestService(t)
	c := openCase(t, svc, "X")

	_, err := svc.Assign(context.Background(), c.ID, ledger.Actor{})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestService_Assign_TerminalCase_Fails(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c := openCase(t, svc, "X")

	_, err := svc.Update(ctx, c.ID, dispute.StatusResolved, "done", ledger.Actor{AdminID: "ops-1"})
	require.NoError(t, err)

	_, err = svc.Assign(ctx, c.ID, ledger.Actor{AdminID: "ops-2"})
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

// =============================================================================
// UPDATE TESTS
// =============================================================================

func TestService_Update_WalksTheMachine(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c := openCase(t, svc, "Missing cashback")
	actor := ledger.Actor{AdminID: "ops-1"}

	c, err := svc.Update(ctx, c.ID, dispute.StatusInReview, "", actor)
	require.NoError(t, err)
	assert.Equal(t, dispute.StatusInReview, c.Status)

	c, err = svc.Update(ctx, c.ID, dispute.StatusWaitingUser, "need the receipt", actor)
	require.NoError(t, err)
	assert.Equal(t, dispute.StatusWaitingUser, c.Status)
	assert.Equal(t, "need the receipt", c.ResolutionNotes)

	c, err = svc.Update(ctx, c.ID, dispute.StatusResolved, "credited manually", actor)
	require.NoError(t, err)
	assert.Equal(t, dispute.StatusResolved, c.Status)
	assert.Equal(t, "credited manually", c.ResolutionNotes)
}

func TestService_Update_IllegalTransitions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := ledger.Actor{AdminID: "ops-1"}

	// open -> waiting_user skips review.
	c := openCase(t, svc, "A")
	_, err := svc.Update(ctx, c.ID, dispute.StatusWaitingUser, "", actor)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	// Terminal cases never move again.
	c = openCase(t, svc, "B")
	_, err = svc.Update(ctx, c.ID, dispute.StatusRejected, "", actor)
	require.NoError(t, err)
	_, err = svc.Update(ctx, c.ID, dispute.StatusInReview, "", actor)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	// Unknown status is validation, not transition.
	c = openCase(t, svc, "C")
	_, err = svc.Update(ctx, c.ID, "mystery", "", actor)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestService_Update_SameStatus_IsReplay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c := openCase(t, svc, "A")
	actor := ledger.Actor{AdminID: "ops-1"}

	_, err := svc.Update(ctx, c.ID, dispute.StatusInReview, "", actor)
	require.NoError(t, err)
	again, err := svc.Update(ctx, c.ID, dispute.StatusInReview, "", actor)
	require.NoError(t, err)
	assert.Equal(t, dispute.StatusInReview, again.Status)
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestService_Delete_TerminalOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := ledger.Actor{AdminID: "ops-1"}

	open := openCase(t, svc, "Open case")
	err := svc.Delete(ctx, open.ID, actor)
	assert.ErrorIs(t, err, ledger.ErrPreconditionFailed)

	resolved := openCase(t, svc, "Resolved case")
	_, err = svc.Update(ctx, resolved.ID, dispute.StatusResolved, "", actor)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, resolved.ID, actor))

	_, err = svc.Get(ctx, resolved.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestService_Delete_RejectedCase_ExactlyOnce(t *testing.T) {
	// GIVEN: A rejected case
	// WHEN: Deleting it twice
	// THEN: The first delete lands; the second reports not found

	svc := newTestService(t)
	ctx := context.Background()
	actor := ledger.Actor{AdminID: "ops-1"}

	c := openCase(t, svc, "Bogus claim")
	_, err := svc.Update(ctx, c.ID, dispute.StatusRejected, "", actor)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, c.ID, actor))
	err = svc.Delete(ctx, c.ID, actor)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// LIST TESTS
// =============================================================================

func TestService_List_FiltersAndTotals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	actor := ledger.Actor{AdminID: "ops-1"}

	a := openCase(t, svc, "Missing cashback for order 7")
	openCase(t, svc, "Payout short")
	_, err := svc.Update(ctx, a.ID, dispute.StatusInReview, "", actor)
	require.NoError(t, err)
	_, err = svc.Assign(ctx, a.ID, actor)
	require.NoError(t, err)

	page, err := svc.List(ctx, dispute.Filter{Status: dispute.StatusInReview}, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Cases, 1)
	assert.Equal(t, a.ID, page.Cases[0].ID)
	assert.Equal(t, 1, page.Totals[dispute.StatusOpen])
	assert.Equal(t, 1, page.Totals[dispute.StatusInReview])

	page, err = svc.List(ctx, dispute.Filter{Assigned: "ops-1"}, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Cases, 1)

	page, err = svc.List(ctx, dispute.Filter{Search: "cashback"}, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Cases, 1)
}
