package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashloop/points-console/ledger"
)

// =============================================================================
// BALANCE FOLD TESTS
// =============================================================================

func TestComputeBalance_OnlyApprovedAndRedeemedContribute(t *testing.T) {
	entries := []ledger.Entry{
		{SignedPoints: 500, Status: ledger.StatusApproved},
		{SignedPoints: 300, Status: ledger.StatusPending},
		{SignedPoints: 200, Status: ledger.StatusRejected},
		{SignedPoints: -150, Status: ledger.StatusRedeemed, Origin: ledger.OriginRedeemRequest},
	}

	b := ledger.ComputeBalance("u1", entries)
	assert.Equal(t, int64(350), b.Available, "500 approved - 150 redeemed")
	assert.Equal(t, int64(300), b.PendingIn)
	assert.Equal(t, int64(0), b.PendingOut)
}

func TestComputeBalance_PendingSplitsBySign(t *testing.T) {
	entries := []ledger.Entry{
		{SignedPoints: 120, Status: ledger.StatusPending},
		{SignedPoints: -80, Status: ledger.StatusPending, Origin: ledger.OriginRedeemRequest},
	}

	b := ledger.ComputeBalance("u1", entries)
	assert.Equal(t, int64(0), b.Available)
	assert.Equal(t, int64(120), b.PendingIn)
	assert.Equal(t, int64(80), b.PendingOut, "pending-out is a magnitude")
}

func TestComputeBalance_Empty(t *testing.T) {
	b := ledger.ComputeBalance("u1", nil)
	assert.Equal(t, ledger.Balance{UserID: "u1"}, b)
}

func TestComputeBalance_ApprovedRedeemReducesAvailable(t *testing.T) {
	// Approving a payout request reduces Available immediately; no
	// separate reservation bookkeeping exists.
	entries := []ledger.Entry{
		{SignedPoints: 500, Status: ledger.StatusApproved},
		{SignedPoints: -200, Status: ledger.StatusApproved, Origin: ledger.OriginRedeemRequest},
	}

	b := ledger.ComputeBalance("u1", entries)
	assert.Equal(t, int64(300), b.Available)
	assert.Equal(t, int64(0), b.PendingOut)
}

func TestEngine_Balance_TracksLifecycle(t *testing.T) {
	// GIVEN: A user with credits and a payout request in flight
	// WHEN: The entries move through their lifecycle
	// THEN: The derived balance tracks each transition with no stored state

	en := newTestEngine(t)
	ctx := context.Background()

	credit := submitPurchase(t, en, "u1", 500)
	redeem := submitRedeem(t, en, "u1", -200)

	b, err := en.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ledger.Balance{UserID: "u1", PendingIn: 500, PendingOut: 200}, *b)

	_, err = en.Approve(ctx, credit.ID, nil, "", ledger.Actor{})
	require.NoError(t, err)
	_, err = en.Approve(ctx, redeem.ID, nil, "", ledger.Actor{})
	require.NoError(t, err)

	b, err = en.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ledger.Balance{UserID: "u1", Available: 300}, *b)

	// Fulfilment does not change Available again.
	_, err = en.Fulfill(ctx, redeem.ID, ledger.Actor{})
	require.NoError(t, err)
	b, err = en.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), b.Available)
}

func TestEngine_Balance_UnknownUser_IsZero(t *testing.T) {
	en := newTestEngine(t)
	b, err := en.Balance(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, ledger.Balance{UserID: "ghost"}, *b)
}
