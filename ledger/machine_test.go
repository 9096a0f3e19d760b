package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cashloop/points-console/ledger"
)

// =============================================================================
// TRANSITION TABLE TESTS
// =============================================================================

func TestCanTransition_FromPending(t *testing.T) {
	// GIVEN: A pending entry of any origin
	// WHEN: Checking every target status
	// THEN: Only approved and rejected are legal

	origins := []ledger.Origin{
		ledger.OriginShopPurchase,
		ledger.OriginAffiliateImport,
		ledger.OriginManualGrant,
		ledger.OriginRedeemRequest,
	}
	for _, origin := range origins {
		assert.True(t, ledger.CanTransition(origin, ledger.StatusPending, ledger.StatusApproved), "%s pending->approved", origin)
		assert.True(t, ledger.CanTransition(origin, ledger.StatusPending, ledger.StatusRejected), "%s pending->rejected", origin)
		assert.False(t, ledger.CanTransition(origin, ledger.StatusPending, ledger.StatusRedeemed), "%s pending->redeemed", origin)
		assert.False(t, ledger.CanTransition(origin, ledger.StatusPending, ledger.StatusPending), "%s pending->pending", origin)
	}
}

func TestCanTransition_ApprovedRedeemRequest_CanStillBeRejected(t *testing.T) {
	// GIVEN: An approved payout request, funds not yet moved
	// WHEN: Checking approved -> rejected
	// THEN: Legal for redeem requests only; credits are locked once approved

	assert.True(t, ledger.CanTransition(ledger.OriginRedeemRequest, ledger.StatusApproved, ledger.StatusRejected))
	assert.True(t, ledger.CanTransition(ledger.OriginRedeemRequest, ledger.StatusApproved, ledger.StatusRedeemed))

	for _, origin := range []ledger.Origin{
		ledger.OriginShopPurchase,
		ledger.OriginAffiliateImport,
		ledger.OriginManualGrant,
	} {
		assert.False(t, ledger.CanTransition(origin, ledger.StatusApproved, ledger.StatusRejected), "%s approved->rejected must be illegal", origin)
		assert.False(t, ledger.CanTransition(origin, ledger.StatusApproved, ledger.StatusRedeemed), "%s approved->redeemed must be illegal", origin)
	}
}

func TestCanTransition_TerminalStatuses(t *testing.T) {
	// GIVEN: A rejected or redeemed entry
	// WHEN: Checking every outgoing transition
	// THEN: None are legal

	targets := []ledger.Status{
		ledger.StatusPending,
		ledger.StatusApproved,
		ledger.StatusRedeemed,
		ledger.StatusRejected,
	}
	for _, from := range []ledger.Status{ledger.StatusRejected, ledger.StatusRedeemed} {
		for _, to := range targets {
			if from == to {
				continue
			}
			assert.False(t, ledger.CanTransition(ledger.OriginRedeemRequest, from, to), "%s->%s", from, to)
		}
	}
}

// =============================================================================
// DELETE GUARD TESTS
// =============================================================================

func TestCanDelete(t *testing.T) {
	assert.True(t, ledger.CanDelete(ledger.StatusPending))
	assert.True(t, ledger.CanDelete(ledger.StatusRejected))
	assert.False(t, ledger.CanDelete(ledger.StatusApproved), "approved entries have financial effect")
	assert.False(t, ledger.CanDelete(ledger.StatusRedeemed), "redeemed entries have financial effect")
}

// =============================================================================
// INITIAL STATUS TESTS
// =============================================================================

func TestValidInitialStatus(t *testing.T) {
	// Every origin may start pending.
	for _, origin := range []ledger.Origin{
		ledger.OriginShopPurchase,
		ledger.OriginAffiliateImport,
		ledger.OriginManualGrant,
		ledger.OriginRedeemRequest,
	} {
		assert.True(t, ledger.ValidInitialStatus(origin, ledger.StatusPending), "%s", origin)
	}

	// Only manual grants may skip review.
	assert.True(t, ledger.ValidInitialStatus(ledger.OriginManualGrant, ledger.StatusApproved))
	assert.True(t, ledger.ValidInitialStatus(ledger.OriginManualGrant, ledger.StatusRedeemed))
	assert.False(t, ledger.ValidInitialStatus(ledger.OriginShopPurchase, ledger.StatusApproved))
	assert.False(t, ledger.ValidInitialStatus(ledger.OriginRedeemRequest, ledger.StatusApproved))
	assert.False(t, ledger.ValidInitialStatus(ledger.OriginAffiliateImport, ledger.StatusRedeemed))

	// Nothing starts rejected.
	assert.False(t, ledger.ValidInitialStatus(ledger.OriginManualGrant, ledger.StatusRejected))
}
