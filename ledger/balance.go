/*
balance.go - The balance projection

PURPOSE:
  A user's balance is derived, never stored:

    balance(user) = sum of signed points over entries where
                    status in {approved, redeemed}

  Pending and rejected entries never contribute. The fold lives in one
  function so the property "every approved entry contributes exactly
  once" is testable against a plain slice of entries.

CONSISTENCY:
  The projection is a read-only scan and may race in-flight approvals;
  a balance query concurrent with an approval may or may not reflect
  it. That is acceptable for an operator console.
*/
package ledger

import "context"

// Balance is the derived points position for a user.
type Balance struct {
	UserID string

	// Available is the spendable balance: approved and redeemed entries
	// folded once each. Redeem requests are negative entries, so
	// approving one reduces Available with no extra bookkeeping.
	Available int64

	// PendingIn is credit awaiting approval; PendingOut is the magnitude
	// of payout requests awaiting approval. Neither affects Available.
	PendingIn  int64
	PendingOut int64
}

// ComputeBalance folds entries into a balance. Pure; the store-backed
// path and the tests share it.
func ComputeBalance(userID string, entries []Entry) Balance {
	b := Balance{UserID: userID}
	for _, e := range entries {
		switch e.Status {
		case StatusApproved, StatusRedeemed:
			b.Available += e.SignedPoints
		case StatusPending:
			if e.SignedPoints > 0 {
				b.PendingIn += e.SignedPoints
			} else {
				b.PendingOut += -e.SignedPoints
			}
		}
	}
	return b
}

// Balance recomputes the projection for a user from the full entry
// history.
func (en *Engine) Balance(ctx context.Context, userID string) (*Balance, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	entries, err := en.store.ListUserEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	b := ComputeBalance(userID, entries)
	return &b, nil
}
