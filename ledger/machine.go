/*
machine.go - The legal-transition table for ledger entries

PURPOSE:
  One function decides every status transition in the ledger. Call sites
  never reimplement legality checks; they ask CanTransition and surface
  TransitionError on refusal.

STATE MACHINE:
  pending  -> approved | rejected
  approved -> redeemed             (redeem requests only)
  approved -> rejected             (redeem requests only, before fulfilment)
  rejected, redeemed are terminal

  The approved -> rejected edge exists only for redeem requests: an
  approved-but-unpaid withdrawal can still be declined before funds
  leave. Credits (purchase, affiliate, manual) have no such escape
  hatch once approved. This asymmetry is a business allowance, not an
  oversight.

DELETION:
  Entries may be deleted only from pending or rejected. Approved and
  redeemed entries have had, or will have, financial effect and stay in
  history forever.
*/
package ledger

// CanTransition reports whether an entry with the given origin may move
// from one status to another. It is the single source of truth for
// transition legality.
func CanTransition(origin Origin, from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		if origin != OriginRedeemRequest {
			return false
		}
		return to == StatusRedeemed || to == StatusRejected
	default:
		// rejected and redeemed are terminal
		return false
	}
}

// CanDelete reports whether an entry in the given status may be deleted.
func CanDelete(status Status) bool {
	return status == StatusPending || status == StatusRejected
}

// ValidInitialStatus reports whether an entry of the given origin may be
// created directly in the given status. Manual grants skip review when
// the administrator says so; every other origin starts pending.
func ValidInitialStatus(origin Origin, status Status) bool {
	if status == StatusPending {
		return true
	}
	if origin == OriginManualGrant {
		return status == StatusApproved || status == StatusRedeemed
	}
	return false
}
