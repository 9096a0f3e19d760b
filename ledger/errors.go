/*
errors.go - Error kinds for the ledger engine and its sibling workflows

PURPOSE:
  All error kinds in one place. Every failure surfaced by the engine,
  the reconciliation module, the payout queue, and the dispute workflow
  unwraps to one of the sentinels below, so callers can switch on kind
  with errors.Is and the API layer can map kinds to HTTP codes.

ERROR KINDS:
  ErrValidation           Malformed or out-of-range input; caller must fix
  ErrInvalidTransition    State machine violation; stale client state
  ErrDuplicateExternalRef Reconciliation conflict; treat as already handled
  ErrPreconditionFailed   Delete attempted from a non-deletable state
  ErrNotFound             Referenced entity does not exist
  ErrStoreUnavailable     Transient store failure; safe to retry, all
                          mutations are idempotent or CAS-guarded

SEE ALSO:
  - engine.go: Produces these errors
  - api: Maps Kind(err) to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation           = errors.New("validation error")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrDuplicateExternalRef = errors.New("duplicate external reference")
	ErrPreconditionFailed   = errors.New("precondition failed")
	ErrNotFound             = errors.New("not found")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError reports an illegal status transition attempt.
type TransitionError struct {
	EntityID string
	Origin   Origin
	From     Status
	To       Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition %s from %s to %s (origin %s)",
		e.EntityID, e.From, e.To, e.Origin)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DeleteError reports a delete attempted from a state with financial effect.
type DeleteError struct {
	EntityID string
	Status   Status
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("cannot delete %s while %s", e.EntityID, e.Status)
}

func (e *DeleteError) Unwrap() error { return ErrPreconditionFailed }

// =============================================================================
// KIND - Stable machine-readable names for the API surface
// =============================================================================

// Kind returns the stable machine-readable kind for an error. Unknown
// errors report as "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrDuplicateExternalRef):
		return "duplicate_external_ref"
	case errors.Is(err, ErrPreconditionFailed):
		return "precondition_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}

// Retryable reports whether the whole operation may safely be retried.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
