/*
respond.go - JSON response and error mapping helpers

PURPOSE:
  Two helpers every handler funnels through. writeError translates a
  domain error into the uniform error body and the HTTP status fixed
  for its kind, so the mapping lives in exactly one place.

STATUS MAPPING:
  validation              400
  not_found               404
  invalid_transition      409
  duplicate_external_ref  409
  precondition_failed     412
  store_unavailable       503
  anything else           500

SEE ALSO:
  - ledger/errors.go: Kind()
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/cashloop/points-console/ledger"
)

// writeJSON sends a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"kind":"internal","message":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeError sends the uniform error body for a domain error.
func writeError(w http.ResponseWriter, err error) {
	kind := ledger.Kind(err)
	writeJSON(w, statusForKind(kind), ErrorResponse{
		Kind:    kind,
		Message: err.Error(),
	})
}

func statusForKind(kind string) int {
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "invalid_transition", "duplicate_external_ref":
		return http.StatusConflict
	case "precondition_failed":
		return http.StatusPreconditionFailed
	case "store_unavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeBadRequest reports a malformed request body or parameter that
// never reached the domain layer.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Kind: "validation", Message: message})
}
