/*
actor.go - Administrator identity middleware

PURPOSE:
  Every mutating endpoint attributes its action to an administrator.
  The console frontend sends the operator's id in the X-Admin-ID
  header; this middleware lifts it into the request context so
  handlers never touch the header directly.

SECURITY NOTE:
  The header is trusted as-is. Authentication sits in front of this
  service.
*/
package api

import (
	"context"
	"net/http"

	"github.com/cashloop/points-console/ledger"
)

type contextKey string

const actorKey contextKey = "actor"

// AdminHeader is the request header carrying the operator id.
const AdminHeader = "X-Admin-ID"

// WithActor reads the admin header into the request context.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ledger.Actor{AdminID: r.Header.Get(AdminHeader)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// CurrentActor returns the acting administrator, possibly anonymous.
func CurrentActor(ctx context.Context) ledger.Actor {
	if actor, ok := ctx.Value(actorKey).(ledger.Actor); ok {
		return actor
	}
	return ledger.Actor{}
}
