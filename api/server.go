/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the console frontend
  5. WithActor:  X-Admin-ID header into request context

ROUTE GROUPS:
  /api/companies/*   Company registry
  /api/entries/*     Ledger entries
  /api/users/*       Balance and history
  /api/payouts/*     Payout queue
  /api/imports/*     Affiliate reconciliation
  /api/disputes/*    Dispute cases
  /api/scenarios/*   Demo scenarios and database reset

SECURITY NOTE:
  No authentication middleware. All endpoints are public and the admin
  header is trusted; authn/authz is expected from a gateway in front.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", AdminHeader},
		AllowCredentials: true,
	}))
	r.Use(WithActor)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Company routes
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompanies)
			r.Post("/", h.CreateCompany)
			r.Get("/{id}", h.GetCompany)
			r.Post("/{id}/activate", h.ActivateCompany)
			r.Post("/{id}/deactivate", h.DeactivateCompany)
		})

		// Ledger entry routes
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.SubmitEntry)
			r.Get("/{id}", h.GetEntry)
			r.Post("/{id}/approve", h.ApproveEntry)
			r.Post("/{id}/reject", h.RejectEntry)
			r.Post("/{id}/fulfill", h.FulfillEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/entries", h.GetUserEntries)
		})

		// Payout queue routes
		r.Route("/payouts", func(r chi.Router) {
			r.Post("/", h.SubmitPayout)
			r.Get("/pending", h.ListPendingPayouts)
			r.Get("/approved", h.ListApprovedPayouts)
			r.Post("/{id}/approve", h.ApprovePayout)
			r.Post("/{id}/reject", h.RejectPayout)
			r.Post("/{id}/fulfill", h.FulfillPayout)
			r.Delete("/{id}", h.DeletePayout)
		})

		// Affiliate import routes
		r.Route("/imports", func(r chi.Router) {
			r.Get("/", h.ListImports)
			r.Post("/", h.CreateImport)
			r.Post("/repair", h.RepairImports)
			r.Get("/{id}", h.GetImport)
			r.Post("/{id}/approve", h.ApproveImport)
			r.Post("/{id}/reject", h.RejectImport)
		})

		// Dispute routes
		r.Route("/disputes", func(r chi.Router) {
			r.Get("/", h.ListDisputes)
			r.Post("/", h.CreateDispute)
			r.Get("/{id}", h.GetDispute)
			r.Post("/{id}/assign", h.AssignDispute)
			r.Post("/{id}/status", h.UpdateDisputeStatus)
			r.Delete("/{id}", h.DeleteDispute)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
