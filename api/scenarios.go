/*
scenarios.go - Demo scenario loaders for demos and manual testing

PURPOSE:
  Populates the database with realistic data from YAML fixture files.
  Each fixture declares companies, ledger entries, affiliate imports,
  and dispute cases; the loader drives them through the real services
  so every row honors the same validation and state machines as
  production traffic.

FIXTURE FORMAT (fixtures/<name>.yaml):
  name:        demo
  description: ...
  companies:
    - {id: acme, name: Acme Shop, active: true}
  entries:
    - {user_id: u1, company_id: acme, signed_points: 500,
       origin: shop_purchase, status: approved}
  imports:
    - {company_id: acme, platform: awin, external_id: ord-1,
       user_id: u1, claimed_points: 120, status: approved,
       final_points: 110}
  disputes:
    - {user_id: u1, title: Missing cashback, status: in_review,
       assigned_admin_id: ops-1}

HOW LOADING WORKS:
  1. Reset database (clear all data)
  2. Save companies
  3. Submit entries, then transition each to its target status
  4. Import records, then approve/reject per target status
  5. Open disputes, then assign and transition per target status

NOTE:
  Loading a scenario resets the database. Only use in development and
  demo environments.

SEE ALSO:
  - handlers.go: The rest of the Handler
  - fixtures/: The shipped scenario files
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cashloop/points-console/dispute"
	"github.com/cashloop/points-console/ledger"
	"github.com/cashloop/points-console/reconcile"
)

// =============================================================================
// FIXTURE SCHEMA
// =============================================================================

type scenarioFile struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Companies   []scenarioCompany `yaml:"companies"`
	Entries     []scenarioEntry   `yaml:"entries"`
	Imports     []scenarioImport  `yaml:"imports"`
	Disputes    []scenarioDispute `yaml:"disputes"`
}

type scenarioCompany struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Active *bool  `yaml:"active"`
}

type scenarioEntry struct {
	UserID       string `yaml:"user_id"`
	CompanyID    string `yaml:"company_id"`
	SignedPoints int64  `yaml:"signed_points"`
	Origin       string `yaml:"origin"`
	Status       string `yaml:"status"`
	Notes        string `yaml:"notes"`
}

type scenarioImport struct {
	CompanyID     string `yaml:"company_id"`
	Platform      string `yaml:"platform"`
	ExternalID    string `yaml:"external_id"`
	UserEmail     string `yaml:"user_email"`
	UserID        string `yaml:"user_id"`
	ClaimedAmount string `yaml:"claimed_amount"`
	Currency      string `yaml:"currency"`
	ClaimedPoints int64  `yaml:"claimed_points"`
	Status        string `yaml:"status"`
	FinalPoints   int64  `yaml:"final_points"`
}

type scenarioDispute struct {
	UserID          string   `yaml:"user_id"`
	CompanyID       string   `yaml:"company_id"`
	Title           string   `yaml:"title"`
	Category        string   `yaml:"category"`
	Description     string   `yaml:"description"`
	RequestedAmount string   `yaml:"requested_amount"`
	Currency        string   `yaml:"currency"`
	EvidenceLinks   []string `yaml:"evidence_links"`
	Status          string   `yaml:"status"`
	AssignedAdminID string   `yaml:"assigned_admin_id"`
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the fixtures available for loading.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.availableScenarios()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last loaded scenario name.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"current": current})
}

// LoadScenario resets the database and loads a named fixture.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	file, err := h.readScenario(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Reset == nil {
		writeBadRequest(w, "scenario loading is disabled")
		return
	}
	if err := h.Reset(); err != nil {
		writeError(w, err)
		return
	}

	if err := h.loadScenario(r.Context(), file); err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.Name
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.Name})
}

// ResetDatabase clears every table.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if h.Reset == nil {
		writeBadRequest(w, "reset is disabled")
		return
	}
	if err := h.Reset(); err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// FIXTURE LOADING
// =============================================================================

func (h *Handler) availableScenarios() ([]ScenarioDTO, error) {
	if h.ScenarioDir == "" {
		return []ScenarioDTO{}, nil
	}
	paths, err := filepath.Glob(filepath.Join(h.ScenarioDir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]ScenarioDTO, 0, len(paths))
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		file, err := h.readScenario(name)
		if err != nil {
			continue // skip unreadable fixtures
		}
		scenarios = append(scenarios, ScenarioDTO{Name: name, Description: file.Description})
	}
	return scenarios, nil
}

func (h *Handler) readScenario(name string) (*scenarioFile, error) {
	// The name is a path component; refuse anything that could escape
	// the fixture directory.
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, &ledger.ValidationError{Field: "name", Reason: "invalid scenario name"}
	}

	raw, err := os.ReadFile(filepath.Join(h.ScenarioDir, name+".yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}

	var file scenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, &ledger.ValidationError{Field: "fixture", Reason: "malformed yaml"}
	}
	return &file, nil
}

// loadScenario drives the fixture through the real services so every
// created row passed the same validation as production traffic.
func (h *Handler) loadScenario(ctx context.Context, file *scenarioFile) error {
	actor := ledger.Actor{AdminID: "scenario-loader"}

	for _, sc := range file.Companies {
		active := true
		if sc.Active != nil {
			active = *sc.Active
		}
		c := ledger.Company{ID: sc.ID, Name: sc.Name, Active: active}
		if err := h.Companies.SaveCompany(ctx, c); err != nil {
			return fmt.Errorf("company %s: %w", sc.ID, err)
		}
	}

	for i, se := range file.Entries {
		if err := h.loadEntry(ctx, se, actor); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	for i, si := range file.Imports {
		if err := h.loadImport(ctx, si, actor); err != nil {
			return fmt.Errorf("import %d: %w", i, err)
		}
	}

	for i, sd := range file.Disputes {
		if err := h.loadDispute(ctx, sd, actor); err != nil {
			return fmt.Errorf("dispute %d: %w", i, err)
		}
	}

	return nil
}

func (h *Handler) loadEntry(ctx context.Context, se scenarioEntry, actor ledger.Actor) error {
	entry, err := h.Ledger.Submit(ctx, ledger.SubmitInput{
		UserID:       se.UserID,
		CompanyID:    se.CompanyID,
		SignedPoints: se.SignedPoints,
		Origin:       ledger.Origin(se.Origin),
		Notes:        se.Notes,
		Actor:        actor,
	})
	if err != nil {
		return err
	}

	switch ledger.Status(se.Status) {
	case "", ledger.StatusPending:
		return nil
	case ledger.StatusApproved:
		_, err = h.Ledger.Approve(ctx, entry.ID, nil, "", actor)
		return err
	case ledger.StatusRejected:
		_, err = h.Ledger.Reject(ctx, entry.ID, "", actor)
		return err
	case ledger.StatusRedeemed:
		if _, err = h.Ledger.Approve(ctx, entry.ID, nil, "", actor); err != nil {
			return err
		}
		_, err = h.Ledger.Fulfill(ctx, entry.ID, actor)
		return err
	default:
		return &ledger.ValidationError{Field: "status", Reason: "unknown status"}
	}
}

func (h *Handler) loadImport(ctx context.Context, si scenarioImport, actor ledger.Actor) error {
	record, err := h.Reconcile.Import(ctx, reconcile.ImportInput{
		CompanyID:     si.CompanyID,
		Platform:      si.Platform,
		ExternalID:    si.ExternalID,
		UserEmail:     si.UserEmail,
		UserID:        si.UserID,
		ClaimedAmount: si.ClaimedAmount,
		Currency:      si.Currency,
		ClaimedPoints: si.ClaimedPoints,
	})
	if err != nil {
		return err
	}

	switch reconcile.ImportStatus(si.Status) {
	case "", reconcile.ImportPending:
		return nil
	case reconcile.ImportApproved:
		final := si.FinalPoints
		if final == 0 {
			final = si.ClaimedPoints
		}
		_, _, err = h.Reconcile.ApproveImport(ctx, record.ID, final, "", actor)
		return err
	case reconcile.ImportRejected:
		_, err = h.Reconcile.RejectImport(ctx, record.ID, "", actor)
		return err
	default:
		return &ledger.ValidationError{Field: "status", Reason: "unknown import status"}
	}
}

func (h *Handler) loadDispute(ctx context.Context, sd scenarioDispute, actor ledger.Actor) error {
	c, err := h.Disputes.Create(ctx, dispute.CreateInput{
		UserID:            sd.UserID,
		CompanyID:         sd.CompanyID,
		Title:             sd.Title,
		Category:          sd.Category,
		Description:       sd.Description,
		RequestedAmount:   sd.RequestedAmount,
		RequestedCurrency: sd.Currency,
		EvidenceLinks:     sd.EvidenceLinks,
	})
	if err != nil {
		return err
	}

	if sd.AssignedAdminID != "" {
		if _, err := h.Disputes.Assign(ctx, c.ID, ledger.Actor{AdminID: sd.AssignedAdminID}); err != nil {
			return err
		}
	}

	target := dispute.Status(sd.Status)
	if target == "" || target == dispute.StatusOpen {
		return nil
	}
	// Walk the machine to the target: open reaches in_review directly,
	// waiting_user only via in_review.
	if target == dispute.StatusWaitingUser {
		if _, err := h.Disputes.Update(ctx, c.ID, dispute.StatusInReview, "", actor); err != nil {
			return err
		}
	}
	_, err = h.Disputes.Update(ctx, c.ID, target, "", actor)
	return err
}
