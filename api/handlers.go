/*
handlers.go - HTTP API handlers for the points operator console

PURPOSE:
  Exposes the ledger engine, payout queue, reconciliation module, and
  dispute workflow via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Companies:
    GET    /api/companies                 List companies
    POST   /api/companies                 Create company
    GET    /api/companies/{id}            Get company
    POST   /api/companies/{id}/activate   Enable submissions
    POST   /api/companies/{id}/deactivate Disable submissions

  Ledger entries:
    POST   /api/entries                   Submit entry
    GET    /api/entries                   List entries (filtered, paged)
    GET    /api/entries/{id}              Get entry
    POST   /api/entries/{id}/approve      Approve
    POST   /api/entries/{id}/reject       Reject
    POST   /api/entries/{id}/fulfill      Mark paid out
    DELETE /api/entries/{id}              Delete (pending/rejected only)

  Users:
    GET    /api/users/{id}/balance        Derived balance
    GET    /api/users/{id}/entries        User's entry history

  Payouts:
    POST   /api/payouts                   Submit payout request
    GET    /api/payouts/pending           Pending sub-queue
    GET    /api/payouts/approved          Approved sub-queue
    POST   /api/payouts/{id}/approve      Approve
    POST   /api/payouts/{id}/reject       Reject (pending or approved)
    POST   /api/payouts/{id}/fulfill      Mark paid out
    DELETE /api/payouts/{id}              Delete

  Affiliate imports:
    POST   /api/imports                   Import external claim
    GET    /api/imports                   List records
    GET    /api/imports/{id}              Get record
    POST   /api/imports/{id}/approve      Approve (creates linked entry)
    POST   /api/imports/{id}/reject       Reject (frees external id)
    POST   /api/imports/repair            Run the linkage repair scan

  Disputes:
    POST   /api/disputes                  Open case
    GET    /api/disputes                  List cases with totals
    GET    /api/disputes/{id}             Get case
    POST   /api/disputes/{id}/assign      Assign to acting admin
    POST   /api/disputes/{id}/status      Transition case
    DELETE /api/disputes/{id}             Delete (terminal only)

  Scenarios:
    GET    /api/scenarios                 List demo scenarios
    GET    /api/scenarios/current         Currently loaded scenario
    POST   /api/scenarios/load            Load a demo scenario
    POST   /api/scenarios/reset           Wipe the database

ERROR HANDLING:
  Every failure is a JSON body {"kind","message"} with the status
  fixed per kind in respond.go. Clients branch on kind, never on the
  message text.

SECURITY NOTE:
  The acting administrator comes from the X-Admin-ID header with no
  authentication in front of it. A gateway is expected to authenticate
  operators before requests reach this service.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cashloop/points-console/dispute"
	"github.com/cashloop/points-console/ledger"
	"github.com/cashloop/points-console/payout"
	"github.com/cashloop/points-console/reconcile"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger    *ledger.Engine
	Payouts   *payout.Queue
	Reconcile *reconcile.Service
	Disputes  *dispute.Service
	Companies ledger.CompanyStore

	// ScenarioDir holds the demo fixture files. Empty disables the
	// scenario endpoints' load path.
	ScenarioDir string

	// Reset wipes the store for scenario loading. Nil disables reset.
	Reset func() error

	mu              sync.Mutex
	currentScenario string
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

// ListCompanies returns every company.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Companies.ListCompanies(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	dtos := make([]CompanyDTO, len(companies))
	for i, c := range companies {
		dtos[i] = CompanyDTO{ID: c.ID, Name: c.Name, Active: c.Active, CreatedAt: c.CreatedAt.Format(time.RFC3339)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCompany registers a new company, active by default.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.ID == "" || req.Name == "" {
		writeBadRequest(w, "id and name are required")
		return
	}

	c := ledger.Company{ID: req.ID, Name: req.Name, Active: true, CreatedAt: time.Now().UTC()}
	if err := h.Companies.SaveCompany(r.Context(), c); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CompanyDTO{ID: c.ID, Name: c.Name, Active: c.Active, CreatedAt: c.CreatedAt.Format(time.RFC3339)})
}

// GetCompany returns a single company.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.Companies.GetCompany(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if c == nil {
		writeError(w, ledger.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, CompanyDTO{ID: c.ID, Name: c.Name, Active: c.Active, CreatedAt: c.CreatedAt.Format(time.RFC3339)})
}

// ActivateCompany re-enables submissions for a company.
func (h *Handler) ActivateCompany(w http.ResponseWriter, r *http.Request) {
	h.setCompanyActive(w, r, true)
}

// DeactivateCompany blocks new submissions for a company. Existing
// entries are untouched.
func (h *Handler) DeactivateCompany(w http.ResponseWriter, r *http.Request) {
	h.setCompanyActive(w, r, false)
}

func (h *Handler) setCompanyActive(w http.ResponseWriter, r *http.Request, active bool) {
	id := chi.URLParam(r, "id")
	ok, err := h.Companies.SetCompanyActive(r.Context(), id, active)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, ledger.ErrNotFound)
		return
	}
	c, err := h.Companies.GetCompany(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CompanyDTO{ID: c.ID, Name: c.Name, Active: c.Active, CreatedAt: c.CreatedAt.Format(time.RFC3339)})
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// SubmitEntry creates a ledger entry.
func (h *Handler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var req SubmitEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	entry, err := h.Ledger.Submit(r.Context(), ledger.SubmitInput{
		UserID:        req.UserID,
		CompanyID:     req.CompanyID,
		SignedPoints:  req.SignedPoints,
		Origin:        ledger.Origin(req.Origin),
		InitialStatus: ledger.Status(req.InitialStatus),
		ExternalRef:   req.ExternalRef,
		Notes:         req.Notes,
		Actor:         CurrentActor(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// ListEntries returns one page of entries.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, cursor, pageSize, err := parseEntryListQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.Ledger.List(r.Context(), filter, cursor, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryPageDTO(page))
}

// GetEntry returns a single entry.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// ApproveEntry moves a pending entry to approved.
func (h *Handler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	var req ApproveEntryRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	entry, err := h.Ledger.Approve(r.Context(), chi.URLParam(r, "id"), req.FinalPoints, req.Notes, CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// RejectEntry declines an entry.
func (h *Handler) RejectEntry(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	entry, err := h.Ledger.Reject(r.Context(), chi.URLParam(r, "id"), req.Notes, CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// FulfillEntry marks an approved redeem request as paid out.
func (h *Handler) FulfillEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Ledger.Fulfill(r.Context(), chi.URLParam(r, "id"), CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// DeleteEntry removes a pending or rejected entry.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Delete(r.Context(), chi.URLParam(r, "id"), CurrentActor(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// GetBalance returns the derived balance for a user.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Ledger.Balance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		UserID:     balance.UserID,
		Available:  balance.Available,
		PendingIn:  balance.PendingIn,
		PendingOut: balance.PendingOut,
	})
}

// GetUserEntries returns one page of a user's entry history.
func (h *Handler) GetUserEntries(w http.ResponseWriter, r *http.Request) {
	filter, cursor, pageSize, err := parseEntryListQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter.UserID = chi.URLParam(r, "id")

	page, err := h.Ledger.List(r.Context(), filter, cursor, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryPageDTO(page))
}

// =============================================================================
// PAYOUT HANDLERS
// =============================================================================

// SubmitPayout creates a payout request.
func (h *Handler) SubmitPayout(w http.ResponseWriter, r *http.Request) {
	var req SubmitEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	entry, err := h.Payouts.Request(r.Context(), req.UserID, req.CompanyID, req.SignedPoints, req.Notes, CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// ListPendingPayouts returns the pending sub-queue.
func (h *Handler) ListPendingPayouts(w http.ResponseWriter, r *http.Request) {
	h.listPayouts(w, r, h.Payouts.Pending)
}

// ListApprovedPayouts returns the approved sub-queue.
func (h *Handler) ListApprovedPayouts(w http.ResponseWriter, r *http.Request) {
	h.listPayouts(w, r, h.Payouts.Approved)
}

func (h *Handler) listPayouts(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, cursor ledger.Cursor, pageSize int) (*ledger.EntryPage, error)) {
	cursor := ledger.Cursor(r.URL.Query().Get("cursor"))
	pageSize := parsePageSize(r)

	page, err := list(r.Context(), cursor, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryPageDTO(page))
}

// ApprovePayout clears a pending payout request.
func (h *Handler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	entry, err := h.Payouts.Approve(r.Context(), chi.URLParam(r, "id"), req.Notes, CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// RejectPayout declines a payout request, from pending or approved.
func (h *Handler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	entry, err := h.Payouts.Reject(r.Context(), chi.URLParam(r, "id"), req.Notes, CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// FulfillPayout marks an approved payout as paid out.
func (h *Handler) FulfillPayout(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Payouts.Fulfill(r.Context(), chi.URLParam(r, "id"), CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// DeletePayout removes a pending or rejected payout request.
func (h *Handler) DeletePayout(w http.ResponseWriter, r *http.Request) {
	if err := h.Payouts.Delete(r.Context(), chi.URLParam(r, "id"), CurrentActor(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

// CreateImport records an external affiliate claim.
func (h *Handler) CreateImport(w http.ResponseWriter, r *http.Request) {
	var req CreateImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	var purchaseAt time.Time
	if req.PurchaseAt != "" {
		var err error
		purchaseAt, err = time.Parse(time.RFC3339, req.PurchaseAt)
		if err != nil {
			writeBadRequest(w, "purchase_at must be RFC3339")
			return
		}
	}

	record, err := h.Reconcile.Import(r.Context(), reconcile.ImportInput{
		CompanyID:     req.CompanyID,
		Platform:      req.Platform,
		ExternalID:    req.ExternalID,
		UserEmail:     req.UserEmail,
		UserID:        req.UserID,
		ClaimedAmount: req.ClaimedAmount,
		Currency:      req.Currency,
		ClaimedPoints: req.ClaimedPoints,
		PurchaseAt:    purchaseAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toImportDTO(record))
}

// ListImports returns one page of import records.
func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := reconcile.ImportFilter{
		CompanyID: q.Get("company_id"),
		Platform:  q.Get("platform"),
		Status:    reconcile.ImportStatus(q.Get("status")),
		Search:    q.Get("search"),
	}
	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter.From, filter.To = from, to

	page, err := h.Reconcile.List(r.Context(), filter, ledger.Cursor(q.Get("cursor")), parsePageSize(r))
	if err != nil {
		writeError(w, err)
		return
	}

	dto := ImportPageDTO{Records: make([]ImportRecordDTO, len(page.Records)), NextCursor: string(page.NextCursor)}
	for i := range page.Records {
		dto.Records[i] = toImportDTO(&page.Records[i])
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetImport returns a single import record.
func (h *Handler) GetImport(w http.ResponseWriter, r *http.Request) {
	record, err := h.Reconcile.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportDTO(record))
}

// ApproveImport verifies a claim and creates the linked ledger entry.
func (h *Handler) ApproveImport(w http.ResponseWriter, r *http.Request) {
	var req ApproveImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	record, entry, err := h.Reconcile.ApproveImport(r.Context(), chi.URLParam(r, "id"), req.FinalPoints, req.Notes, CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ApproveImportResponse{Record: toImportDTO(record), Entry: toEntryDTO(entry)})
}

// RejectImport declines a claim without creating an entry.
func (h *Handler) RejectImport(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	record, err := h.Reconcile.RejectImport(r.Context(), chi.URLParam(r, "id"), req.Notes, CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toImportDTO(record))
}

// RepairImports runs the half-linkage repair scan once.
func (h *Handler) RepairImports(w http.ResponseWriter, r *http.Request) {
	result, err := h.Reconcile.Repair(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// DISPUTE HANDLERS
// =============================================================================

// CreateDispute opens a new case.
func (h *Handler) CreateDispute(w http.ResponseWriter, r *http.Request) {
	var req CreateDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	c, err := h.Disputes.Create(r.Context(), dispute.CreateInput{
		UserID:            req.UserID,
		CompanyID:         req.CompanyID,
		PlanID:            req.PlanID,
		Title:             req.Title,
		Category:          req.Category,
		Description:       req.Description,
		RequestedAmount:   req.RequestedAmount,
		RequestedCurrency: req.RequestedCurrency,
		EvidenceLinks:     req.EvidenceLinks,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDisputeDTO(c))
}

// ListDisputes returns one page of cases plus the totals by status.
func (h *Handler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := dispute.Filter{
		UserID:    q.Get("user_id"),
		CompanyID: q.Get("company_id"),
		Status:    dispute.Status(q.Get("status")),
		Assigned:  q.Get("assigned"),
		Search:    q.Get("search"),
	}
	from, to, err := parseTimeRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter.From, filter.To = from, to

	page, err := h.Disputes.List(r.Context(), filter, ledger.Cursor(q.Get("cursor")), parsePageSize(r))
	if err != nil {
		writeError(w, err)
		return
	}

	dto := DisputePageDTO{
		Cases:      make([]DisputeDTO, len(page.Cases)),
		Totals:     make(map[string]int, len(page.Totals)),
		NextCursor: string(page.NextCursor),
	}
	for i := range page.Cases {
		dto.Cases[i] = toDisputeDTO(&page.Cases[i])
	}
	for status, n := range page.Totals {
		dto.Totals[string(status)] = n
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetDispute returns a single case.
func (h *Handler) GetDispute(w http.ResponseWriter, r *http.Request) {
	c, err := h.Disputes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeDTO(c))
}

// AssignDispute claims a case for the acting administrator.
func (h *Handler) AssignDispute(w http.ResponseWriter, r *http.Request) {
	c, err := h.Disputes.Assign(r.Context(), chi.URLParam(r, "id"), CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeDTO(c))
}

// UpdateDisputeStatus transitions a case.
func (h *Handler) UpdateDisputeStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	c, err := h.Disputes.Update(r.Context(), chi.URLParam(r, "id"), dispute.Status(req.Status), req.Notes, CurrentActor(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDisputeDTO(c))
}

// DeleteDispute removes a terminal case.
func (h *Handler) DeleteDispute(w http.ResponseWriter, r *http.Request) {
	if err := h.Disputes.Delete(r.Context(), chi.URLParam(r, "id"), CurrentActor(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// QUERY PARSING HELPERS
// =============================================================================

func parseEntryListQuery(r *http.Request) (ledger.EntryFilter, ledger.Cursor, int, error) {
	q := r.URL.Query()
	filter := ledger.EntryFilter{
		UserID:    q.Get("user_id"),
		CompanyID: q.Get("company_id"),
		Origin:    ledger.Origin(q.Get("origin")),
		Status:    ledger.Status(q.Get("status")),
		Search:    q.Get("search"),
	}

	from, to, err := parseTimeRange(r)
	if err != nil {
		return filter, "", 0, err
	}
	filter.From, filter.To = from, to

	for _, bound := range []struct {
		key  string
		dest **int64
	}{
		{"min_points", &filter.MinPoints},
		{"max_points", &filter.MaxPoints},
	} {
		if raw := q.Get(bound.key); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return filter, "", 0, &ledger.ValidationError{Field: bound.key, Reason: "not an integer"}
			}
			*bound.dest = &n
		}
	}

	return filter, ledger.Cursor(q.Get("cursor")), parsePageSize(r), nil
}

func parseTimeRange(r *http.Request) (*time.Time, *time.Time, error) {
	q := r.URL.Query()
	var from, to *time.Time
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, &ledger.ValidationError{Field: "from", Reason: "must be RFC3339"}
		}
		from = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, nil, &ledger.ValidationError{Field: "to", Reason: "must be RFC3339"}
		}
		to = &t
	}
	return from, to, nil
}

func parsePageSize(r *http.Request) int {
	raw := r.URL.Query().Get("page_size")
	if raw == "" {
		return ledger.MaxPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return ledger.MaxPageSize
	}
	return ledger.ClampPageSize(n)
}

// decodeOptionalBody tolerates an empty body: several transition
// endpoints take only optional notes.
func decodeOptionalBody(r *http.Request, dest any) error {
	err := json.NewDecoder(r.Body).Decode(dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
