/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (decimal strings, enum membership) lives in the
  domain services; DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/cashloop/points-console/dispute"
	"github.com/cashloop/points-console/ledger"
	"github.com/cashloop/points-console/reconcile"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body: a stable machine-readable
// kind plus a human message.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// =============================================================================
// COMPANIES
// =============================================================================

type CompanyDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateCompanyRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

type EntryDTO struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	CompanyID    string  `json:"company_id"`
	SignedPoints int64   `json:"signed_points"`
	Origin       string  `json:"origin"`
	Status       string  `json:"status"`
	ExternalRef  string  `json:"external_ref,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	CreatedAt    string  `json:"created_at"`
	ApprovedAt   *string `json:"approved_at,omitempty"`
	FulfilledAt  *string `json:"fulfilled_at,omitempty"`
}

type SubmitEntryRequest struct {
	UserID        string `json:"user_id"`
	CompanyID     string `json:"company_id"`
	SignedPoints  int64  `json:"signed_points"`
	Origin        string `json:"origin"`
	InitialStatus string `json:"initial_status,omitempty"`
	ExternalRef   string `json:"external_ref,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type ApproveEntryRequest struct {
	FinalPoints *int64 `json:"final_points,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type NotesRequest struct {
	Notes string `json:"notes,omitempty"`
}

type EntryPageDTO struct {
	Entries    []EntryDTO `json:"entries"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// =============================================================================
// BALANCE
// =============================================================================

type BalanceDTO struct {
	UserID     string `json:"user_id"`
	Available  int64  `json:"available"`
	PendingIn  int64  `json:"pending_in"`
	PendingOut int64  `json:"pending_out"`
}

// =============================================================================
// AFFILIATE IMPORTS
// =============================================================================

type ImportRecordDTO struct {
	ID            string `json:"id"`
	CompanyID     string `json:"company_id"`
	Platform      string `json:"platform"`
	ExternalID    string `json:"external_id"`
	UserEmail     string `json:"user_email,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	ClaimedAmount string `json:"claimed_amount"`
	Currency      string `json:"currency,omitempty"`
	ClaimedPoints int64  `json:"claimed_points"`
	FinalPoints   int64  `json:"final_points,omitempty"`
	PurchaseAt    string `json:"purchase_at,omitempty"`
	Status        string `json:"status"`
	LinkedEntryID string `json:"linked_entry_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type CreateImportRequest struct {
	CompanyID     string `json:"company_id"`
	Platform      string `json:"platform"`
	ExternalID    string `json:"external_id"`
	UserEmail     string `json:"user_email,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	ClaimedAmount string `json:"claimed_amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	ClaimedPoints int64  `json:"claimed_points"`
	PurchaseAt    string `json:"purchase_at,omitempty"`
}

type ApproveImportRequest struct {
	FinalPoints int64  `json:"final_points"`
	Notes       string `json:"notes,omitempty"`
}

type ApproveImportResponse struct {
	Record ImportRecordDTO `json:"record"`
	Entry  EntryDTO        `json:"entry"`
}

type ImportPageDTO struct {
	Records    []ImportRecordDTO `json:"records"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// =============================================================================
// DISPUTES
// =============================================================================

type DisputeDTO struct {
	ID                string   `json:"id"`
	UserID            string   `json:"user_id,omitempty"`
	CompanyID         string   `json:"company_id,omitempty"`
	PlanID            string   `json:"plan_id,omitempty"`
	Title             string   `json:"title"`
	Category          string   `json:"category,omitempty"`
	Description       string   `json:"description,omitempty"`
	RequestedAmount   string   `json:"requested_amount,omitempty"`
	RequestedCurrency string   `json:"requested_currency,omitempty"`
	EvidenceLinks     []string `json:"evidence_links,omitempty"`
	Status            string   `json:"status"`
	AssignedAdminID   string   `json:"assigned_admin_id,omitempty"`
	ResolutionNotes   string   `json:"resolution_notes,omitempty"`
	CreatedAt         string   `json:"created_at"`
}

type CreateDisputeRequest struct {
	UserID            string   `json:"user_id,omitempty"`
	CompanyID         string   `json:"company_id,omitempty"`
	PlanID            string   `json:"plan_id,omitempty"`
	Title             string   `json:"title"`
	Category          string   `json:"category,omitempty"`
	Description       string   `json:"description,omitempty"`
	RequestedAmount   string   `json:"requested_amount,omitempty"`
	RequestedCurrency string   `json:"requested_currency,omitempty"`
	EvidenceLinks     []string `json:"evidence_links,omitempty"`
}

type UpdateDisputeRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type DisputePageDTO struct {
	Cases      []DisputeDTO   `json:"cases"`
	Totals     map[string]int `json:"totals"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEntryDTO(e *ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:           e.ID,
		UserID:       e.UserID,
		CompanyID:    e.CompanyID,
		SignedPoints: e.SignedPoints,
		Origin:       string(e.Origin),
		Status:       string(e.Status),
		ExternalRef:  e.ExternalRef,
		Notes:        e.Notes,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
	if e.ApprovedAt != nil {
		s := e.ApprovedAt.Format(time.RFC3339)
		dto.ApprovedAt = &s
	}
	if e.FulfilledAt != nil {
		s := e.FulfilledAt.Format(time.RFC3339)
		dto.FulfilledAt = &s
	}
	return dto
}

func toEntryPageDTO(page *ledger.EntryPage) EntryPageDTO {
	dto := EntryPageDTO{Entries: make([]EntryDTO, len(page.Entries)), NextCursor: string(page.NextCursor)}
	for i := range page.Entries {
		dto.Entries[i] = toEntryDTO(&page.Entries[i])
	}
	return dto
}

func toImportDTO(r *reconcile.ImportRecord) ImportRecordDTO {
	dto := ImportRecordDTO{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		Platform:      r.Platform,
		ExternalID:    r.ExternalID,
		UserEmail:     r.UserEmail,
		UserID:        r.UserID,
		ClaimedAmount: r.ClaimedAmount.String(),
		Currency:      r.Currency,
		ClaimedPoints: r.ClaimedPoints,
		FinalPoints:   r.FinalPoints,
		Status:        string(r.Status),
		LinkedEntryID: r.LinkedEntryID,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
	}
	if !r.PurchaseAt.IsZero() {
		dto.PurchaseAt = r.PurchaseAt.Format(time.RFC3339)
	}
	return dto
}

func toDisputeDTO(c *dispute.Case) DisputeDTO {
	dto := DisputeDTO{
		ID:                c.ID,
		UserID:            c.UserID,
		CompanyID:         c.CompanyID,
		PlanID:            c.PlanID,
		Title:             c.Title,
		Category:          c.Category,
		Description:       c.Description,
		RequestedCurrency: c.RequestedCurrency,
		EvidenceLinks:     c.EvidenceLinks,
		Status:            string(c.Status),
		AssignedAdminID:   c.AssignedAdminID,
		ResolutionNotes:   c.ResolutionNotes,
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
	}
	if !c.RequestedAmount.IsZero() {
		dto.RequestedAmount = c.RequestedAmount.String()
	}
	return dto
}
