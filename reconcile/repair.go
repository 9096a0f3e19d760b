/*
repair.go - Detection and repair of half-linked import records

PURPOSE:
  An approved import record with no linked ledger entry is an invariant
  violation: the user was told their claim was verified but no points
  exist. In normal operation the store transaction in ApproveTx makes
  this state unreachable, but it can still appear after a partial
  restore or an operator editing the database. The repair scan finds
  such records and either completes the linkage or reverts the record
  to pending.

REPAIR RULE:
  - FinalPoints recorded and user resolved -> create the missing entry
    and complete the linkage
  - Otherwise -> revert to pending so an administrator re-approves

SCHEDULING:
  RepairScheduler runs Repair on an interval in a background goroutine.
  The API also exposes a manual trigger.
*/
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cashloop/points-console/ledger"
)

// RepairResult summarizes one repair pass.
type RepairResult struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Reverted  int `json:"reverted"`
}

// Repair scans for approved-but-unlinked records and fixes each one.
func (s *Service) Repair(ctx context.Context) (*RepairResult, error) {
	records, err := s.imports.FindUnlinkedApproved(ctx)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{Scanned: len(records)}
	for _, record := range records {
		if record.FinalPoints > 0 && record.UserID != "" {
			if err := s.completeLinkage(ctx, record); err != nil {
				return result, err
			}
			result.Completed++
		} else {
			if _, err := s.imports.RevertImport(ctx, record.ID); err != nil {
				return result, err
			}
			result.Reverted++
			s.log.Warn("half-linked import reverted to pending",
				zap.String("record_id", record.ID))
		}
	}
	return result, nil
}

func (s *Service) completeLinkage(ctx context.Context, record ImportRecord) error {
	now := time.Now().UTC()
	entry := ledger.Entry{
		ID:           uuid.NewString(),
		UserID:       record.UserID,
		CompanyID:    record.CompanyID,
		SignedPoints: record.FinalPoints,
		Origin:       ledger.OriginAffiliateImport,
		Status:       ledger.StatusApproved,
		ExternalRef:  record.ExternalRef(),
		Notes:        record.Notes,
		CreatedAt:    now,
		ApprovedAt:   &now,
	}

	err := s.entries.CreateEntry(ctx, entry)
	if errors.Is(err, ledger.ErrDuplicateExternalRef) {
		// The entry already exists; only the back-pointer was lost. Find
		// it through the external ref and relink.
		existing, ferr := s.findEntryByRef(ctx, record)
		if ferr != nil {
			return ferr
		}
		if existing == nil {
			return err
		}
		entry = *existing
	} else if err != nil {
		return err
	}

	if _, err := s.imports.LinkImport(ctx, record.ID, entry.ID); err != nil {
		return err
	}

	s.log.Warn("half-linked import completed",
		zap.String("record_id", record.ID),
		zap.String("entry_id", entry.ID))
	return nil
}

func (s *Service) findEntryByRef(ctx context.Context, record ImportRecord) (*ledger.Entry, error) {
	page, err := s.entries.ListEntries(ctx, ledger.EntryFilter{
		CompanyID: record.CompanyID,
		Origin:    ledger.OriginAffiliateImport,
	}, "", ledger.MaxPageSize)
	if err != nil {
		return nil, err
	}
	for {
		for i := range page.Entries {
			if page.Entries[i].ExternalRef == record.ExternalRef() {
				return &page.Entries[i], nil
			}
		}
		if page.NextCursor == "" {
			return nil, nil
		}
		page, err = s.entries.ListEntries(ctx, ledger.EntryFilter{
			CompanyID: record.CompanyID,
			Origin:    ledger.OriginAffiliateImport,
		}, page.NextCursor, ledger.MaxPageSize)
		if err != nil {
			return nil, err
		}
	}
}

// =============================================================================
// REPAIR SCHEDULER
// =============================================================================

// RepairScheduler runs the repair scan on an interval.
type RepairScheduler struct {
	Service  *Service
	Interval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	log    *zap.Logger
}

// NewRepairScheduler creates a scheduler with the given interval.
func NewRepairScheduler(svc *Service, interval time.Duration) *RepairScheduler {
	return &RepairScheduler{
		Service:  svc,
		Interval: interval,
		stop:     make(chan struct{}),
		log:      zap.L().Named("repair"),
	}
}

// Start begins the background scan. Runs once immediately.
func (rs *RepairScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.ticker = time.NewTicker(rs.Interval)
	rs.wg.Add(1)
	go rs.run()

	rs.log.Info("repair scheduler started", zap.Duration("interval", rs.Interval))
}

// Stop halts the background scan and waits for an in-flight pass.
func (rs *RepairScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.log.Info("repair scheduler stopped")
	}
}

func (rs *RepairScheduler) run() {
	defer rs.wg.Done()

	rs.pass()
	for {
		select {
		case <-rs.ticker.C:
			rs.pass()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RepairScheduler) pass() {
	result, err := rs.Service.Repair(context.Background())
	if err != nil {
		rs.log.Error("repair pass failed", zap.Error(err))
		return
	}
	if result.Scanned > 0 {
		rs.log.Warn("repair pass fixed records",
			zap.Int("scanned", result.Scanned),
			zap.Int("completed", result.Completed),
			zap.Int("reverted", result.Reverted))
	}
}
