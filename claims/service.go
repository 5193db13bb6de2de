/*
service.go - Per-case orchestration

PURPOSE:
  The service is the single entry point the transport talks to. It owns
  the ordering guarantee the engine relies on: all writes for one case
  are serialized behind a per-case mutex, so two concurrent recomputes
  can never interleave their diffs against the same issued chains.

RECOVERY:
  The event log is the source of truth. A case is rehydrated from its
  latest snapshot, then any events appended after that snapshot are
  replayed on top. A missing or stale snapshot is never an error.
*/
package claims

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/sickpay-engine/engine"
)

// Service coordinates event intake, recomputation, and persistence for
// claim cases.
type Service struct {
	store Store
	table engine.BaseAmountTable
	rc    *engine.Reconciler
	log   *slog.Logger

	locks sync.Map // case id -> *sync.Mutex
}

func NewService(store Store, table engine.BaseAmountTable, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		table: table,
		rc:    &engine.Reconciler{Log: log},
		log:   log,
	}
}

func (s *Service) lock(caseID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(caseID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// SubmitEvent accepts one inbound event for a case. An empty event id is
// assigned one; a duplicate id is acknowledged without effect, matching
// at-least-once delivery. The event is validated against the rebuilt
// case before it reaches the log.
func (s *Service) SubmitEvent(ctx context.Context, caseID, personID string, ev ClaimEvent) (ClaimEvent, error) {
	mu := s.lock(caseID)
	mu.Lock()
	defer mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	cf, err := s.loadLocked(ctx, caseID, personID)
	if err != nil {
		return ev, err
	}
	if err := cf.ApplyEvent(ev); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			s.log.Info("duplicate claim event acknowledged", "case", caseID, "event", ev.ID)
			return ev, nil
		}
		return ev, err
	}
	if err := s.store.AppendEvent(ctx, caseID, ev); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			return ev, nil
		}
		return ev, fmt.Errorf("append event: %w", err)
	}

	s.log.Info("claim event accepted",
		"case", caseID, "event", ev.ID, "kind", string(ev.Kind))
	return ev, nil
}

// Recompute runs the full pipeline for a case and commits the outcome.
// The returned change sets are what a payment dispatcher would forward;
// a failed run commits nothing.
func (s *Service) Recompute(ctx context.Context, caseID string) (*Recomputation, error) {
	mu := s.lock(caseID)
	mu.Lock()
	defer mu.Unlock()

	cf, err := s.loadLocked(ctx, caseID, "")
	if err != nil {
		return nil, err
	}

	rec, err := cf.Recompute(s.table, s.rc)
	if err != nil {
		s.log.Error("recomputation failed, case left untouched",
			"case", caseID, "error", err)
		return nil, err
	}
	for _, gap := range rec.Gaps {
		s.log.Warn("unranked day conflict decided by registration order",
			"case", caseID,
			"date", gap.Date.String(),
			"winner", gap.WinnerSource.String(),
			"winner_class", string(gap.WinnerClass),
			"loser", gap.LoserSource.String(),
			"loser_class", string(gap.LoserClass))
	}
	cf.Commit(rec)

	blob, err := MarshalSnapshot(cf)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.store.SaveSnapshot(ctx, caseID, blob); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	s.log.Info("case recomputed",
		"case", caseID,
		"days", len(rec.Timeline),
		"chains_changed", len(rec.Changes))
	return rec, nil
}

// Get returns the current state of a case.
func (s *Service) Get(ctx context.Context, caseID string) (*CaseFile, error) {
	mu := s.lock(caseID)
	mu.Lock()
	defer mu.Unlock()
	return s.loadLocked(ctx, caseID, "")
}

// ListCases returns all known case ids.
func (s *Service) ListCases(ctx context.Context) ([]string, error) {
	return s.store.ListCases(ctx)
}

// loadLocked rehydrates a case: snapshot first, then events appended
// after it. personID is used only when the case must be created fresh.
// Caller holds the case lock.
func (s *Service) loadLocked(ctx context.Context, caseID, personID string) (*CaseFile, error) {
	var cf *CaseFile

	blob, err := s.store.LoadSnapshot(ctx, caseID)
	switch {
	case err == nil:
		cf, err = UnmarshalSnapshot(blob)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, ErrCaseNotFound):
		// No snapshot yet; replay from the log alone.
	default:
		return nil, err
	}

	events, err := s.store.LoadEvents(ctx, caseID)
	if err != nil && !errors.Is(err, ErrCaseNotFound) {
		return nil, err
	}
	if cf == nil {
		if len(events) == 0 && personID == "" {
			return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
		}
		pid := personID
		if pid == "" && len(events) > 0 {
			pid = events[0].PersonID
		}
		cf = NewCaseFile(caseID, pid)
	}
	for _, ev := range events {
		if err := cf.ApplyEvent(ev); err != nil && !errors.Is(err, ErrDuplicateEvent) {
			return nil, err
		}
	}
	return cf, nil
}
