// Package memory provides the in-memory claims.Store used by tests and
// local development. Semantics mirror store/sqlite exactly, including
// duplicate-event detection.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/sickpay-engine/claims"
)

type caseRecord struct {
	events   []claims.ClaimEvent
	eventIDs map[string]bool
	snapshot []byte
}

type Store struct {
	mu    sync.RWMutex
	cases map[string]*caseRecord
}

func New() *Store {
	return &Store{cases: make(map[string]*caseRecord)}
}

func (s *Store) AppendEvent(_ context.Context, caseID string, ev claims.ClaimEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.cases[caseID]
	if rec == nil {
		rec = &caseRecord{eventIDs: make(map[string]bool)}
		s.cases[caseID] = rec
	}
	if rec.eventIDs[ev.ID] {
		return claims.ErrDuplicateEvent
	}
	rec.events = append(rec.events, ev)
	rec.eventIDs[ev.ID] = true
	return nil
}

func (s *Store) LoadEvents(_ context.Context, caseID string) ([]claims.ClaimEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := s.cases[caseID]
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", claims.ErrCaseNotFound, caseID)
	}
	out := make([]claims.ClaimEvent, len(rec.events))
	copy(out, rec.events)
	return out, nil
}

func (s *Store) SaveSnapshot(_ context.Context, caseID string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.cases[caseID]
	if rec == nil {
		rec = &caseRecord{eventIDs: make(map[string]bool)}
		s.cases[caseID] = rec
	}
	rec.snapshot = append([]byte(nil), snapshot...)
	return nil
}

func (s *Store) LoadSnapshot(_ context.Context, caseID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := s.cases[caseID]
	if rec == nil || rec.snapshot == nil {
		return nil, fmt.Errorf("%w: %s", claims.ErrCaseNotFound, caseID)
	}
	return append([]byte(nil), rec.snapshot...), nil
}

func (s *Store) ListCases(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.cases))
	for id := range s.cases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Close() error { return nil }
