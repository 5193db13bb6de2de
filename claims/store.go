/*
store.go - Persistence interfaces for the claims layer

PURPOSE:
  The service persists two things per case: the append-only event log
  (the source of truth) and the latest derived snapshot (a projection
  that can always be rebuilt from the log). Implementations live in
  store/memory and store/sqlite.

APPEND-ONLY ENFORCEMENT:
  AppendEvent never updates or deletes; corrections and withdrawals are
  new events. Duplicate message ids return ErrDuplicateEvent so that
  at-least-once transports can retry safely.
*/
package claims

import "context"

// Store is the persistence contract for claim cases.
type Store interface {
	// AppendEvent appends one event to a case's log. A duplicate event id
	// within the case returns ErrDuplicateEvent.
	AppendEvent(ctx context.Context, caseID string, ev ClaimEvent) error

	// LoadEvents returns a case's events in append order. Unknown cases
	// return ErrCaseNotFound.
	LoadEvents(ctx context.Context, caseID string) ([]ClaimEvent, error)

	// SaveSnapshot stores the latest derived projection for a case,
	// replacing any previous snapshot.
	SaveSnapshot(ctx context.Context, caseID string, snapshot []byte) error

	// LoadSnapshot returns the latest snapshot, or ErrCaseNotFound when
	// the case has never been committed.
	LoadSnapshot(ctx context.Context, caseID string) ([]byte, error)

	// ListCases returns all known case ids, sorted.
	ListCases(ctx context.Context) ([]string, error)

	Close() error
}
