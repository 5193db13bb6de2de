/*
Package sqlite provides the SQLite-backed claims.Store.

PURPOSE:
  Persists the per-case event log and the derived snapshot. In
  production the same patterns apply to PostgreSQL, only minor SQL
  dialect differences.

APPEND-ONLY ENFORCEMENT:
  claim_events never sees UPDATE or DELETE; corrections and withdrawals
  arrive as new rows. The unique index on (case_id, event_id) turns
  redelivered messages into claims.ErrDuplicateEvent.

KEY TABLES:
  claim_events:   Immutable per-case event log (source of truth)
  case_snapshots: Latest derived projection per case (rebuildable)
  payment_lines:  Flat copy of issued lines for ad-hoc querying

WAL MODE:
  Opened with WAL so readers never block the single writer.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/sickpay-engine/claims"
	"github.com/warp/sickpay-engine/engine"
)

// Store implements claims.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Claim events (append-only, source of truth)
	CREATE TABLE IF NOT EXISTS claim_events (
		case_id    TEXT NOT NULL,
		event_id   TEXT NOT NULL,
		kind       TEXT NOT NULL,
		person_id  TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Redelivered messages must not duplicate within a case
	CREATE UNIQUE INDEX IF NOT EXISTS idx_claim_events_case_event
		ON claim_events(case_id, event_id);
	CREATE INDEX IF NOT EXISTS idx_claim_events_case
		ON claim_events(case_id);

	-- Latest derived projection per case
	CREATE TABLE IF NOT EXISTS case_snapshots (
		case_id    TEXT PRIMARY KEY,
		snapshot   TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Flat copy of issued payment lines, refreshed with each snapshot.
	-- Queryable without decoding snapshot blobs.
	CREATE TABLE IF NOT EXISTS payment_lines (
		case_id      TEXT NOT NULL,
		chain_id     TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		prev_seq     INTEGER NOT NULL,
		from_date    TEXT NOT NULL,
		to_date      TEXT NOT NULL,
		daily_amount TEXT NOT NULL,
		grade        INTEGER NOT NULL,
		change_code  TEXT NOT NULL,
		void_from    TEXT,
		PRIMARY KEY (chain_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_payment_lines_case
		ON payment_lines(case_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EVENT LOG
// =============================================================================

// AppendEvent appends one event to a case's log.
func (s *Store) AppendEvent(ctx context.Context, caseID string, ev claims.ClaimEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claim_events (case_id, event_id, kind, person_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		caseID, ev.ID, string(ev.Kind), ev.PersonID, string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return claims.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// LoadEvents returns a case's events in append order.
func (s *Store) LoadEvents(ctx context.Context, caseID string) ([]claims.ClaimEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM claim_events WHERE case_id = ? ORDER BY rowid ASC",
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []claims.ClaimEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev claims.ClaimEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %s", claims.ErrCaseNotFound, caseID)
	}
	return events, nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SaveSnapshot replaces the case's projection and refreshes the flat
// payment_lines copy from it, atomically.
func (s *Store) SaveSnapshot(ctx context.Context, caseID string, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO case_snapshots (case_id, snapshot, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(case_id) DO UPDATE SET
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		caseID, string(snapshot), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	cf, err := claims.UnmarshalSnapshot(snapshot)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM payment_lines WHERE case_id = ?", caseID); err != nil {
		return err
	}
	for _, lines := range cf.Issued {
		for _, l := range lines {
			if err := insertLine(ctx, tx, caseID, l); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func insertLine(ctx context.Context, tx *sql.Tx, caseID string, l engine.PaymentLine) error {
	var voidFrom *string
	if l.VoidFrom != nil {
		v := l.VoidFrom.String()
		voidFrom = &v
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payment_lines
		(case_id, chain_id, seq, prev_seq, from_date, to_date, daily_amount, grade, change_code, void_from)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		caseID, l.ChainID, l.Seq, l.PrevSeq,
		l.From.String(), l.To.String(),
		l.DailyAmount.StringFixed(0), l.Grade, string(l.Change), voidFrom,
	)
	return err
}

// LoadSnapshot returns the latest snapshot for a case.
func (s *Store) LoadSnapshot(ctx context.Context, caseID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshot string
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot FROM case_snapshots WHERE case_id = ?", caseID,
	).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", claims.ErrCaseNotFound, caseID)
	}
	if err != nil {
		return nil, err
	}
	return []byte(snapshot), nil
}

// ListCases returns every case id seen in the event log, sorted.
func (s *Store) ListCases(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT case_id FROM claim_events ORDER BY case_id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
