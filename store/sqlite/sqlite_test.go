package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sickpay-engine/claims"
	"github.com/warp/sickpay-engine/engine"
	"github.com/warp/sickpay-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sickEvent(id string) claims.ClaimEvent {
	return claims.ClaimEvent{
		ID:         id,
		Kind:       claims.KindSickNote,
		PersonID:   "12068412345",
		ReportedAt: time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC),
		Periods: []claims.ReportedPeriod{{
			From:  engine.NewDate(2025, time.June, 2),
			To:    engine.NewDate(2025, time.June, 6),
			Class: engine.ClassSick,
			Grade: 100,
		}},
	}
}

func TestSQLite_EventLogRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, "case-1", sickEvent("ev-1")))
	require.NoError(t, s.AppendEvent(ctx, "case-1", sickEvent("ev-2")))

	events, err := s.LoadEvents(ctx, "case-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ev-1", events[0].ID)
	assert.Equal(t, claims.KindSickNote, events[0].Kind)
	require.Len(t, events[0].Periods, 1)
	assert.True(t, events[0].Periods[0].From.Equal(engine.NewDate(2025, time.June, 2)))
	assert.Equal(t, 100, events[0].Periods[0].Grade)
}

func TestSQLite_DuplicateEventRejectedByIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, "case-1", sickEvent("ev-1")))
	err := s.AppendEvent(ctx, "case-1", sickEvent("ev-1"))
	assert.ErrorIs(t, err, claims.ErrDuplicateEvent)

	// Same message id under a different case is fine.
	assert.NoError(t, s.AppendEvent(ctx, "case-2", sickEvent("ev-1")))
}

func TestSQLite_UnknownCase(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadEvents(context.Background(), "nope")
	assert.ErrorIs(t, err, claims.ErrCaseNotFound)
	_, err = s.LoadSnapshot(context.Background(), "nope")
	assert.ErrorIs(t, err, claims.ErrCaseNotFound)
}

func TestSQLite_SnapshotReplacesAndRestores(t *testing.T) {
	// GIVEN: A committed case snapshot with one issued line
	// WHEN: Saving, then saving a newer version, then loading
	// THEN: The latest snapshot comes back and decodes to the same case

	s := newTestStore(t)
	ctx := context.Background()

	cf := claims.NewCaseFile("case-1", "12068412345")
	chain := cf.ChainID("972674818")
	cf.Issued[chain] = []engine.PaymentLine{{
		ChainID:     chain,
		Seq:         1,
		From:        engine.NewDate(2025, time.June, 2),
		To:          engine.NewDate(2025, time.June, 6),
		DailyAmount: decimal.NewFromInt(1200),
		Grade:       100,
		Change:      engine.ChangeNew,
	}}

	blob, err := claims.MarshalSnapshot(cf)
	require.NoError(t, err)
	require.NoError(t, s.SaveSnapshot(ctx, "case-1", blob))
	require.NoError(t, s.SaveSnapshot(ctx, "case-1", blob)) // idempotent replace

	loaded, err := s.LoadSnapshot(ctx, "case-1")
	require.NoError(t, err)

	restored, err := claims.UnmarshalSnapshot(loaded)
	require.NoError(t, err)
	require.Len(t, restored.Issued[chain], 1)
	assert.True(t, restored.Issued[chain][0].DailyAmount.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, 1, restored.Issued[chain][0].Seq)
}

func TestSQLite_ListCases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, "case-b", sickEvent("ev-1")))
	require.NoError(t, s.AppendEvent(ctx, "case-a", sickEvent("ev-2")))

	ids, err := s.ListCases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"case-a", "case-b"}, ids)
}
