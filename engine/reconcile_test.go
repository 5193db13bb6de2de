package engine_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sickpay-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const chain = "case-1/972674818"

func line(seq, prevSeq int, from, to engine.Date, amount int64, grade int, change engine.ChangeCode) engine.PaymentLine {
	return engine.PaymentLine{
		ChainID:     chain,
		Seq:         seq,
		PrevSeq:     prevSeq,
		From:        from,
		To:          to,
		DailyAmount: decimal.NewFromInt(amount),
		Grade:       grade,
		Change:      change,
	}
}

// recalc lines come out of BuildLines with no seq or change code yet.
func recalcLine(from, to engine.Date, amount int64, grade int) engine.PaymentLine {
	return engine.PaymentLine{
		ChainID:     chain,
		From:        from,
		To:          to,
		DailyAmount: decimal.NewFromInt(amount),
		Grade:       grade,
	}
}

var (
	jun2 = engine.NewDate(2025, time.June, 2)
	jun4 = engine.NewDate(2025, time.June, 4)
	jun5 = engine.NewDate(2025, time.June, 5)
	jun6 = engine.NewDate(2025, time.June, 6)
	jun9 = engine.NewDate(2025, time.June, 9)
)

// =============================================================================
// LINE BUILDING
// =============================================================================

func TestBuildLines_GroupsConsecutiveEqualDays(t *testing.T) {
	// GIVEN: Five days where the amount changes mid-week and one day is zero
	// WHEN: Building lines
	// THEN: Consecutive equal (amount, grade) days fold into one line,
	//       the zero day produces none and splits the run

	days := []engine.DayAmount{
		{Date: jun2, Amount: decimal.NewFromInt(300), Grade: 50},
		{Date: jun2.AddDays(1), Amount: decimal.NewFromInt(300), Grade: 50},
		{Date: jun4, Amount: decimal.Zero, Grade: 50},
		{Date: jun5, Amount: decimal.NewFromInt(200), Grade: 50},
		{Date: jun6, Amount: decimal.NewFromInt(200), Grade: 50},
	}

	lines := engine.BuildLines(chain, days)
	require.Len(t, lines, 2)

	assert.True(t, lines[0].From.Equal(jun2))
	assert.True(t, lines[0].To.Equal(jun2.AddDays(1)))
	assert.True(t, lines[0].DailyAmount.Equal(decimal.NewFromInt(300)))

	assert.True(t, lines[1].From.Equal(jun5))
	assert.True(t, lines[1].To.Equal(jun6))
	assert.Zero(t, lines[0].Seq, "sequence ids are assigned by Diff, not BuildLines")
}

func TestBuildLines_SortsInput(t *testing.T) {
	days := []engine.DayAmount{
		{Date: jun4, Amount: decimal.NewFromInt(300), Grade: 50},
		{Date: jun2, Amount: decimal.NewFromInt(300), Grade: 50},
		{Date: jun2.AddDays(1), Amount: decimal.NewFromInt(300), Grade: 50},
	}
	lines := engine.BuildLines(chain, days)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].From.Equal(jun2))
	assert.True(t, lines[0].To.Equal(jun4))
}

// =============================================================================
// DIFF - THE FOUR CASES
// =============================================================================

func TestDiff_FreshChain_NewLines(t *testing.T) {
	// GIVEN: No previously issued lines
	// WHEN: Diffing two recalculated lines
	// THEN: Both come out NY, chained 1 -> 2

	changes := engine.Diff([]engine.PaymentLine{
		recalcLine(jun2, jun4, 300, 50),
		recalcLine(jun5, jun6, 200, 50),
	}, nil)

	require.Len(t, changes, 2)
	assert.Equal(t, engine.ChangeNew, changes[0].Change)
	assert.Equal(t, 1, changes[0].Seq)
	assert.Equal(t, 0, changes[0].PrevSeq, "chain start")
	assert.Equal(t, 2, changes[1].Seq)
	assert.Equal(t, 1, changes[1].PrevSeq)
}

func TestDiff_ExactMatch_Suppressed(t *testing.T) {
	issued := []engine.PaymentLine{line(1, 0, jun2, jun6, 300, 50, engine.ChangeNew)}
	changes := engine.Diff([]engine.PaymentLine{recalcLine(jun2, jun6, 300, 50)}, issued)
	assert.Empty(t, changes)
}

func TestDiff_ExactMatch_ResendUnchanged(t *testing.T) {
	rc := &engine.Reconciler{Log: slog.Default(), ResendUnchanged: true}
	issued := []engine.PaymentLine{line(1, 0, jun2, jun6, 300, 50, engine.ChangeNew)}

	changes := rc.Diff([]engine.PaymentLine{recalcLine(jun2, jun6, 300, 50)}, issued)
	require.Len(t, changes, 1)
	assert.Equal(t, engine.ChangeUnchanged, changes[0].Change)
	assert.Equal(t, 1, changes[0].Seq)
}

func TestDiff_ShortenedLine_KeepsIdentity(t *testing.T) {
	// GIVEN: An issued Mon-Fri line and a recalculation where Thu-Fri fell
	//        away (the person was back at work)
	// WHEN: Diffing
	// THEN: One ENDR line with the SAME sequence id and the shorter extent

	issued := []engine.PaymentLine{line(1, 0, jun2, jun6, 300, 50, engine.ChangeNew)}
	changes := engine.Diff([]engine.PaymentLine{recalcLine(jun2, jun4, 300, 50)}, issued)

	require.Len(t, changes, 1)
	assert.Equal(t, engine.ChangeModified, changes[0].Change)
	assert.Equal(t, 1, changes[0].Seq)
	assert.True(t, changes[0].To.Equal(jun4))
	assert.Nil(t, changes[0].VoidFrom)
}

func TestDiff_AmountChanged_VoidAndReplace(t *testing.T) {
	// GIVEN: An issued line whose daily amount no longer matches
	// WHEN: Diffing
	// THEN: The old line is voided from its start and a chained NY
	//       replacement is issued

	issued := []engine.PaymentLine{line(1, 0, jun2, jun6, 300, 50, engine.ChangeNew)}
	changes := engine.Diff([]engine.PaymentLine{recalcLine(jun2, jun6, 250, 50)}, issued)

	require.Len(t, changes, 2)

	voided := changes[0]
	assert.Equal(t, 1, voided.Seq)
	require.NotNil(t, voided.VoidFrom)
	assert.True(t, voided.VoidFrom.Equal(jun2))
	assert.Equal(t, engine.ChangeModified, voided.Change)

	replacement := changes[1]
	assert.Equal(t, engine.ChangeNew, replacement.Change)
	assert.Equal(t, 2, replacement.Seq)
	assert.Equal(t, 1, replacement.PrevSeq)
	assert.True(t, replacement.DailyAmount.Equal(decimal.NewFromInt(250)))
}

func TestDiff_VanishedLine_Voided(t *testing.T) {
	issued := []engine.PaymentLine{line(1, 0, jun2, jun6, 300, 50, engine.ChangeNew)}
	changes := engine.Diff(nil, issued)

	require.Len(t, changes, 1)
	require.NotNil(t, changes[0].VoidFrom)
	assert.True(t, changes[0].VoidFrom.Equal(jun2))
}

func TestDiff_AlreadyVoidedLinesAreInert(t *testing.T) {
	// A voided line stays in the chain for numbering but never matches.
	voided := line(1, 0, jun2, jun6, 300, 50, engine.ChangeModified)
	v := jun2
	voided.VoidFrom = &v

	changes := engine.Diff([]engine.PaymentLine{recalcLine(jun2, jun6, 300, 50)}, []engine.PaymentLine{voided})

	require.Len(t, changes, 1)
	assert.Equal(t, engine.ChangeNew, changes[0].Change)
	assert.Equal(t, 2, changes[0].Seq, "numbering continues past the voided line")
}

func TestDiff_AmbiguousMultiOverlap_VoidsAllAndReplaces(t *testing.T) {
	// GIVEN: One recalculated line spanning two issued lines
	// WHEN: Diffing
	// THEN: Conservative fallback: both issued lines voided, one NY
	//       replacement chained after the highest overlapped seq

	issued := []engine.PaymentLine{
		line(1, 0, jun2, jun4, 300, 50, engine.ChangeNew),
		line(2, 1, jun5, jun6, 200, 50, engine.ChangeNew),
	}
	changes := engine.Diff([]engine.PaymentLine{recalcLine(jun2, jun6, 300, 50)}, issued)

	require.Len(t, changes, 3)
	assert.NotNil(t, changes[0].VoidFrom)
	assert.NotNil(t, changes[1].VoidFrom)

	replacement := changes[2]
	assert.Equal(t, engine.ChangeNew, replacement.Change)
	assert.Equal(t, 3, replacement.Seq)
	assert.Equal(t, 2, replacement.PrevSeq)
}

// =============================================================================
// APPLY AND IDEMPOTENCE
// =============================================================================

func TestApply_FoldsChangesBySequence(t *testing.T) {
	issued := []engine.PaymentLine{line(1, 0, jun2, jun6, 300, 50, engine.ChangeNew)}
	changes := engine.Diff([]engine.PaymentLine{recalcLine(jun2, jun4, 300, 50)}, issued)

	next := engine.Apply(issued, changes)
	require.Len(t, next, 1)
	assert.True(t, next[0].To.Equal(jun4), "extent change replaces the line in place")
}

func TestDiff_IdempotentAfterApply(t *testing.T) {
	// GIVEN: Any mix of new, changed, and vanished lines
	// WHEN: The change set is applied and the same recalculation diffed again
	// THEN: The second diff is empty

	issued := []engine.PaymentLine{
		line(1, 0, jun2, jun4, 300, 50, engine.ChangeNew),
		line(2, 1, jun5, jun6, 200, 50, engine.ChangeNew),
	}
	recalculated := []engine.PaymentLine{
		recalcLine(jun2, jun4, 300, 50), // unchanged
		recalcLine(jun5, jun5, 200, 50), // shortened
		recalcLine(jun9, jun9, 150, 50), // new
	}

	changes := engine.Diff(recalculated, issued)
	require.NotEmpty(t, changes)

	next := engine.Apply(issued, changes)
	again := engine.Diff(recalculated, next)
	assert.Empty(t, again, "re-diffing the applied state must be a no-op")
}
