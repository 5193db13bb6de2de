package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/sickpay-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	noon    = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	evening = time.Date(2025, time.June, 10, 18, 0, 0, 0, time.UTC)
)

func sickNoteDay(date engine.Date, class engine.DayClass, grade int) engine.Day {
	return engine.NewDay(date, class,
		engine.SourceRef{Kind: engine.SourceSickNote, MessageID: "sm-1"}, noon, grade)
}

func claimDay(date engine.Date, class engine.DayClass, at time.Time) engine.Day {
	return engine.NewDay(date, class,
		engine.SourceRef{Kind: engine.SourceEmployeeClaim, MessageID: "claim-1"}, at, 0)
}

func employerDay(date engine.Date, class engine.DayClass, at time.Time) engine.Day {
	return engine.NewDay(date, class,
		engine.SourceRef{Kind: engine.SourceEmployerNotice, MessageID: "emp-1"}, at, 100)
}

// =============================================================================
// PRIORITY TABLE
// =============================================================================

func TestResolve_WorkBeatsSick_RegardlessOfOrder(t *testing.T) {
	// GIVEN: A sick-note sick day and an employee-reported work day for
	//        the same date, the work day reported EARLIER
	// WHEN: Resolving in either registration order
	// THEN: The work day wins both times; priority outranks timestamps

	date := engine.NewDate(2025, time.June, 4)
	sick := sickNoteDay(date, engine.ClassSick, 100)
	work := claimDay(date, engine.ClassWork, noon.Add(-48*time.Hour))

	winner, gaps, err := engine.Resolve([]engine.Day{sick, work})
	require.NoError(t, err)
	assert.Equal(t, engine.ClassWork, winner.Class)
	assert.Empty(t, gaps)

	winner, gaps, err = engine.Resolve([]engine.Day{work, sick})
	require.NoError(t, err)
	assert.Equal(t, engine.ClassWork, winner.Class)
	assert.Empty(t, gaps)
}

func TestResolve_WeekendSickDayHoldsAgainstEmployerPeriod(t *testing.T) {
	// GIVEN: A Saturday classified sick_weekend by the original notice
	// WHEN: The employer's notice reports the same date as employer-paid
	// THEN: The weekend sick day from the notice holds

	saturday := engine.NewDate(2025, time.June, 7)
	require.True(t, saturday.IsWeekend())

	weekend := sickNoteDay(saturday, engine.ClassSickWeekend, 100)
	period := employerDay(saturday, engine.ClassEmployerPaid, evening)

	winner, _, err := engine.Resolve([]engine.Day{weekend, period})
	require.NoError(t, err)
	assert.Equal(t, engine.ClassSickWeekend, winner.Class)
	assert.Equal(t, engine.SourceSickNote, winner.Source.Kind)
}

func TestResolve_WeekendSickDayHoldsAgainstLaterPlainSick(t *testing.T) {
	// GIVEN: A Saturday classified sick_weekend by the doctor's notice and
	//        a plain sick day for the same date reported days later
	// WHEN: Resolving in either registration order
	// THEN: The weekend classification holds; a plain sick report never
	//       displaces it on timestamps

	saturday := engine.NewDate(2025, time.June, 7)
	weekend := sickNoteDay(saturday, engine.ClassSickWeekend, 100)
	plain := claimDay(saturday, engine.ClassSick, noon.Add(72*time.Hour))

	winner, gaps, err := engine.Resolve([]engine.Day{weekend, plain})
	require.NoError(t, err)
	assert.Equal(t, engine.ClassSickWeekend, winner.Class)
	assert.Equal(t, engine.SourceSickNote, winner.Source.Kind)
	assert.Empty(t, gaps)

	winner, _, err = engine.Resolve([]engine.Day{plain, weekend})
	require.NoError(t, err)
	assert.Equal(t, engine.ClassSickWeekend, winner.Class)
	assert.Equal(t, engine.SourceSickNote, winner.Source.Kind)
}

func TestResolve_EmployerPeriodRefinesPlainSickDay(t *testing.T) {
	date := engine.NewDate(2025, time.June, 4)
	sick := sickNoteDay(date, engine.ClassSick, 100)
	period := employerDay(date, engine.ClassEmployerPaid, evening)

	winner, _, err := engine.Resolve([]engine.Day{sick, period})
	require.NoError(t, err)
	assert.Equal(t, engine.ClassEmployerPaid, winner.Class)
}

// =============================================================================
// TIMESTAMP FALLBACK
// =============================================================================

func TestResolve_UnrankedPair_LaterReportWins(t *testing.T) {
	// GIVEN: Two classes with no table entry (holiday vs leave)
	// WHEN: Resolving
	// THEN: The later-reported candidate wins; the timestamps decided, so
	//       nothing is flagged for review

	date := engine.NewDate(2025, time.June, 4)
	holiday := claimDay(date, engine.ClassHoliday, noon)
	leave := claimDay(date, engine.ClassLeave, evening)

	winner, gaps, err := engine.Resolve([]engine.Day{holiday, leave})
	require.NoError(t, err)
	assert.Equal(t, engine.ClassLeave, winner.Class)
	assert.Empty(t, gaps)
}

func TestResolve_UnrankedPair_IdenticalTimestamps_ExistingWinsAndIsReported(t *testing.T) {
	// GIVEN: An unranked pair with the exact same report timestamp
	// WHEN: Resolving
	// THEN: The earlier-registered candidate stays authoritative and the
	//       conflict comes back as a gap notice for the operator queue

	date := engine.NewDate(2025, time.June, 4)
	holiday := claimDay(date, engine.ClassHoliday, noon)
	leave := claimDay(date, engine.ClassLeave, noon)

	winner, gaps, err := engine.Resolve([]engine.Day{holiday, leave})
	require.NoError(t, err)
	assert.Equal(t, engine.ClassHoliday, winner.Class)

	require.Len(t, gaps, 1)
	assert.True(t, gaps[0].Date.Equal(date))
	assert.Equal(t, engine.ClassHoliday, gaps[0].WinnerClass)
	assert.Equal(t, engine.ClassLeave, gaps[0].LoserClass)
	assert.Equal(t, engine.SourceEmployeeClaim, gaps[0].WinnerSource.Kind)
	assert.Equal(t, engine.SourceEmployeeClaim, gaps[0].LoserSource.Kind)
}

// =============================================================================
// LINEAGE
// =============================================================================

func TestResolve_LineageIsFlattened(t *testing.T) {
	// GIVEN: Three candidates where the winner changes twice
	// WHEN: Resolving left to right
	// THEN: The final winner carries both losers, each with empty lineage

	date := engine.NewDate(2025, time.June, 4)
	sick := sickNoteDay(date, engine.ClassSick, 100)
	period := employerDay(date, engine.ClassEmployerPaid, evening)
	work := claimDay(date, engine.ClassWork, evening.Add(time.Hour))

	winner, _, err := engine.Resolve([]engine.Day{sick, period, work})
	require.NoError(t, err)

	assert.Equal(t, engine.ClassWork, winner.Class)
	require.Len(t, winner.Superseded, 2)
	for _, loser := range winner.Superseded {
		assert.Empty(t, loser.Superseded, "lineage must stay flat")
	}
	assert.Equal(t, engine.ClassSick, winner.Superseded[0].Class)
	assert.Equal(t, engine.ClassEmployerPaid, winner.Superseded[1].Class)
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestResolve_EmptyCandidates(t *testing.T) {
	_, _, err := engine.Resolve(nil)
	assert.ErrorIs(t, err, engine.ErrNoCandidates)
}

func TestResolve_MixedDatesRejected(t *testing.T) {
	d1 := sickNoteDay(engine.NewDate(2025, time.June, 4), engine.ClassSick, 100)
	d2 := sickNoteDay(engine.NewDate(2025, time.June, 5), engine.ClassSick, 100)

	_, _, err := engine.Resolve([]engine.Day{d1, d2})
	assert.ErrorIs(t, err, engine.ErrMixedDates)
}

// =============================================================================
// TIMELINE
// =============================================================================

func TestResolveTimeline_SortsDatesAndArbitratesPerDate(t *testing.T) {
	// GIVEN: Days for three dates in scrambled order, one date contested
	// WHEN: Resolving the timeline
	// THEN: One day per date, date-ordered, contested date arbitrated

	jun4 := engine.NewDate(2025, time.June, 4)
	jun2 := engine.NewDate(2025, time.June, 2)
	jun3 := engine.NewDate(2025, time.June, 3)

	days := []engine.Day{
		sickNoteDay(jun4, engine.ClassSick, 100),
		sickNoteDay(jun2, engine.ClassSick, 100),
		claimDay(jun4, engine.ClassWork, evening),
		sickNoteDay(jun3, engine.ClassSick, 100),
	}

	timeline, gaps, err := engine.ResolveTimeline(days)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	assert.Empty(t, gaps)

	assert.True(t, timeline[0].Date.Equal(jun2))
	assert.True(t, timeline[1].Date.Equal(jun3))
	assert.True(t, timeline[2].Date.Equal(jun4))
	assert.Equal(t, engine.ClassWork, timeline[2].Class)
	assert.Len(t, timeline[2].Superseded, 1)
}

func TestResolveTimeline_AccumulatesGapNoticesAcrossDates(t *testing.T) {
	// GIVEN: Two dates, each contested by an unranked pair with identical
	//        report timestamps
	// WHEN: Resolving the timeline
	// THEN: One gap notice per date, in date order

	jun2 := engine.NewDate(2025, time.June, 2)
	jun3 := engine.NewDate(2025, time.June, 3)

	days := []engine.Day{
		claimDay(jun3, engine.ClassHoliday, noon),
		claimDay(jun3, engine.ClassLeave, noon),
		claimDay(jun2, engine.ClassLeave, noon),
		claimDay(jun2, engine.ClassHoliday, noon),
	}

	timeline, gaps, err := engine.ResolveTimeline(days)
	require.NoError(t, err)
	require.Len(t, timeline, 2)

	require.Len(t, gaps, 2)
	assert.True(t, gaps[0].Date.Equal(jun2))
	assert.Equal(t, engine.ClassLeave, gaps[0].WinnerClass)
	assert.True(t, gaps[1].Date.Equal(jun3))
	assert.Equal(t, engine.ClassHoliday, gaps[1].WinnerClass)
}

func TestResolveTimeline_Idempotent(t *testing.T) {
	// GIVEN: An already arbitrated timeline
	// WHEN: Resolving it again
	// THEN: The outcome is identical

	days := []engine.Day{
		sickNoteDay(engine.NewDate(2025, time.June, 2), engine.ClassSick, 100),
		employerDay(engine.NewDate(2025, time.June, 2), engine.ClassEmployerPaid, evening),
		sickNoteDay(engine.NewDate(2025, time.June, 3), engine.ClassSick, 100),
	}

	once, _, err := engine.ResolveTimeline(days)
	require.NoError(t, err)
	twice, _, err := engine.ResolveTimeline(once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestResolveTimeline_Empty(t *testing.T) {
	timeline, gaps, err := engine.ResolveTimeline(nil)
	require.NoError(t, err)
	assert.Nil(t, timeline)
	assert.Nil(t, gaps)
}
