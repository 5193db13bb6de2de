/*
arbiter.go - Day arbitration

PURPOSE:
  Several claim sources can describe the same calendar day: the sick-leave
  notice says "sick", the employee's claim says "worked", the employer's
  notice says "inside the employer-liability period". Exactly one of them
  may drive payment. This file decides which, and keeps the losers as
  audit lineage on the winner.

TIE-BREAK POLICY (in order):
  1. The fixed priority table keyed by (incoming class, existing class).
     Pairs are NOT symmetric - the table encodes domain precedence, e.g.
     a reported work day beats a sick-note sick day, but a weekend sick
     day from the original notice holds against an employer-period day.
  2. No table entry: the candidate with the later report timestamp wins.
  3. Identical timestamps on an unranked pair: the existing (earlier
     registered) day wins, and the conflict is reported as a GapNotice
     alongside the result so an operator queue can pick it up. The rules
     genuinely do not cover this pair; the fallback must never pass
     silently.

MERGING:
  Candidates are merged left-to-right in registration order; no global
  sort. Every merge produces a new Day value with the loser (and its own
  lineage, flattened) appended to the winner's superseded list.
*/
package engine

// =============================================================================
// PRIORITY TABLE
// =============================================================================

type classPair struct {
	Incoming DayClass
	Existing DayClass
}

type arbitration int

const (
	keepExisting arbitration = iota
	takeIncoming
)

// priorityTable is the fixed source-priority ranking. Keys are
// (incoming, existing) pairs; absence means "fall back to timestamps".
// Keep both directions of a pair explicit so the table stays auditable.
var priorityTable = map[classPair]arbitration{
	// A reported work day always beats a sick classification.
	{ClassWork, ClassSick}: takeIncoming,
	{ClassSick, ClassWork}: keepExisting,

	// Holiday and statutory leave beat sickness for the same date.
	{ClassHoliday, ClassSick}: takeIncoming,
	{ClassSick, ClassHoliday}: keepExisting,
	{ClassLeave, ClassSick}:   takeIncoming,
	{ClassSick, ClassLeave}:   keepExisting,

	// A foreign day excludes the date from the scheme.
	{ClassForeign, ClassSick}: takeIncoming,
	{ClassSick, ClassForeign}: keepExisting,

	// The employer-period day refines a plain sick day...
	{ClassEmployerPaid, ClassSick}: takeIncoming,
	{ClassSick, ClassEmployerPaid}: keepExisting,

	// ...but the weekend sick day from the original sick-leave notice
	// holds against an employer-period day for the same date.
	{ClassEmployerPaid, ClassSickWeekend}: keepExisting,
	{ClassSickWeekend, ClassEmployerPaid}: takeIncoming,

	// A plain sick day never displaces the weekend classification either,
	// whatever its timestamp.
	{ClassSick, ClassSickWeekend}: keepExisting,
	{ClassSickWeekend, ClassSick}: takeIncoming,

	// Work reports also beat the employer period and weekends.
	{ClassWork, ClassEmployerPaid}: takeIncoming,
	{ClassEmployerPaid, ClassWork}: keepExisting,
	{ClassWork, ClassSickWeekend}:  takeIncoming,
	{ClassSickWeekend, ClassWork}:  keepExisting,
}

// =============================================================================
// POLICY GAPS
// =============================================================================

// GapNotice reports one arbitration that neither the priority table nor
// the report timestamps could decide. The fallback winner stands so the
// run can proceed, but the conflict needs an operator's eyes.
type GapNotice struct {
	Date         Date
	WinnerClass  DayClass
	LoserClass   DayClass
	WinnerSource SourceRef
	LoserSource  SourceRef
}

// =============================================================================
// RESOLVE
// =============================================================================

// Resolve arbitrates all candidates for one calendar date and returns the
// single authoritative Day, plus a notice for every merge that fell
// through to the registration-order fallback. Candidates must be in
// registration order; the merge is applied left-to-right, pairwise.
func Resolve(candidates []Day) (Day, []GapNotice, error) {
	if len(candidates) == 0 {
		return Day{}, nil, ErrNoCandidates
	}
	winner := candidates[0]
	var gaps []GapNotice
	for _, incoming := range candidates[1:] {
		if !incoming.Date.Equal(winner.Date) {
			return Day{}, nil, ErrMixedDates
		}
		existing := winner
		merged, undecided := merge(existing, incoming)
		if undecided {
			gaps = append(gaps, GapNotice{
				Date:         merged.Date,
				WinnerClass:  existing.Class,
				LoserClass:   incoming.Class,
				WinnerSource: existing.Source,
				LoserSource:  incoming.Source,
			})
		}
		winner = merged
	}
	return winner, gaps, nil
}

// merge arbitrates one incoming day against the current winner. The bool
// is true when neither the table nor the timestamps could decide and the
// existing day won purely by registration order.
func merge(existing, incoming Day) (Day, bool) {
	if outcome, ok := priorityTable[classPair{Incoming: incoming.Class, Existing: existing.Class}]; ok {
		if outcome == takeIncoming {
			return incoming.withLoser(existing), false
		}
		return existing.withLoser(incoming), false
	}
	// Unranked pair: later report wins.
	if incoming.ReportedAt.After(existing.ReportedAt) {
		return incoming.withLoser(existing), false
	}
	if incoming.ReportedAt.Equal(existing.ReportedAt) {
		return existing.withLoser(incoming), true
	}
	return existing.withLoser(incoming), false
}

// =============================================================================
// TIMELINE RESOLUTION
// =============================================================================

// ResolveTimeline arbitrates an arbitrary day list into one authoritative
// Day per calendar date, in date order, accumulating the policy-gap
// notices from every date. Within a date, candidates keep their input
// (registration) order.
func ResolveTimeline(days []Day) ([]Day, []GapNotice, error) {
	if len(days) == 0 {
		return nil, nil, nil
	}

	byDate := make(map[Date][]Day)
	var order []Date
	for _, d := range days {
		if _, seen := byDate[d.Date]; !seen {
			order = append(order, d.Date)
		}
		byDate[d.Date] = append(byDate[d.Date], d)
	}

	sortDates(order)

	resolved := make([]Day, 0, len(order))
	var gaps []GapNotice
	for _, date := range order {
		day, dayGaps, err := Resolve(byDate[date])
		if err != nil {
			return nil, nil, err
		}
		resolved = append(resolved, day)
		gaps = append(gaps, dayGaps...)
	}
	return resolved, gaps, nil
}

func sortDates(dates []Date) {
	// Insertion sort: timelines are short and mostly ordered already.
	for i := 1; i < len(dates); i++ {
		for j := i; j > 0 && dates[j].Before(dates[j-1]); j-- {
			dates[j], dates[j-1] = dates[j-1], dates[j]
		}
	}
}
