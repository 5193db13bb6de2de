/*
Package engine implements the sick-pay calculation core.

PURPOSE:
  This package contains the three entangled stages that turn a stream of
  competing day-level claims into payable amounts:
    1. Day arbitration - which claim wins for each calendar day
    2. Allocation - splitting the statutory daily benefit across liable
       parties under the income cap
    3. Payment-line reconciliation - minimal diffs against previously
       issued payment lines

KEY CONCEPTS IN THIS FILE (types.go):
  - DayClass: closed enumeration of day classifications
  - SourceRef: which inbound report a day came from
  - Day: an immutable, arbitrated calendar day with audit lineage
  - PartyID: a liable party (employer org number or the person)

DESIGN PRINCIPLES:
  1. Immutability: arbitration never mutates a Day; merges produce new values
  2. Precision: decimal.Decimal for all monetary math, whole kroner on output
  3. Determinism: every operation is a pure function over its inputs
  4. Auditability: superseded days are retained, never recomputed

SEE ALSO:
  - arbiter.go: the day-priority table and Resolve
  - result.go: per-day per-party economic results
  - allocate.go: benefit splitting and the 6G cap
  - reconcile.go: payment-line diffing
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY CLASSIFICATION - Closed set of variants, table-dispatched in arbiter.go
// =============================================================================

type DayClass string

const (
	ClassSick         DayClass = "sick"          // sick day from a sick-leave notice or claim
	ClassSickWeekend  DayClass = "sick_weekend"  // weekend day inside a sick-leave notice
	ClassWork         DayClass = "work"          // the person actually worked
	ClassHoliday      DayClass = "holiday"       // vacation day
	ClassLeave        DayClass = "leave"         // maternity or other statutory leave
	ClassForeign      DayClass = "foreign"       // abroad, outside the benefit scheme
	ClassEmployerPaid DayClass = "employer_paid" // inside the employer-liability period
)

// Payable reports whether a day of this class can carry a benefit amount.
// Non-payable classes produce locked economic results (grade forced to 0).
func (c DayClass) Payable() bool {
	switch c {
	case ClassSick, ClassSickWeekend, ClassEmployerPaid:
		return true
	default:
		return false
	}
}

// =============================================================================
// CLAIM SOURCES
// =============================================================================

type SourceKind string

const (
	SourceSickNote       SourceKind = "sick_note"       // doctor-issued sick-leave notice
	SourceEmployeeClaim  SourceKind = "employee_claim"  // employee-submitted claim form
	SourceEmployerNotice SourceKind = "employer_notice" // employer income/attendance report
)

// SourceRef identifies the inbound report a day originated from.
type SourceRef struct {
	Kind      SourceKind
	MessageID string
}

func (s SourceRef) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.MessageID)
}

// =============================================================================
// DAY - One arbitrated calendar day with audit lineage
// =============================================================================

// Day is an immutable value keyed by calendar date. After arbitration exactly
// one Day is authoritative per date; the days it displaced live on in
// Superseded for audit and serialization, never for further computation.
type Day struct {
	Date       Date
	Class      DayClass
	Source     SourceRef
	ReportedAt time.Time
	Grade      int // sickness grade 0-100 as reported; 100 for full sick days

	// Superseded holds the days this one replaced, oldest first.
	// A forward list only - superseded days never point back.
	Superseded []Day
}

// NewDay builds a Day with no lineage.
func NewDay(date Date, class DayClass, source SourceRef, reportedAt time.Time, grade int) Day {
	return Day{Date: date, Class: class, Source: source, ReportedAt: reportedAt, Grade: grade}
}

// withLoser returns a copy of d with the losing candidate appended to its
// lineage. The loser's own lineage is flattened in first so repeated
// arbitration preserves the full history.
func (d Day) withLoser(loser Day) Day {
	lineage := make([]Day, 0, len(d.Superseded)+len(loser.Superseded)+1)
	lineage = append(lineage, d.Superseded...)
	lineage = append(lineage, loser.Superseded...)
	flat := loser
	flat.Superseded = nil
	lineage = append(lineage, flat)
	out := d
	out.Superseded = lineage
	return out
}

// =============================================================================
// LIABLE PARTIES
// =============================================================================

// PartyID identifies a liable party: an employer organisation number, or the
// national benefit payer for the person share.
type PartyID string

// =============================================================================
// MONEY HELPERS
// =============================================================================

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// roundKroner rounds to whole currency units, half away from zero.
// All issued amounts are whole kroner; the person share absorbs the
// sub-krone remainder so employer + person always equals round(total).
func roundKroner(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// pct applies an integer percentage to an amount without rounding.
func pct(amount decimal.Decimal, p int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(p))).Div(hundred)
}
