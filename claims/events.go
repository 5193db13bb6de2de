/*
Package claims feeds the calculation core.

PURPOSE:
  The engine package is pure: it knows nothing about messages, cases, or
  persistence. This package owns the thin orchestration around it - claim
  events arriving at least once from the transport, the per-case
  aggregate they accumulate into, and the recomputation that turns the
  aggregate into payment-line change sets.

KEY CONCEPTS IN THIS FILE (events.go):
  - ClaimEvent: one inbound report (sick-leave notice, employee claim,
    employer notice) with a stable message id
  - ReportedPeriod: a date range the event classifies
  - Day expansion: periods become per-day engine.Day candidates; weekends
    inside a sick period become weekend sick days, which arbitrate
    differently (see engine/arbiter.go)

SEE ALSO:
  - casefile.go: the per-case aggregate and recomputation
  - service.go: per-case serialization and persistence
*/
package claims

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/sickpay-engine/engine"
)

// =============================================================================
// EVENT KINDS AND STATUS
// =============================================================================

type EventKind string

const (
	KindSickNote       EventKind = "sick_note"
	KindEmployeeClaim  EventKind = "employee_claim"
	KindEmployerNotice EventKind = "employer_notice"
)

// ClaimStatus applies to employee claims, which can be corrected or
// withdrawn after submission.
type ClaimStatus string

const (
	StatusNew       ClaimStatus = "new"
	StatusCorrected ClaimStatus = "corrected"
	StatusWithdrawn ClaimStatus = "withdrawn"
)

// =============================================================================
// CLAIM EVENT
// =============================================================================

// ReportedPeriod is one date range an event classifies.
type ReportedPeriod struct {
	From  engine.Date    `json:"from"`
	To    engine.Date    `json:"to"`
	Class engine.DayClass `json:"class"`
	Grade int            `json:"grade"` // sickness grade for sick periods; 0 otherwise
}

// ClaimEvent is one inbound report. The transport delivers at least once;
// ID is the stable message identifier used for deduplication.
type ClaimEvent struct {
	ID         string      `json:"id"`
	Kind       EventKind   `json:"kind"`
	PersonID   string      `json:"person_id"`
	EmployerID string      `json:"employer_id,omitempty"` // org number; set on employer notices and claims
	ReportedAt time.Time   `json:"reported_at"`
	Status     ClaimStatus `json:"status,omitempty"`   // employee claims only
	Corrects   string      `json:"corrects,omitempty"` // event id a correction replaces

	Periods []ReportedPeriod `json:"periods,omitempty"`

	// Employer-notice economics.
	DailyIncome      decimal.Decimal `json:"daily_income,omitempty"`
	CoverageBase     decimal.Decimal `json:"coverage_base,omitempty"`
	ReimbursementPct int             `json:"reimbursement_pct,omitempty"`
}

// SourceKind maps the event kind to the engine's claim-source vocabulary.
func (e ClaimEvent) SourceKind() engine.SourceKind {
	switch e.Kind {
	case KindSickNote:
		return engine.SourceSickNote
	case KindEmployerNotice:
		return engine.SourceEmployerNotice
	default:
		return engine.SourceEmployeeClaim
	}
}

// Days expands the event's periods into per-day arbitration candidates.
// Weekend days inside a sick period from the sick-leave notice become
// weekend sick days - the original notice holds those dates against
// employer-period days during arbitration. Employee claims never produce
// weekend sick candidates: the doctor's weekend classification is the
// only one, so a routine claim cannot displace it.
func (e ClaimEvent) Days() []engine.Day {
	src := engine.SourceRef{Kind: e.SourceKind(), MessageID: e.ID}
	var days []engine.Day
	for _, p := range e.Periods {
		for d := p.From; d.BeforeOrEqual(p.To); d = d.AddDays(1) {
			class := p.Class
			if class == engine.ClassSick && d.IsWeekend() {
				if e.Kind != KindSickNote {
					continue
				}
				class = engine.ClassSickWeekend
			}
			days = append(days, engine.NewDay(d, class, src, e.ReportedAt, p.Grade))
		}
	}
	return days
}
