/*
dto.go - Request/response data structures

PURPOSE:
  Shapes the claims and engine types into the JSON the case-worker
  tooling consumes. Amounts are whole kroner as strings; dates are
  YYYY-MM-DD.
*/
package api

import (
	"time"

	"github.com/warp/sickpay-engine/claims"
	"github.com/warp/sickpay-engine/engine"
)

// SubmitEventRequest is the inbound event envelope. Everything except
// person_id maps straight onto a claim event; an omitted id gets one
// assigned and echoed back.
type SubmitEventRequest struct {
	ID         string    `json:"id,omitempty"`
	Kind       string    `json:"kind"`
	PersonID   string    `json:"person_id"`
	EmployerID string    `json:"employer_id,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
	Status     string    `json:"status,omitempty"`
	Corrects   string    `json:"corrects,omitempty"`

	Periods []PeriodDTO `json:"periods,omitempty"`

	DailyIncome      string `json:"daily_income,omitempty"`
	CoverageBase     string `json:"coverage_base,omitempty"`
	ReimbursementPct int    `json:"reimbursement_pct,omitempty"`
}

// PeriodDTO is one classified date range.
type PeriodDTO struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Class string `json:"class"`
	Grade int    `json:"grade,omitempty"`
}

// SubmitEventResponse acknowledges an accepted (or redelivered) event.
type SubmitEventResponse struct {
	EventID string `json:"event_id"`
	CaseID  string `json:"case_id"`
}

// TimelineDayDTO is one arbitrated day with its audit lineage.
type TimelineDayDTO struct {
	Date       string           `json:"date"`
	Class      string           `json:"class"`
	Grade      int              `json:"grade"`
	Source     string           `json:"source"`
	ReportedAt string           `json:"reported_at"`
	Superseded []TimelineDayDTO `json:"superseded,omitempty"`
}

// RecomputeResponse summarizes one committed recomputation. PolicyGaps
// lists the arbitrations decided by the registration-order fallback;
// the case-worker tooling routes them to a review queue.
type RecomputeResponse struct {
	CaseID     string                          `json:"case_id"`
	Days       int                             `json:"days"`
	Results    []map[string]string             `json:"results"`
	Changes    map[string][]engine.PaymentLine `json:"changes"`
	PolicyGaps []PolicyGapDTO                  `json:"policy_gaps,omitempty"`
}

// PolicyGapDTO is one arbitration the rules could not decide.
type PolicyGapDTO struct {
	Date         string `json:"date"`
	WinnerClass  string `json:"winner_class"`
	LoserClass   string `json:"loser_class"`
	WinnerSource string `json:"winner_source"`
	LoserSource  string `json:"loser_source"`
}

// CaseDTO is the full projection of a case.
type CaseDTO struct {
	CaseID   string                          `json:"case_id"`
	PersonID string                          `json:"person_id"`
	Events   int                             `json:"events"`
	Timeline []TimelineDayDTO                `json:"timeline"`
	Results  []map[string]string             `json:"results"`
	Issued   map[string][]engine.PaymentLine `json:"issued"`
}

// BaseAmountDTO is one revision of the statutory base amount.
type BaseAmountDTO struct {
	EffectiveFrom string `json:"effective_from"`
	Annual        string `json:"annual"`
	DailyMax      string `json:"daily_max"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTimelineDTO(days []engine.Day) []TimelineDayDTO {
	dtos := make([]TimelineDayDTO, len(days))
	for i, d := range days {
		dtos[i] = TimelineDayDTO{
			Date:       d.Date.String(),
			Class:      string(d.Class),
			Grade:      d.Grade,
			Source:     d.Source.String(),
			ReportedAt: d.ReportedAt.Format(time.RFC3339),
			Superseded: toTimelineDTO(d.Superseded),
		}
	}
	if len(dtos) == 0 {
		return nil
	}
	return dtos
}

func toPolicyGapDTO(gaps []engine.GapNotice) []PolicyGapDTO {
	if len(gaps) == 0 {
		return nil
	}
	dtos := make([]PolicyGapDTO, len(gaps))
	for i, g := range gaps {
		dtos[i] = PolicyGapDTO{
			Date:         g.Date.String(),
			WinnerClass:  string(g.WinnerClass),
			LoserClass:   string(g.LoserClass),
			WinnerSource: g.WinnerSource.String(),
			LoserSource:  g.LoserSource.String(),
		}
	}
	return dtos
}

func toCaseDTO(cf *claims.CaseFile) CaseDTO {
	return CaseDTO{
		CaseID:   cf.CaseID,
		PersonID: cf.PersonID,
		Events:   len(cf.Events),
		Timeline: toTimelineDTO(cf.Timeline),
		Results:  cf.Results,
		Issued:   cf.Issued,
	}
}
