/*
casefile.go - The per-case aggregate and recomputation

PURPOSE:
  A CaseFile accumulates accepted claim events for one person's sick-pay
  case and derives everything downstream from them: the arbitrated day
  timeline, the per-day economic results, and the payment-line chains
  issued so far.

RECOMPUTATION:
  Recompute is a pure function over the accepted events: arbitrate all
  candidate days, allocate each payable date across liable parties, fold
  the per-party amounts into lines, diff against the issued chains. The
  caller decides whether to commit - a failed recomputation leaves the
  case exactly as it was, pending manual intervention.

CHAINS:
  One chain per employer (reimbursement) plus one for the person share.
  Chain ids are stable: derived from case id and party, never from run
  order, so diffing stays idempotent across recomputations.
*/
package claims

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/sickpay-engine/engine"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDuplicateEvent is returned for a message id the case has already
	// accepted. Expected under at-least-once delivery; callers treat it
	// as success.
	ErrDuplicateEvent = errors.New("duplicate claim event")

	// ErrWrongPerson is returned when an event carries a different person
	// id than the case.
	ErrWrongPerson = errors.New("event person does not match case")

	// ErrMissingIncome is returned when a payable day has no employer
	// notice to price it. The run is rejected whole; no partial output.
	ErrMissingIncome = errors.New("no employer notice covers a payable day")

	// ErrCaseNotFound is returned by stores and services for unknown cases.
	ErrCaseNotFound = errors.New("case not found")
)

// =============================================================================
// CASE FILE
// =============================================================================

// PersonChain is the chain suffix for the person-share line chain.
const PersonChain = "person"

// CaseFile is the aggregate for one person's sick-pay case.
type CaseFile struct {
	CaseID   string       `json:"case_id"`
	PersonID string       `json:"person_id"`
	Events   []ClaimEvent `json:"events"` // accepted, in arrival order

	// Derived state, refreshed by Commit after each recomputation.
	Timeline []engine.Day                    `json:"timeline"`
	Results  []map[string]string             `json:"results"` // flattened economic results
	Issued   map[string][]engine.PaymentLine `json:"issued"`  // chain id -> issued lines
}

func NewCaseFile(caseID, personID string) *CaseFile {
	return &CaseFile{
		CaseID:   caseID,
		PersonID: personID,
		Issued:   make(map[string][]engine.PaymentLine),
	}
}

// ChainID returns the stable chain identifier for a liable party.
func (cf *CaseFile) ChainID(party string) string {
	return fmt.Sprintf("%s/%s", cf.CaseID, party)
}

// ApplyEvent accepts one inbound event. Duplicate ids return
// ErrDuplicateEvent (safe to ignore); corrections and withdrawals are
// recorded as events and honoured when candidates are gathered, so the
// full history stays auditable.
func (cf *CaseFile) ApplyEvent(ev ClaimEvent) error {
	if ev.PersonID != "" && ev.PersonID != cf.PersonID {
		return ErrWrongPerson
	}
	for _, existing := range cf.Events {
		if existing.ID == ev.ID {
			return ErrDuplicateEvent
		}
	}
	cf.Events = append(cf.Events, ev)
	return nil
}

// activeEvents filters out withdrawn claims and claims replaced by a
// correction. Order is preserved - arbitration is left-to-right in
// registration order.
func (cf *CaseFile) activeEvents() []ClaimEvent {
	dropped := make(map[string]bool)
	for _, ev := range cf.Events {
		if ev.Status == StatusWithdrawn || ev.Status == StatusCorrected {
			if ev.Corrects != "" {
				dropped[ev.Corrects] = true
			}
			if ev.Status == StatusWithdrawn {
				dropped[ev.ID] = true
			}
		}
	}
	var active []ClaimEvent
	for _, ev := range cf.Events {
		if !dropped[ev.ID] {
			active = append(active, ev)
		}
	}
	return active
}

// latestNotices returns the most recent employer notice per employer.
func (cf *CaseFile) latestNotices() map[string]ClaimEvent {
	notices := make(map[string]ClaimEvent)
	for _, ev := range cf.activeEvents() {
		if ev.Kind != KindEmployerNotice || ev.EmployerID == "" {
			continue
		}
		if prev, ok := notices[ev.EmployerID]; !ok || ev.ReportedAt.After(prev.ReportedAt) {
			notices[ev.EmployerID] = ev
		}
	}
	return notices
}

// =============================================================================
// RECOMPUTATION
// =============================================================================

// Recomputation is the output of one calculation run: the authoritative
// timeline, the allocated results, per-chain payment-line change sets,
// and any arbitration policy gaps the run fell through to. Nothing in it
// touches the CaseFile until Commit; the gaps go to an operator queue.
type Recomputation struct {
	Timeline []engine.Day
	Results  []*engine.EconomicResult
	Changes  map[string][]engine.PaymentLine
	Gaps     []engine.GapNotice
}

// Recompute runs the full pipeline over the accepted events.
func (cf *CaseFile) Recompute(table engine.BaseAmountTable, rc *engine.Reconciler) (*Recomputation, error) {
	var candidates []engine.Day
	for _, ev := range cf.activeEvents() {
		candidates = append(candidates, ev.Days()...)
	}

	timeline, gaps, err := engine.ResolveTimeline(candidates)
	if err != nil {
		return nil, err
	}

	notices := cf.latestNotices()

	var allResults []*engine.EconomicResult
	perParty := make(map[string][]engine.DayAmount)

	for _, day := range timeline {
		if !day.Class.Payable() {
			// Non-payable day: keep a locked result for the snapshot.
			r, err := engine.NewEconomicResult(day.Date, engine.PartyID(PersonChain), day.Grade)
			if err != nil {
				return nil, err
			}
			if err := r.Lock(); err != nil {
				return nil, err
			}
			allResults = append(allResults, r)
			continue
		}

		if len(notices) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingIncome, day.Date)
		}

		var dayResults []*engine.EconomicResult
		for _, employerID := range sortedKeys(notices) {
			notice := notices[employerID]
			r, err := engine.NewEconomicResult(day.Date, engine.PartyID(employerID), day.Grade)
			if err != nil {
				return nil, err
			}
			if err := r.AttachIncome(notice.DailyIncome, notice.CoverageBase, notice.ReimbursementPct); err != nil {
				return nil, err
			}
			dayResults = append(dayResults, r)
		}

		if err := engine.Allocate(dayResults, day.Date, table); err != nil {
			return nil, err
		}

		personTotal := decimal.Zero
		for _, r := range dayResults {
			perParty[string(r.Party)] = append(perParty[string(r.Party)], engine.DayAmount{
				Date:   day.Date,
				Amount: r.EmployerAmount,
				Grade:  day.Grade,
			})
			personTotal = personTotal.Add(r.PersonAmount)
		}
		perParty[PersonChain] = append(perParty[PersonChain], engine.DayAmount{
			Date:   day.Date,
			Amount: personTotal,
			Grade:  day.Grade,
		})
		allResults = append(allResults, dayResults...)
	}

	changes := make(map[string][]engine.PaymentLine)
	seen := make(map[string]bool)
	for _, party := range sortedKeys(perParty) {
		chain := cf.ChainID(party)
		seen[chain] = true
		recalc := engine.BuildLines(chain, perParty[party])
		if diff := rc.Diff(recalc, cf.Issued[chain]); len(diff) > 0 {
			changes[chain] = diff
		}
	}
	// Chains with no recalculated counterpart at all are voided entirely.
	for chain, issued := range cf.Issued {
		if !seen[chain] {
			if diff := rc.Diff(nil, issued); len(diff) > 0 {
				changes[chain] = diff
			}
		}
	}

	return &Recomputation{Timeline: timeline, Results: allResults, Changes: changes, Gaps: gaps}, nil
}

// sortedKeys keeps per-day result and chain ordering deterministic across
// runs, which the proportional remainder distribution depends on.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Commit folds a recomputation into the case: the timeline and flattened
// results replace the previous projection, and each chain's change set is
// applied to the issued lines.
func (cf *CaseFile) Commit(rec *Recomputation) {
	cf.Timeline = rec.Timeline
	cf.Results = make([]map[string]string, 0, len(rec.Results))
	for _, r := range rec.Results {
		cf.Results = append(cf.Results, r.Flatten())
	}
	if cf.Issued == nil {
		cf.Issued = make(map[string][]engine.PaymentLine)
	}
	for chain, diff := range rec.Changes {
		cf.Issued[chain] = engine.Apply(cf.Issued[chain], diff)
	}
}
