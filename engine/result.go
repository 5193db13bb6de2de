/*
result.go - Per-day, per-party economic results

PURPOSE:
  An EconomicResult is the unit the allocation engine fills in: one
  calendar day, one liable party, one payable amount split into an
  employer share and a person share.

STATE PROGRESSION:
  grade-only --AttachIncome--> has-income --computeShares--> has-amount
                                  |  ^
                             Lock |  | Unlock
                                  v  |
                                locked (grade forced to 0)

  Every transition is one-directional except locked <-> has-income, and
  unlocking is impossible once an amount has been computed. Re-attaching
  income fails, computing twice fails - these are sequencing violations
  and always fatal, so a bug can never silently double-pay a day.
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// STATE TAG
// =============================================================================

type ResultState string

const (
	StateGradeOnly ResultState = "grade_only"
	StateHasIncome ResultState = "has_income"
	StateHasAmount ResultState = "has_amount"
	StateLocked    ResultState = "locked"
)

// =============================================================================
// ECONOMIC RESULT
// =============================================================================

// EconomicResult carries one party's economics for one calendar day.
// It does not outlive the allocation run that created it: recomputation
// always starts from fresh grade-only results.
type EconomicResult struct {
	Date          Date
	Party         PartyID
	Grade         int // sickness grade 0-100
	Reimbursement int // employer reimbursement percentage 0-100

	Income       decimal.Decimal // actual daily income
	CoverageBase decimal.Decimal // daily income subject to benefit, >= 0

	EmployerAmount decimal.Decimal // whole kroner once computed
	PersonAmount   decimal.Decimal // whole kroner once computed
	Capped         bool

	state       ResultState
	gradeBefore int // grade prior to Lock, restored by Unlock
}

// NewEconomicResult creates a result in the grade-only state.
func NewEconomicResult(date Date, party PartyID, grade int) (*EconomicResult, error) {
	if grade < 0 || grade > 100 {
		return nil, &InputError{Party: party, Date: date, Err: ErrGradeOutOfRange}
	}
	return &EconomicResult{
		Date:  date,
		Party: party,
		Grade: grade,
		state: StateGradeOnly,
	}, nil
}

func (r *EconomicResult) State() ResultState { return r.state }

// AttachIncome attaches the daily income and coverage base. One-time and
// irrevocable: a second call fails with ErrIncomeAlreadyAttached.
func (r *EconomicResult) AttachIncome(income, coverageBase decimal.Decimal, reimbursementPct int) error {
	switch r.state {
	case StateGradeOnly:
	case StateLocked:
		return r.seqErr("AttachIncome", ErrLockedResult)
	default:
		return r.seqErr("AttachIncome", ErrIncomeAlreadyAttached)
	}
	if coverageBase.IsNegative() {
		return &InputError{Party: r.Party, Date: r.Date, Err: ErrNegativeCoverageBase}
	}
	if reimbursementPct < 0 || reimbursementPct > 100 {
		return &InputError{Party: r.Party, Date: r.Date, Err: ErrReimbursementOutOfRange}
	}
	r.Income = income
	r.CoverageBase = coverageBase
	r.Reimbursement = reimbursementPct
	r.state = StateHasIncome
	return nil
}

// Lock marks the result permanently non-payable and forces the grade to 0.
// Locking after an amount has been computed is a fatal sequencing error.
func (r *EconomicResult) Lock() error {
	switch r.state {
	case StateHasAmount:
		return r.seqErr("Lock", ErrLockAfterPayment)
	case StateLocked:
		return nil // already locked, nothing to do
	}
	r.gradeBefore = r.Grade
	r.Grade = 0
	r.state = StateLocked
	return nil
}

// Unlock reverses a Lock, restoring the pre-lock grade and returning the
// result to the has-income state (or grade-only, if income was never
// attached). Never possible once an amount exists.
func (r *EconomicResult) Unlock() error {
	if r.state != StateLocked {
		return r.seqErr("Unlock", ErrNotLocked)
	}
	r.Grade = r.gradeBefore
	if r.CoverageBase.IsZero() && r.Income.IsZero() && r.Reimbursement == 0 {
		r.state = StateGradeOnly
	} else {
		r.state = StateHasIncome
	}
	return nil
}

// computeShares fills in the payable amounts:
//
//	total         = coverageBase x grade%
//	employerShare = round(total x reimbursement%)
//	personShare   = round(total) - employerShare
//
// The person share absorbs the rounding remainder so the two shares sum to
// round(total) exactly. Called by Allocate, never directly by callers.
func (r *EconomicResult) computeShares() error {
	switch r.state {
	case StateGradeOnly:
		return r.seqErr("computeShares", ErrIncomeNotAttached)
	case StateHasAmount:
		return r.seqErr("computeShares", ErrAlreadyComputed)
	case StateLocked:
		return r.seqErr("computeShares", ErrLockedResult)
	}
	total := pct(r.CoverageBase, r.Grade)
	r.EmployerAmount = roundKroner(pct(total, r.Reimbursement))
	r.PersonAmount = roundKroner(total).Sub(r.EmployerAmount)
	r.state = StateHasAmount
	return nil
}

func (r *EconomicResult) seqErr(op string, err error) error {
	return &SequenceError{Party: r.Party, Date: r.Date, From: r.state, Op: op, Err: err}
}

// =============================================================================
// FLAT PROJECTION - key->value map for persistence and serialization
// =============================================================================

// Flatten exposes the result as a flat string map: whole kroner for
// amounts, two decimals for percentage-like values. This is the shape the
// persistence and UI collaborators consume.
func (r *EconomicResult) Flatten() map[string]string {
	m := map[string]string{
		"date":              r.Date.String(),
		"party":             string(r.Party),
		"state":             string(r.state),
		"grade":             decimal.NewFromInt(int64(r.Grade)).StringFixed(2),
		"reimbursement_pct": decimal.NewFromInt(int64(r.Reimbursement)).StringFixed(2),
		"income":            roundKroner(r.Income).StringFixed(0),
		"coverage_base":     roundKroner(r.CoverageBase).StringFixed(0),
		"capped":            boolString(r.Capped),
	}
	if r.state == StateHasAmount {
		m["employer_amount"] = r.EmployerAmount.StringFixed(0)
		m["person_amount"] = r.PersonAmount.StringFixed(0)
	}
	return m
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
