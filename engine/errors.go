/*
errors.go - Centralized error types for the calculation core

PURPOSE:
  All error types in one place. The taxonomy matters here: a benefit
  calculation must never guess, so every failure class has a distinct
  sentinel the orchestrator can route on.

ERROR CATEGORIES:
  1. Policy gaps - input combinations the rules don't cover; the run is
     rejected and surfaced to an operator queue, never approximated
  2. Sequencing violations - programming errors in the result state
     machine (computing before income, computing twice, locking after
     payment); always fatal, a run never continues past one
  3. Out-of-range input - rejected before any computation starts
  4. Reconciliation ambiguity - handled conservatively, logged upstream

USAGE:
  if errors.Is(err, engine.ErrAlreadyComputed) { ... }

SEE ALSO:
  - result.go: raises the sequencing errors
  - allocate.go: raises out-of-range and cap-table errors
  - arbiter.go: raises precondition errors
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoCandidates is returned when arbitration is asked to resolve an
	// empty candidate list.
	ErrNoCandidates = errors.New("no candidate days to resolve")

	// ErrMixedDates is returned when arbitration candidates span more than
	// one calendar date.
	ErrMixedDates = errors.New("candidates must share the same date")

	// ErrIncomeNotAttached is returned when an amount is computed on a
	// result still in the grade-only state. Sequencing violation.
	ErrIncomeNotAttached = errors.New("income not attached to economic result")

	// ErrIncomeAlreadyAttached is returned on a second AttachIncome call.
	// The transition is one-time and irrevocable.
	ErrIncomeAlreadyAttached = errors.New("income already attached")

	// ErrAlreadyComputed is returned when an amount is computed twice for
	// the same result. Recomputation must start from fresh results, never
	// overwrite paid ones.
	ErrAlreadyComputed = errors.New("amount already computed")

	// ErrLockedResult is returned when attaching income or computing an
	// amount on a locked (non-payable) result.
	ErrLockedResult = errors.New("economic result is locked")

	// ErrLockAfterPayment is returned when locking a result that already
	// carries a computed amount.
	ErrLockAfterPayment = errors.New("cannot lock result after amount is computed")

	// ErrNotLocked is returned when unlocking a result that isn't locked.
	ErrNotLocked = errors.New("economic result is not locked")

	// ErrGradeOutOfRange is returned for sickness grades outside 0-100.
	ErrGradeOutOfRange = errors.New("sickness grade outside 0-100")

	// ErrReimbursementOutOfRange is returned for employer reimbursement
	// percentages outside 0-100.
	ErrReimbursementOutOfRange = errors.New("reimbursement percentage outside 0-100")

	// ErrNegativeCoverageBase is returned for a negative daily coverage base.
	ErrNegativeCoverageBase = errors.New("negative coverage base")

	// ErrNoBaseAmount is returned when the statutory base-amount table has
	// no entry covering the calculation date. No partial output is produced.
	ErrNoBaseAmount = errors.New("no statutory base amount for date")

	// ErrEmptyAllocation is returned when allocation receives no results.
	ErrEmptyAllocation = errors.New("no economic results to allocate")

	// ErrMixedCalculationDates is returned when allocation input spans more
	// than one calendar date; the cap is enforced per calculation date.
	ErrMixedCalculationDates = errors.New("allocation input spans multiple dates")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SequenceError describes an invalid economic-result state transition.
type SequenceError struct {
	Party PartyID
	Date  Date
	From  ResultState
	Op    string
	Err   error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("invalid %s on result %s/%s in state %s: %v",
		e.Op, e.Party, e.Date, e.From, e.Err)
}

func (e *SequenceError) Unwrap() error { return e.Err }

// InputError describes an out-of-range input rejected before computation.
type InputError struct {
	Party PartyID
	Date  Date
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input for %s/%s: %v", e.Party, e.Date, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsSequencingViolation reports whether the error is a result state-machine
// violation. These are programming errors, not retryable.
func IsSequencingViolation(err error) bool {
	return errors.Is(err, ErrIncomeNotAttached) ||
		errors.Is(err, ErrIncomeAlreadyAttached) ||
		errors.Is(err, ErrAlreadyComputed) ||
		errors.Is(err, ErrLockAfterPayment) ||
		errors.Is(err, ErrLockedResult) ||
		errors.Is(err, ErrNotLocked)
}

// IsInputError reports whether the error is an out-of-range input that was
// rejected before any computation.
func IsInputError(err error) bool {
	return errors.Is(err, ErrGradeOutOfRange) ||
		errors.Is(err, ErrReimbursementOutOfRange) ||
		errors.Is(err, ErrNegativeCoverageBase) ||
		errors.Is(err, ErrNoBaseAmount)
}
