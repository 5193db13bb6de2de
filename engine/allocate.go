/*
allocate.go - Benefit allocation across liable parties

PURPOSE:
  Given one calculation date's economic results (one per liable party),
  fill in each party's payable amount and enforce the statutory 6G daily
  maximum across all of them.

THE CAP, STEP BY STEP:
  1. cap = round(6G/260 x blended grade%), where the blended grade is the
     coverage-base-weighted average of the parties' grades
  2. employer + person totals within cap  -> nothing to do, not capped
  3. employer total alone within cap      -> employer shares kept, person
     shares scaled down to the remaining budget
  4. employer total alone exceeds cap     -> employer shares scaled down
     to the cap, person shares zeroed

SCALING:
  Proportional, rounded half-up to whole kroner, with the rounding
  remainder handed out one krone at a time in descending-share order.
  The scaled shares always sum to the budget exactly, and no share ever
  exceeds its pre-scaling value. Ties break by original share rank, so
  the result is independent of insertion order.

FAILURE:
  Everything is validated before the first share is computed - a failed
  allocation leaves every result untouched. Computing on a result without
  income, or on one already carrying an amount, is a sequencing violation
  (see errors.go); an empty base-amount table is an input error.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ALLOCATE
// =============================================================================

// Allocate computes every party's employer and person share for one
// calculation date and applies the statutory cap. Locked results pass
// through untouched (they are non-payable by definition).
func Allocate(results []*EconomicResult, capDate Date, table BaseAmountTable) error {
	payable := make([]*EconomicResult, 0, len(results))
	for _, r := range results {
		if r.State() == StateLocked {
			continue
		}
		payable = append(payable, r)
	}
	if len(payable) == 0 {
		if len(results) == 0 {
			return ErrEmptyAllocation
		}
		return nil // all locked: nothing payable, nothing to cap
	}

	// Validate up front so a failure produces no partial output.
	for _, r := range payable {
		if !r.Date.Equal(payable[0].Date) {
			return ErrMixedCalculationDates
		}
		switch r.State() {
		case StateGradeOnly:
			return r.seqErr("Allocate", ErrIncomeNotAttached)
		case StateHasAmount:
			return r.seqErr("Allocate", ErrAlreadyComputed)
		}
	}

	dailyMax, err := table.DailyMax(capDate)
	if err != nil {
		return err
	}
	capAmount := roundKroner(pctDecimal(dailyMax, blendedGrade(payable)))

	for _, r := range payable {
		if err := r.computeShares(); err != nil {
			return err
		}
	}

	employerTotal := decimal.Zero
	personTotal := decimal.Zero
	for _, r := range payable {
		employerTotal = employerTotal.Add(r.EmployerAmount)
		personTotal = personTotal.Add(r.PersonAmount)
	}

	switch {
	case employerTotal.Add(personTotal).LessThanOrEqual(capAmount):
		// Under the cap: everything stands.
		for _, r := range payable {
			r.Capped = false
		}

	case employerTotal.LessThanOrEqual(capAmount):
		// Employer shares fit; person shares split what budget remains.
		budget := capAmount.Sub(employerTotal)
		scaled := scaleToBudget(personShares(payable), budget)
		for i, r := range payable {
			r.PersonAmount = scaled[i]
			r.Capped = true
		}

	default:
		// Employer shares alone blow the cap: scale them, zero the rest.
		scaled := scaleToBudget(employerShares(payable), capAmount)
		for i, r := range payable {
			r.EmployerAmount = scaled[i]
			r.PersonAmount = decimal.Zero
			r.Capped = true
		}
	}
	return nil
}

// blendedGrade is the coverage-base-weighted average grade across parties,
// kept at two decimals. With no coverage anywhere the blend is zero and so
// is the cap - nothing is payable against zero covered income.
func blendedGrade(results []*EconomicResult) decimal.Decimal {
	weighted := decimal.Zero
	baseTotal := decimal.Zero
	for _, r := range results {
		weighted = weighted.Add(r.CoverageBase.Mul(decimal.NewFromInt(int64(r.Grade))))
		baseTotal = baseTotal.Add(r.CoverageBase)
	}
	if baseTotal.IsZero() {
		return decimal.Zero
	}
	return weighted.Div(baseTotal).Round(2)
}

func pctDecimal(amount, p decimal.Decimal) decimal.Decimal {
	return amount.Mul(p).Div(hundred)
}

func employerShares(results []*EconomicResult) []decimal.Decimal {
	out := make([]decimal.Decimal, len(results))
	for i, r := range results {
		out[i] = r.EmployerAmount
	}
	return out
}

func personShares(results []*EconomicResult) []decimal.Decimal {
	out := make([]decimal.Decimal, len(results))
	for i, r := range results {
		out[i] = r.PersonAmount
	}
	return out
}

// =============================================================================
// PROPORTIONAL SCALING
// =============================================================================

// scaleToBudget scales whole-krone shares down so they sum to the budget
// exactly. The rounding remainder is distributed one krone at a time to
// parties in descending-share order; equal shares keep their original
// rank, so the outcome is deterministic.
func scaleToBudget(shares []decimal.Decimal, budget decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(shares))
	for i := range out {
		out[i] = decimal.Zero
	}

	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s)
	}
	if total.IsZero() || !budget.IsPositive() {
		return out
	}

	// Rank parties by descending pre-scaling share, ties by original index.
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shares[order[a]].GreaterThan(shares[order[b]])
	})

	factor := budget.Div(total)
	assigned := decimal.Zero
	for i, s := range shares {
		out[i] = roundKroner(s.Mul(factor))
		assigned = assigned.Add(out[i])
	}

	// Hand out (or claw back) the rounding remainder a krone at a time.
	remainder := budget.Sub(assigned)
	for remainder.IsPositive() {
		moved := false
		for _, i := range order {
			if !remainder.IsPositive() {
				break
			}
			if out[i].LessThan(shares[i]) {
				out[i] = out[i].Add(one)
				remainder = remainder.Sub(one)
				moved = true
			}
		}
		if !moved {
			break // budget >= total can't reach here, but never spin
		}
	}
	for remainder.IsNegative() {
		moved := false
		for _, i := range order {
			if !remainder.IsNegative() {
				break
			}
			if out[i].IsPositive() {
				out[i] = out[i].Sub(one)
				remainder = remainder.Add(one)
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	return out
}
