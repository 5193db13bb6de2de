/*
baseamount.go - The statutory base amount ("G") table

PURPOSE:
  The national insurance base amount caps how much daily income the scheme
  covers: no benefit is payable above six times the base amount (6G),
  pro-rated to a working day. The figure is revised every May, so lookups
  are date-indexed - the table is supplied per run and looked up by
  calculation date, never cached inside the core.
*/
package engine

import "github.com/shopspring/decimal"

// workingDaysPerYear converts an annual ceiling to a daily one. The scheme
// counts 260 benefit days per year (5-day weeks).
var workingDaysPerYear = decimal.NewFromInt(260)

var sixG = decimal.NewFromInt(6)

// =============================================================================
// TABLE
// =============================================================================

// BaseAmount is one revision of the statutory base amount.
type BaseAmount struct {
	EffectiveFrom Date
	Annual        decimal.Decimal
}

// BaseAmountTable is the published, date-indexed base amount history.
// Entries may be in any order; lookup picks the latest revision effective
// on or before the calculation date.
type BaseAmountTable []BaseAmount

// At returns the annual base amount effective on the given date.
func (t BaseAmountTable) At(date Date) (decimal.Decimal, error) {
	var (
		best  BaseAmount
		found bool
	)
	for _, entry := range t {
		if entry.EffectiveFrom.After(date) {
			continue
		}
		if !found || entry.EffectiveFrom.After(best.EffectiveFrom) {
			best = entry
			found = true
		}
	}
	if !found {
		return decimal.Zero, ErrNoBaseAmount
	}
	return best.Annual, nil
}

// DailyMax returns the maximum daily coverage base for the date: 6G / 260.
// Unrounded - callers scale by the blended grade first, then round.
func (t BaseAmountTable) DailyMax(date Date) (decimal.Decimal, error) {
	annual, err := t.At(date)
	if err != nil {
		return decimal.Zero, err
	}
	return annual.Mul(sixG).Div(workingDaysPerYear), nil
}

// DefaultBaseAmounts returns the published revisions this engine ships
// with. Deployments override via configuration; tests use it directly.
func DefaultBaseAmounts() BaseAmountTable {
	return BaseAmountTable{
		{EffectiveFrom: NewDate(2022, 5, 1), Annual: decimal.NewFromInt(111477)},
		{EffectiveFrom: NewDate(2023, 5, 1), Annual: decimal.NewFromInt(118620)},
		{EffectiveFrom: NewDate(2024, 5, 1), Annual: decimal.NewFromInt(124028)},
		{EffectiveFrom: NewDate(2025, 5, 1), Annual: decimal.NewFromInt(130160)},
	}
}
