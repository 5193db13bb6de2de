/*
line.go - Payment lines and line building

PURPOSE:
  A PaymentLine is one instruction to the external payment ledger: pay a
  constant daily amount over a contiguous date range. Lines for the same
  recipient and reference form a chain - successive corrections carry
  increasing sequence numbers and back-reference the line they replace.

CHAIN MODEL:
  The chain is an arena of lines indexed by (chain id, sequence number).
  Lines never hold pointers to each other; PrevSeq is a plain index-based
  back-reference, so no cycles can exist and serialization stays trivial.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CHANGE CODES
// =============================================================================

// ChangeCode tells the payment system what to do with a line. The codes
// are the external ledger's own vocabulary.
type ChangeCode string

const (
	ChangeNew       ChangeCode = "NY"   // brand-new line in the chain
	ChangeUnchanged ChangeCode = "UEND" // identical to the issued line
	ChangeModified  ChangeCode = "ENDR" // same line, different extent or voided
)

// =============================================================================
// PAYMENT LINE
// =============================================================================

// PaymentLine is a contiguous date range paid at a constant daily amount.
// (ChainID, Seq) uniquely identifies a line in the external ledger.
type PaymentLine struct {
	ChainID     string          `json:"chain_id"`     // delivery/reference id toward the payment system
	Seq         int             `json:"seq"`          // position in the chain, 1-based
	PrevSeq     int             `json:"prev_seq"`     // line this one continues or replaces; 0 = chain start
	From        Date            `json:"from"`
	To          Date            `json:"to"`
	DailyAmount decimal.Decimal `json:"daily_amount"` // whole kroner
	Grade       int             `json:"grade"`
	Change      ChangeCode      `json:"change"`
	VoidFrom    *Date           `json:"void_from,omitempty"` // withdrawn from this date onward
}

// Overlaps reports whether the date ranges of two lines intersect.
func (l PaymentLine) Overlaps(o PaymentLine) bool {
	return l.From.BeforeOrEqual(o.To) && o.From.BeforeOrEqual(l.To)
}

// sameValues reports whether amount and grade match.
func (l PaymentLine) sameValues(o PaymentLine) bool {
	return l.DailyAmount.Equal(o.DailyAmount) && l.Grade == o.Grade
}

// Voided reports whether the line has been withdrawn.
func (l PaymentLine) Voided() bool { return l.VoidFrom != nil }

// =============================================================================
// LINE BUILDING
// =============================================================================

// DayAmount is one day of computed benefit for a single liable party, the
// reconciler's view of an allocated economic result.
type DayAmount struct {
	Date   Date
	Amount decimal.Decimal // whole kroner
	Grade  int
}

// BuildLines folds a per-party day sequence into the minimal set of
// contiguous payment lines: a new line starts whenever the date sequence
// breaks or the (amount, grade) pair changes. Zero-amount days produce no
// line. Sequence numbers are left unset - Diff assigns them from the chain.
func BuildLines(chainID string, days []DayAmount) []PaymentLine {
	sorted := make([]DayAmount, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var lines []PaymentLine
	for _, d := range sorted {
		if d.Amount.IsZero() {
			continue
		}
		if n := len(lines); n > 0 {
			last := &lines[n-1]
			if last.To.AddDays(1).Equal(d.Date) &&
				last.DailyAmount.Equal(d.Amount) && last.Grade == d.Grade {
				last.To = d.Date
				continue
			}
		}
		lines = append(lines, PaymentLine{
			ChainID:     chainID,
			From:        d.Date,
			To:          d.Date,
			DailyAmount: d.Amount,
			Grade:       d.Grade,
		})
	}
	return lines
}
