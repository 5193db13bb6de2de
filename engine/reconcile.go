/*
reconcile.go - Payment-line reconciliation

PURPOSE:
  After a recomputation, the engine holds a fresh set of payment lines
  and the payment system holds whatever was issued last time. This file
  computes the minimal change set between the two: which lines are new,
  which merely changed extent, and which must be voided.

CASE POLICY (per recalculated line, against the live previous lines):
  - no overlap                 -> new line, chained after the highest seq
  - exact match                -> unchanged; suppressed unless the payment
                                  system requires a full resend
  - same start, same amount and grade, different end
                               -> "changed": same seq and chain position,
                                  only the extent differs
  - any other overlap          -> previous line voided from its start, a
                                  new chained replacement emitted
  Previous lines matching no recalculated line are voided outright.

IDEMPOTENCE:
  Sequence ids are derived from the chain itself (highest seq seen), never
  from an external counter, so diffing the same inputs twice yields the
  same ids - and once a change set is applied, diffing again yields nothing.
*/
package engine

import (
	"log/slog"
	"sort"
)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler computes payment-line change sets. The zero value is usable;
// NewReconciler wires the default logger.
type Reconciler struct {
	// Log receives a warning whenever the four-case policy cannot classify
	// an overlap unambiguously and the conservative void-and-replace
	// fallback is taken. Those runs need manual review.
	Log *slog.Logger

	// ResendUnchanged emits exact matches as UEND lines instead of
	// suppressing them, for payment systems that require a full resend.
	ResendUnchanged bool
}

func NewReconciler() *Reconciler {
	return &Reconciler{Log: slog.Default()}
}

// Diff returns the lines that must be sent to the payment system to move
// it from 'previous' (the issued state) to 'recalculated'. Both inputs
// must belong to a single chain.
func (rc *Reconciler) Diff(recalculated, previous []PaymentLine) []PaymentLine {
	live := make([]PaymentLine, 0, len(previous))
	maxSeq := 0
	for _, p := range previous {
		if p.Seq > maxSeq {
			maxSeq = p.Seq
		}
		if !p.Voided() {
			live = append(live, p)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].From.Before(live[j].From) })

	recalc := make([]PaymentLine, len(recalculated))
	copy(recalc, recalculated)
	sort.Slice(recalc, func(i, j int) bool { return recalc[i].From.Before(recalc[j].From) })

	var out []PaymentLine
	consumed := make([]bool, len(live))

	for _, rl := range recalc {
		var overlapping []int
		for i, p := range live {
			if !consumed[i] && rl.Overlaps(p) {
				overlapping = append(overlapping, i)
			}
		}

		switch len(overlapping) {
		case 0:
			// Fresh span: chain after the highest id seen so far.
			nl := rl
			nl.PrevSeq = maxSeq
			maxSeq++
			nl.Seq = maxSeq
			nl.Change = ChangeNew
			out = append(out, nl)

		case 1:
			p := live[overlapping[0]]
			consumed[overlapping[0]] = true
			switch {
			case p.From.Equal(rl.From) && p.To.Equal(rl.To) && p.sameValues(rl):
				if rc.ResendUnchanged {
					same := p
					same.Change = ChangeUnchanged
					out = append(out, same)
				}
			case p.From.Equal(rl.From) && p.sameValues(rl):
				// Extent change only: the line keeps its identity.
				changed := p
				changed.To = rl.To
				changed.Change = ChangeModified
				out = append(out, changed)
			default:
				out = append(out, voidLine(p))
				nl := rl
				nl.PrevSeq = p.Seq
				maxSeq++
				nl.Seq = maxSeq
				nl.Change = ChangeNew
				out = append(out, nl)
			}

		default:
			// The four-case policy can't classify a multi-line overlap.
			// Conservative fallback: void everything touched and issue a
			// single replacement. Flagged for manual review.
			rc.logger().Warn("ambiguous payment-line overlap, voiding and replacing",
				"chain", rl.ChainID,
				"from", rl.From.String(),
				"to", rl.To.String(),
				"overlapping", len(overlapping),
			)
			prevSeq := 0
			for _, i := range overlapping {
				consumed[i] = true
				out = append(out, voidLine(live[i]))
				if live[i].Seq > prevSeq {
					prevSeq = live[i].Seq
				}
			}
			nl := rl
			nl.PrevSeq = prevSeq
			maxSeq++
			nl.Seq = maxSeq
			nl.Change = ChangeNew
			out = append(out, nl)
		}
	}

	// Previous lines with no recalculated counterpart disappear entirely.
	for i, p := range live {
		if !consumed[i] {
			out = append(out, voidLine(p))
		}
	}
	return out
}

func (rc *Reconciler) logger() *slog.Logger {
	if rc.Log != nil {
		return rc.Log
	}
	return slog.Default()
}

func voidLine(p PaymentLine) PaymentLine {
	v := p
	from := p.From
	v.VoidFrom = &from
	v.Change = ChangeModified
	return v
}

// =============================================================================
// APPLYING A CHANGE SET
// =============================================================================

// Apply folds a change set into the issued line set, yielding the new
// issued state: changed and voided lines replace their predecessors by
// sequence number, new lines join the chain. Unchanged (UEND) lines are
// no-ops by definition.
func Apply(previous, changes []PaymentLine) []PaymentLine {
	bySeq := make(map[int]PaymentLine, len(previous)+len(changes))
	for _, p := range previous {
		bySeq[p.Seq] = p
	}
	for _, c := range changes {
		if c.Change == ChangeUnchanged {
			continue
		}
		bySeq[c.Seq] = c
	}

	out := make([]PaymentLine, 0, len(bySeq))
	for _, l := range bySeq {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Diff is the package-level convenience over a default Reconciler.
func Diff(recalculated, previous []PaymentLine) []PaymentLine {
	return NewReconciler().Diff(recalculated, previous)
}
