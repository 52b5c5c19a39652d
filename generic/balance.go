/*
balance.go - Day-by-day cash replay

PURPOSE:
  Turns a list of ledger entries into the per-day cash statement a report
  shows: opening balance, money in, money out by category, non-cash costs
  and closing balance.

KEY INSIGHT:
  Nothing here is stored. Every DayBalance is recomputed from the entries,
  so the statement can never drift from the ledger.

CALCULATION:
  Opening(d)  = sum of cash entries with Day < d
  Closing(d)  = Opening(d) + CashIn(d) - CashOut(d)
  Opening(d+1) = Closing(d)

  Non-cash entries (depreciation) are reported but excluded from the sums.

SEE ALSO:
  - projection.go: Lowest point and overdraft detection over DayBalances
  - report/report.go: Uses ReplayDays for the day ledger
*/
package generic

import "context"

// =============================================================================
// DAY BALANCE
// =============================================================================

// DayBalance is the cash statement for one simulated day.
// Outflows are stored as positive amounts.
type DayBalance struct {
	Day      Day
	Opening  Amount
	CashIn   Amount
	CashOut  map[Category]Amount
	TotalOut Amount
	NonCash  map[Category]Amount
	Closing  Amount
}

// Out returns the outflow for a category, zero if none.
func (b DayBalance) Out(c Category) Amount {
	if a, ok := b.CashOut[c]; ok {
		return a
	}
	return NewAmount(0, UnitCurrency)
}

// NonCashFor returns the non-cash amount for a category, zero if none.
func (b DayBalance) NonCashFor(c Category) Amount {
	if a, ok := b.NonCash[c]; ok {
		return a
	}
	return NewAmount(0, UnitCurrency)
}

// IsOverdrawn reports whether the day closed below zero.
func (b DayBalance) IsOverdrawn() bool { return b.Closing.IsNegative() }

// ReplayDays builds one DayBalance per day in r from entries.
// Entries must be ordered by Day (as Store.Load guarantees).
func ReplayDays(entries []Entry, r DayRange) []DayBalance {
	zero := NewAmount(0, UnitCurrency)

	running := zero
	idx := 0
	for idx < len(entries) && entries[idx].Day < r.From {
		if entries[idx].Kind.AffectsCash() {
			running = running.Add(entries[idx].Delta)
		}
		idx++
	}

	days := make([]DayBalance, 0, len(r.Days()))
	for _, d := range r.Days() {
		b := DayBalance{
			Day:      d,
			Opening:  running,
			CashIn:   zero,
			CashOut:  make(map[Category]Amount),
			TotalOut: zero,
			NonCash:  make(map[Category]Amount),
		}
		for idx < len(entries) && entries[idx].Day == d {
			e := entries[idx]
			switch e.Kind {
			case KindCashIn:
				b.CashIn = b.CashIn.Add(e.Delta)
			case KindCashOut:
				b.CashOut[e.Category] = b.Out(e.Category).Add(e.Delta.Abs())
				b.TotalOut = b.TotalOut.Add(e.Delta.Abs())
			case KindNonCash:
				b.NonCash[e.Category] = b.NonCashFor(e.Category).Add(e.Delta.Abs())
			}
			idx++
		}
		b.Closing = b.Opening.Add(b.CashIn).Sub(b.TotalOut)
		running = b.Closing
		days = append(days, b)
	}
	return days
}

// ReplayLedger loads an account from a Ledger and replays it over r.
func ReplayLedger(ctx context.Context, l Ledger, account AccountID, r DayRange) ([]DayBalance, error) {
	entries, err := l.Entries(ctx, account)
	if err != nil {
		return nil, err
	}
	return ReplayDays(entries, r), nil
}
