/*
projection.go - Cash position over a replayed statement

PURPOSE:
  Answers "how low does the account go, and when?" for a finished run.
  A negative balance is a valid simulated overdraft, not an error; the
  projection just makes it visible.

EXAMPLE:
  days := generic.ReplayDays(entries, generic.DayRange{From: 1, To: 12})
  p := generic.ProjectCash(days)
  if p.FirstOverdraft != 0 {
      fmt.Println("overdrawn from", p.FirstOverdraft)
  }

SEE ALSO:
  - balance.go: DayBalance replay
*/
package generic

// =============================================================================
// CASH PROJECTION
// =============================================================================

type CashProjection struct {
	// Lowest closing balance and the first day it was reached
	Lowest    Amount
	LowestDay Day

	// Days that closed below zero, ascending
	OverdraftDays []Day

	// First overdrawn day, 0 when the account never went negative
	FirstOverdraft Day

	Opening Amount
	Closing Amount
}

// ProjectCash scans day balances for the lowest point and overdraft days.
func ProjectCash(days []DayBalance) CashProjection {
	p := CashProjection{
		Lowest:  NewAmount(0, UnitCurrency),
		Opening: NewAmount(0, UnitCurrency),
		Closing: NewAmount(0, UnitCurrency),
	}
	if len(days) == 0 {
		return p
	}

	p.Opening = days[0].Opening
	p.Lowest = days[0].Closing
	p.LowestDay = days[0].Day
	for _, d := range days {
		if d.Closing.LessThan(p.Lowest) {
			p.Lowest = d.Closing
			p.LowestDay = d.Day
		}
		if d.IsOverdrawn() {
			p.OverdraftDays = append(p.OverdraftDays, d.Day)
			if p.FirstOverdraft == 0 {
				p.FirstOverdraft = d.Day
			}
		}
	}
	p.Closing = days[len(days)-1].Closing
	return p
}
