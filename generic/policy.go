/*
policy.go - Cash timing policies

PURPOSE:
  Accrued costs are always recorded on the day they are incurred. A timing
  policy decides when the matching entry hits the ledger:

  TimingDaily:
    - Booked on the day it accrues
    - Example: overhead paid out every day, depreciation written daily

  TimingEndOfSimulation:
    - Accrued silently, booked once on the last production day
    - Example: rent invoiced at the end of the job

  Payroll uses a SettlementFrequency instead (see accrual.go) because it
  has more than two cadences.

INVARIANT:
  Reported accrued totals are identical under both policies. Only the day
  the cash (or non-cash) entry lands changes.
*/
package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// TIMING POLICY
// =============================================================================

type TimingPolicy string

const (
	TimingDaily           TimingPolicy = "daily"
	TimingEndOfSimulation TimingPolicy = "end_of_simulation"
)

func ParseTimingPolicy(s string) (TimingPolicy, error) {
	p := TimingPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case TimingDaily, TimingEndOfSimulation:
		return p, nil
	case "":
		return TimingDaily, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTiming, s)
}

// BooksDaily reports whether entries are written on their accrual day.
func (p TimingPolicy) BooksDaily() bool { return p != TimingEndOfSimulation }
