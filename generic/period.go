package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PERIOD - Billing period of a recurring amount
// =============================================================================

// Period is the span a recurring gross amount is quoted for
// (rent per month, insurance per year, ...).
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

// DefaultMonthLength is the month-length divisor used when none is configured.
const DefaultMonthLength = 30

// ParsePeriod converts user input to a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// Days returns how many simulated days the period spans.
// Months are monthLength days; quarters and years are built from months.
func (p Period) Days(monthLength int) (int, error) {
	if monthLength <= 0 {
		monthLength = DefaultMonthLength
	}
	switch p {
	case PeriodDay:
		return 1, nil
	case PeriodWeek:
		return 7, nil
	case PeriodMonth:
		return monthLength, nil
	case PeriodQuarter:
		return 3 * monthLength, nil
	case PeriodYear:
		return 12 * monthLength, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
}

// DailyShare spreads a per-period amount evenly over the period's days.
func (p Period) DailyShare(amount decimal.Decimal, monthLength int) (decimal.Decimal, error) {
	days, err := p.Days(monthLength)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(decimal.NewFromInt(int64(days))), nil
}
