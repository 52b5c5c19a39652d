package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// ACCRUAL VS CASH DAY
// =============================================================================
//
// A cost is accrued on the day it is incurred. Cash leaves the account on a
// settlement day chosen by a SettlementFrequency. Each settlement pays every
// accrued-but-unpaid amount up to and including that day.

// SettlementFrequency determines on which days accrued amounts are paid out.
type SettlementFrequency string

const (
	SettleDaily    SettlementFrequency = "daily"
	SettleWeekly   SettlementFrequency = "weekly"
	SettleBiweekly SettlementFrequency = "biweekly"
	SettleMonthly  SettlementFrequency = "monthly"
)

func ParseSettlementFrequency(s string) (SettlementFrequency, error) {
	f := SettlementFrequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case SettleDaily, SettleWeekly, SettleBiweekly, SettleMonthly:
		return f, nil
	case "":
		return SettleDaily, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, s)
}

// IsSettlementDay reports whether cash moves on day d.
// Weekly settles every 7th day, biweekly every 14th, monthly every
// monthLength-th day.
func (f SettlementFrequency) IsSettlementDay(d Day, monthLength int) bool {
	if monthLength <= 0 {
		monthLength = DefaultMonthLength
	}
	n := int(d)
	switch f {
	case SettleWeekly:
		return n%7 == 0
	case SettleBiweekly:
		return n%14 == 0
	case SettleMonthly:
		return n%monthLength == 0
	default:
		return true
	}
}

// AccrualWindow tracks accrued amounts per day and how far they have been paid.
type AccrualWindow struct {
	accrued   map[Day]Amount
	paidUntil Day
	unit      Unit
}

func NewAccrualWindow(unit Unit) *AccrualWindow {
	return &AccrualWindow{accrued: make(map[Day]Amount), unit: unit}
}

// Accrue adds an amount to day d.
func (w *AccrualWindow) Accrue(d Day, a Amount) {
	cur, ok := w.accrued[d]
	if !ok {
		cur = NewAmount(0, w.unit)
	}
	w.accrued[d] = cur.Add(a)
}

// AccruedOn returns the amount accrued on a single day.
func (w *AccrualWindow) AccruedOn(d Day) Amount {
	if a, ok := w.accrued[d]; ok {
		return a
	}
	return NewAmount(0, w.unit)
}

// Total returns everything accrued so far.
func (w *AccrualWindow) Total() Amount {
	total := NewAmount(0, w.unit)
	for _, a := range w.accrued {
		total = total.Add(a)
	}
	return total
}

// Settle returns the unpaid amount for days (paidUntil, d] and marks them paid.
func (w *AccrualWindow) Settle(d Day) Amount {
	due := NewAmount(0, w.unit)
	for day, a := range w.accrued {
		if day > w.paidUntil && day <= d {
			due = due.Add(a)
		}
	}
	if d > w.paidUntil {
		w.paidUntil = d
	}
	return due
}

// Unpaid returns the accrued amount after paidUntil without settling it.
func (w *AccrualWindow) Unpaid() Amount {
	due := NewAmount(0, w.unit)
	for day, a := range w.accrued {
		if day > w.paidUntil {
			due = due.Add(a)
		}
	}
	return due
}

// PaidUntil is the last day covered by a settlement.
func (w *AccrualWindow) PaidUntil() Day { return w.paidUntil }
