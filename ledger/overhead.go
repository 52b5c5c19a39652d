package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// PERIODIC EXPENSES
// =============================================================================

// DailyCharge is one day's share of a periodic expense.
type DailyCharge struct {
	ExpenseID string
	Gross     decimal.Decimal
	Net       decimal.Decimal
	VAT       decimal.Decimal
}

// DailyShare converts a gross per-period amount into a daily net and VAT
// pair. net = gross / (1 + VAT%), VAT = gross - net.
func DailyShare(x production.PeriodicExpense, monthLength int) (DailyCharge, error) {
	gross, err := x.Period.DailyShare(x.Amount, monthLength)
	if err != nil {
		return DailyCharge{}, fmt.Errorf("expense %s: %w", x.ID, err)
	}
	net := gross
	if x.VATRate.IsPositive() {
		net = gross.Div(decimal.NewFromInt(1).Add(x.VATRate.Div(hundred)))
	}
	return DailyCharge{ExpenseID: x.ID, Gross: gross, Net: net, VAT: gross.Sub(net)}, nil
}

func (l *ResourceLedger) accruePeriodic(day generic.Day) ([]DailyCharge, error) {
	charges := make([]DailyCharge, 0, len(l.sc.Catalog.Expenses))
	for _, x := range l.sc.Catalog.Expenses {
		c, err := DailyShare(x, l.settings.MonthLengthDays)
		if err != nil {
			return nil, err
		}
		l.periodicNet.Accrue(day, generic.Money(c.Net))
		l.periodicVAT.Accrue(day, generic.Money(c.VAT))
		l.totals.PeriodicNet = l.totals.PeriodicNet.Add(c.Net)
		l.totals.PeriodicVAT = l.totals.PeriodicVAT.Add(c.VAT)
		charges = append(charges, c)
	}
	return charges, nil
}

// ApplyForDay accrues the day's share of every periodic expense and books
// it as cash out the same day.
func (l *ResourceLedger) ApplyForDay(ctx context.Context, day generic.Day) error {
	charges, err := l.accruePeriodic(day)
	if err != nil {
		return err
	}
	entries := make([]generic.Entry, 0, 2*len(charges))
	for _, c := range charges {
		key := fmt.Sprintf("periodic:%s:%d", c.ExpenseID, day)
		entries = append(entries,
			cashOut(day, generic.CategoryPeriodic, c.Net, c.ExpenseID, "periodic expense", key+":net"),
			cashOut(day, generic.CategoryPeriodicVAT, c.VAT, c.ExpenseID, "periodic expense VAT", key+":vat"),
		)
	}
	if _, err := l.book(ctx, entries...); err != nil {
		return err
	}
	l.periodicNet.Settle(day)
	l.periodicVAT.Settle(day)
	return nil
}

// AccrueOnly accrues the day's share without booking cash. SettlePeriodic
// books the accumulated amount later.
func (l *ResourceLedger) AccrueOnly(day generic.Day) error {
	_, err := l.accruePeriodic(day)
	return err
}

// SettlePeriodic books every accrued-but-unbooked periodic amount on day.
// It is idempotent: a second call books nothing.
func (l *ResourceLedger) SettlePeriodic(ctx context.Context, day generic.Day) (bool, error) {
	net := l.periodicNet.Unpaid().Value
	vat := l.periodicVAT.Unpaid().Value
	booked, err := l.book(ctx,
		cashOut(day, generic.CategoryPeriodic, net, "periodic", "periodic settlement", "periodic:settlement:net"),
		cashOut(day, generic.CategoryPeriodicVAT, vat, "periodic", "periodic settlement VAT", "periodic:settlement:vat"),
	)
	if err != nil || !booked {
		return false, err
	}
	l.periodicNet.Settle(day)
	l.periodicVAT.Settle(day)
	return true, nil
}

// =============================================================================
// PAYROLL
// =============================================================================

// SettlePayroll pays all labor accrued up to and including day. Non-final
// settlements are keyed by day; the final one runs once per run.
func (l *ResourceLedger) SettlePayroll(ctx context.Context, day generic.Day, final bool) (decimal.Decimal, error) {
	due := l.labor.Unpaid().Value
	key := fmt.Sprintf("payroll:%d", day)
	if final {
		key = "payroll:final"
	}
	booked, err := l.book(ctx, cashOut(day, generic.CategoryLabor, due, "payroll", "payroll settlement", key))
	if err != nil || !booked {
		return decimal.Zero, err
	}
	l.labor.Settle(day)
	return due, nil
}

// LaborAccruedOn is the labor cost incurred on a single day.
func (l *ResourceLedger) LaborAccruedOn(day generic.Day) decimal.Decimal {
	return l.labor.AccruedOn(day).Value
}

// UnpaidLabor is labor accrued but not yet settled.
func (l *ResourceLedger) UnpaidLabor() decimal.Decimal { return l.labor.Unpaid().Value }

// =============================================================================
// DEPRECIATION
// =============================================================================

// BookDepreciation writes accrued depreciation as a non-cash entry. Daily
// bookings are keyed by day; the final one runs once per run.
func (l *ResourceLedger) BookDepreciation(ctx context.Context, day generic.Day, final bool) (decimal.Decimal, error) {
	due := l.depreciation.Unpaid().Value
	key := fmt.Sprintf("depreciation:%d", day)
	if final {
		key = "depreciation:final"
	}
	booked, err := l.book(ctx, generic.Entry{
		Day:            day,
		Kind:           generic.KindNonCash,
		Category:       generic.CategoryDepreciation,
		Delta:          generic.Money(due.Neg()),
		ReferenceID:    "equipment",
		Reason:         "depreciation",
		IdempotencyKey: key,
	})
	if err != nil || !booked {
		return decimal.Zero, err
	}
	l.depreciation.Settle(day)
	return due, nil
}

// DepreciationAccruedOn is the depreciation incurred on a single day.
func (l *ResourceLedger) DepreciationAccruedOn(day generic.Day) decimal.Decimal {
	return l.depreciation.AccruedOn(day).Value
}
