/*
Package ledger is the single mutator of stock, resource minutes and cash
during a simulation run.

PURPOSE:
  The scheduler decides what runs; the ResourceLedger decides whether it
  can and what it costs. Every stock change, every booked minute and every
  cash movement goes through a method on this type, so the accounting
  invariants live in one place.

STATE:
  stock         material id -> quantity on hand (never negative)
  batches       purchase batches, in flight until their arrival day
  usedMinutes   per-hour minute budget per resource (reset every hour)
  workedHour    employees committed this hour (reset every hour)
  windows       accrued-but-unbooked labor, depreciation and overhead
  cash          generic.Ledger, append-only, idempotent

ACCRUAL VS CASH DAY:
  Costs are accrued on the day they are incurred. Cash entries are booked
  according to the run's timing policies:

    labor          accrued per committed minute, paid on settlement days
    depreciation   accrued per committed minute, non-cash, daily or at end
    periodic       accrued per day, booked daily or once at end
    materials      prepay on order day, postpay on ready day

  Accrued totals are identical under every policy. Only the day the entry
  lands changes.

EXACTLY-ONCE:
  Every entry carries a deterministic idempotency key. A duplicate key is
  reported by the store and treated here as "already booked", which makes
  repeated settlements harmless.

SEE ALSO:
  - allocation.go: CheckAndAllocate / Commit / ResetHourAllocations
  - materials.go: replenishment, postpay, arrivals, atomic consumption
  - overhead.go: periodic expenses, payroll, depreciation settlement
  - generic/ledger.go: the append-only cash log underneath
*/
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/generic/store"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// RESOURCE LEDGER
// =============================================================================

// Options configures a ResourceLedger. Zero values are usable.
type Options struct {
	// Store backs the cash log. Defaults to a fresh in-memory store.
	Store generic.Store

	Logger *zap.Logger
}

type ResourceLedger struct {
	sc       *production.Scenario
	settings production.Settings
	cash     generic.Ledger
	logger   *zap.Logger

	materials  map[string]production.MaterialSpec
	employees  map[string]production.EmployeeSpec
	equipment  map[string]production.EquipmentSpec
	referenced []string

	stock    map[string]decimal.Decimal
	consumed map[string]decimal.Decimal
	short    map[string]decimal.Decimal
	batches  []*MaterialBatch
	batchSeq int

	usedMinutes   map[generic.ResourceRef]float64
	workedHour    map[string]bool
	workedMinutes map[generic.ResourceRef]float64

	labor        *generic.AccrualWindow
	depreciation *generic.AccrualWindow
	periodicNet  *generic.AccrualWindow
	periodicVAT  *generic.AccrualWindow

	totals Totals
}

// Totals are cumulative accrued amounts. They do not depend on when the
// matching cash entries are booked.
type Totals struct {
	MaterialNet  decimal.Decimal // consumed by operations
	MaterialVAT  decimal.Decimal
	PurchasedNet decimal.Decimal // ordered in batches
	PurchasedVAT decimal.Decimal
	Labor        decimal.Decimal
	Depreciation decimal.Decimal
	PeriodicNet  decimal.Decimal
	PeriodicVAT  decimal.Decimal
	ClientInflow decimal.Decimal
}

// New creates the ledger for one run, seeds initial stock and books the
// opening cash balance on day 0.
func New(ctx context.Context, sc *production.Scenario, opts Options) (*ResourceLedger, error) {
	st := opts.Store
	if st == nil {
		st = store.NewMemory()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &ResourceLedger{
		sc:            sc,
		settings:      sc.Settings,
		cash:          generic.NewLedger(st),
		logger:        logger,
		materials:     make(map[string]production.MaterialSpec),
		employees:     make(map[string]production.EmployeeSpec),
		equipment:     make(map[string]production.EquipmentSpec),
		referenced:    sc.ReferencedMaterials(),
		stock:         make(map[string]decimal.Decimal),
		consumed:      make(map[string]decimal.Decimal),
		short:         make(map[string]decimal.Decimal),
		usedMinutes:   make(map[generic.ResourceRef]float64),
		workedHour:    make(map[string]bool),
		workedMinutes: make(map[generic.ResourceRef]float64),
		labor:         generic.NewAccrualWindow(generic.UnitCurrency),
		depreciation:  generic.NewAccrualWindow(generic.UnitCurrency),
		periodicNet:   generic.NewAccrualWindow(generic.UnitCurrency),
		periodicVAT:   generic.NewAccrualWindow(generic.UnitCurrency),
		totals:        zeroTotals(),
	}
	for _, m := range sc.Catalog.Materials {
		l.materials[m.ID] = m
		l.stock[m.ID] = m.InitialStock
		l.consumed[m.ID] = decimal.Zero
	}
	for _, e := range sc.Catalog.Employees {
		l.employees[e.ID] = e
	}
	for _, e := range sc.Catalog.Equipment {
		l.equipment[e.ID] = e
	}

	if !l.settings.InitialCash.IsZero() {
		kind := generic.KindCashIn
		if l.settings.InitialCash.IsNegative() {
			kind = generic.KindCashOut
		}
		if _, err := l.book(ctx, generic.Entry{
			Day:            0,
			Kind:           kind,
			Category:       generic.CategoryOpening,
			Delta:          generic.Money(l.settings.InitialCash),
			Reason:         "opening balance",
			IdempotencyKey: "opening",
		}); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func zeroTotals() Totals {
	z := decimal.Zero
	return Totals{z, z, z, z, z, z, z, z, z}
}

// Totals returns a copy of the cumulative accruals.
func (l *ResourceLedger) Totals() Totals { return l.totals }

// Settings returns the settings the ledger books against.
func (l *ResourceLedger) Settings() production.Settings { return l.settings }

// =============================================================================
// CASH BOOKING
// =============================================================================

// book appends entries atomically to the cash account. Zero-amount entries
// are dropped. It returns false without error when the idempotency key was
// already booked.
func (l *ResourceLedger) book(ctx context.Context, entries ...generic.Entry) (bool, error) {
	batch := make([]generic.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Delta.IsZero() {
			continue
		}
		e.Account = generic.AccountCash
		if e.ID == "" {
			e.ID = generic.EntryID(e.IdempotencyKey)
		}
		batch = append(batch, e)
	}
	if len(batch) == 0 {
		return false, nil
	}

	err := l.cash.AppendBatch(ctx, batch)
	if errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
		l.logger.Debug("entry already booked", zap.String("key", batch[0].IdempotencyKey))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("book %s: %w", batch[0].IdempotencyKey, err)
	}
	return true, nil
}

func cashOut(day generic.Day, cat generic.Category, amount decimal.Decimal, ref, reason, key string) generic.Entry {
	return generic.Entry{
		Day:            day,
		Kind:           generic.KindCashOut,
		Category:       cat,
		Delta:          generic.Money(amount.Neg()),
		ReferenceID:    ref,
		Reason:         reason,
		IdempotencyKey: key,
	}
}

// CreditClientInflow books a client payment as same-day cash in.
func (l *ResourceLedger) CreditClientInflow(ctx context.Context, day generic.Day, amount decimal.Decimal, ref string) (bool, error) {
	booked, err := l.book(ctx, generic.Entry{
		Day:            day,
		Kind:           generic.KindCashIn,
		Category:       generic.CategoryClient,
		Delta:          generic.Money(amount),
		ReferenceID:    ref,
		Reason:         "client payment",
		IdempotencyKey: "client:" + ref,
	})
	if booked {
		l.totals.ClientInflow = l.totals.ClientInflow.Add(amount)
	}
	return booked, err
}

// Cash returns the cash balance at the end of day.
func (l *ResourceLedger) Cash(ctx context.Context, day generic.Day) (decimal.Decimal, error) {
	a, err := l.cash.BalanceAt(ctx, generic.AccountCash, day)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Value, nil
}

// Entries returns every booked entry ordered by day.
func (l *ResourceLedger) Entries(ctx context.Context) ([]generic.Entry, error) {
	return l.cash.Entries(ctx, generic.AccountCash)
}

// =============================================================================
// DAY BOUNDARIES
// =============================================================================

// DayOpening reports what happened when a day was opened.
type DayOpening struct {
	Day      generic.Day
	Arrived  []*MaterialBatch
	Postpaid []*MaterialBatch
	Ordered  []*MaterialBatch
	Inflow   decimal.Decimal
}

// OpenDay runs the start-of-day steps of a production day in order:
// arrivals, postpay, replenishment, periodic expenses, client inflows.
func (l *ResourceLedger) OpenDay(ctx context.Context, day generic.Day) (DayOpening, error) {
	out, err := l.openCommon(ctx, day)
	if err != nil {
		return out, err
	}
	if out.Ordered, err = l.DailyReplenishment(ctx, day); err != nil {
		return out, err
	}
	if l.settings.PeriodicTiming.BooksDaily() {
		err = l.ApplyForDay(ctx, day)
	} else {
		err = l.AccrueOnly(day)
	}
	if err != nil {
		return out, err
	}
	out.Inflow, err = l.clientInflows(ctx, day)
	return out, err
}

// OpenTailDay opens a day after production finished: in-flight batches are
// still paid and received, and client payments still arrive. Nothing is
// ordered and no overhead accrues.
func (l *ResourceLedger) OpenTailDay(ctx context.Context, day generic.Day) (DayOpening, error) {
	out, err := l.openCommon(ctx, day)
	if err != nil {
		return out, err
	}
	out.Inflow, err = l.clientInflows(ctx, day)
	return out, err
}

func (l *ResourceLedger) openCommon(ctx context.Context, day generic.Day) (DayOpening, error) {
	out := DayOpening{Day: day, Inflow: decimal.Zero}
	out.Arrived = l.ProcessArrivals(day)
	var err error
	out.Postpaid, err = l.ProcessPostpay(ctx, day)
	return out, err
}

func (l *ResourceLedger) clientInflows(ctx context.Context, day generic.Day) (decimal.Decimal, error) {
	total := decimal.Zero
	for i, p := range l.sc.Order.PaymentSchedule {
		if generic.Day(p.Day) != day {
			continue
		}
		amount := l.sc.Order.PaymentAmount(p)
		booked, err := l.CreditClientInflow(ctx, day, amount, fmt.Sprintf("%s:%d", l.sc.Order.ID, i+1))
		if err != nil {
			return total, err
		}
		if booked {
			total = total.Add(amount)
		}
	}
	return total, nil
}

// LastScheduledDay is the latest day a batch or client payment still needs
// to be processed. Zero when nothing is pending.
func (l *ResourceLedger) LastScheduledDay() generic.Day {
	var last generic.Day
	for _, b := range l.batches {
		if !b.Arrived && b.ArrivalDay > last {
			last = b.ArrivalDay
		}
		if !b.PostpayBooked && b.ReadyDay > last {
			last = b.ReadyDay
		}
	}
	for _, p := range l.sc.Order.PaymentSchedule {
		if generic.Day(p.Day) > last {
			last = generic.Day(p.Day)
		}
	}
	return last
}

// CloseDay runs the end-of-day steps: payroll on settlement days and daily
// depreciation.
func (l *ResourceLedger) CloseDay(ctx context.Context, day generic.Day) error {
	if l.settings.PayrollFrequency.IsSettlementDay(day, l.settings.MonthLengthDays) {
		if _, err := l.SettlePayroll(ctx, day, false); err != nil {
			return err
		}
	}
	if l.settings.DepreciationTiming.BooksDaily() {
		if _, err := l.BookDepreciation(ctx, day, false); err != nil {
			return err
		}
	}
	return nil
}

// FinalSettlement books everything still accrued on the last production
// day: deferred periodic expenses, deferred depreciation and unpaid payroll.
// Calling it again books nothing.
func (l *ResourceLedger) FinalSettlement(ctx context.Context, day generic.Day) error {
	if _, err := l.SettlePeriodic(ctx, day); err != nil {
		return err
	}
	if _, err := l.BookDepreciation(ctx, day, true); err != nil {
		return err
	}
	_, err := l.SettlePayroll(ctx, day, true)
	return err
}
