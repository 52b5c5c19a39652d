package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/ledger"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// ALLOCATION
// =============================================================================

func TestCheckAndAllocate_PicksFreeEmployeesByID(t *testing.T) {
	// GIVEN: ann and bob both hold "operator"
	// WHEN: three operations each ask for one operator in the same hour
	// THEN: ann, then bob, then nobody; after the reset ann is free again

	l := newLedger(t, scenario(nil))
	req := ledger.AllocationRequest{Roles: []string{"operator"}, Minutes: 60}

	first := l.CheckAndAllocate(req)
	require.True(t, first.OK())
	assert.Equal(t, []string{"ann"}, first.Employees)
	l.Commit(first, 1, 1, 1)

	second := l.CheckAndAllocate(req)
	require.True(t, second.OK())
	assert.Equal(t, []string{"bob"}, second.Employees)
	l.Commit(second, 1, 1, 1)

	third := l.CheckAndAllocate(req)
	assert.False(t, third.OK())
	assert.Equal(t, ledger.ReasonNoWorker, third.Reason)

	l.ResetHourAllocations()
	assert.Equal(t, []string{"ann"}, l.CheckAndAllocate(req).Employees)
}

func TestCheckAndAllocate_HeldResourcesAreSkipped(t *testing.T) {
	l := newLedger(t, scenario(nil))
	held := func(r generic.ResourceRef) bool {
		return r == generic.Employee("ann") || r == generic.Equipment("press")
	}

	a := l.CheckAndAllocate(ledger.AllocationRequest{Roles: []string{"operator"}, Held: held})
	assert.Equal(t, []string{"bob"}, a.Employees)

	a = l.CheckAndAllocate(ledger.AllocationRequest{Equipment: []string{"press"}, Held: held})
	assert.False(t, a.OK())
	assert.Equal(t, ledger.ReasonEquipmentBusy, a.Reason)
}

func TestCheckAndAllocate_RequireFullRejectsPartialMinutes(t *testing.T) {
	// GIVEN: the press already gave 30 minutes this hour
	// WHEN: a continuous request needs the full hour
	// THEN: rejected; a pro-rated request gets capacity 0.5

	l := newLedger(t, scenario(nil))
	setup := l.CheckAndAllocate(ledger.AllocationRequest{Equipment: []string{"press"}, Minutes: 30})
	require.True(t, setup.OK())
	l.Commit(setup, 1, 1, 1)

	full := l.CheckAndAllocate(ledger.AllocationRequest{Equipment: []string{"press"}, Minutes: 60, RequireFullEquipment: true})
	assert.False(t, full.OK())

	partial := l.CheckAndAllocate(ledger.AllocationRequest{Equipment: []string{"press"}, Minutes: 60})
	require.True(t, partial.OK())
	assert.InDelta(t, 0.5, partial.Capacity, 1e-9)
	assert.InDelta(t, 30, partial.Minutes, 1e-9)
}

func TestCheckAndAllocate_EquipmentSharesItsMinuteBudget(t *testing.T) {
	// GIVEN: two setups of 30 minutes each on the same press in one hour
	// WHEN: both allocate before the hour is reset
	// THEN: both get the press at full capacity; a third request finds no
	//       minutes left. Unlike employees, equipment is not exclusive per hour.

	l := newLedger(t, scenario(nil))
	req := ledger.AllocationRequest{Equipment: []string{"press"}, Minutes: 30}

	left := l.CheckAndAllocate(req)
	require.True(t, left.OK())
	l.Commit(left, 1, 1, 1)

	right := l.CheckAndAllocate(req)
	require.True(t, right.OK())
	assert.Equal(t, []string{"press"}, right.Equipment)
	assert.InDelta(t, 1.0, right.Capacity, 1e-9)
	l.Commit(right, 1, 1, 1)

	third := l.CheckAndAllocate(req)
	assert.False(t, third.OK())
	assert.Equal(t, ledger.ReasonEquipmentBusy, third.Reason)

	l.ResetHourAllocations()
	assert.True(t, l.CheckAndAllocate(req).OK())
}

func TestCommit_CostsAndWorkedMinutes(t *testing.T) {
	l := newLedger(t, scenario(nil))
	a := l.CheckAndAllocate(ledger.AllocationRequest{
		Roles:     []string{"operator"},
		Equipment: []string{"press"},
		Minutes:   30,
	})
	require.True(t, a.OK())

	cost := l.Commit(a, 2, 1, 1)
	assert.True(t, cost.Labor.Equal(d(5)), "ann: 10/h for half an hour")
	assert.True(t, cost.Depreciation.Equal(d(3)))
	assert.True(t, l.WorkedThisHour("ann"))
	assert.InDelta(t, 30, l.WorkedMinutes(generic.Employee("ann")), 1e-9)
	assert.True(t, l.LaborAccruedOn(2).Equal(d(5)))
	assert.True(t, l.DepreciationAccruedOn(2).Equal(d(3)))

	l.ResetHourAllocations()
	assert.False(t, l.WorkedThisHour("ann"))
	assert.InDelta(t, 30, l.WorkedMinutes(generic.Employee("ann")), 1e-9, "cumulative minutes survive the reset")
}

// =============================================================================
// PAYROLL - accrual day vs cash day
// =============================================================================

func TestPayroll_WeeklyAccruesDailyPaysOnDaySeven(t *testing.T) {
	// GIVEN: weekly payroll, ann works one hour every day
	// WHEN: days 1-7 are closed
	// THEN: labor is incurred every day but cash only leaves on day 7

	ctx := context.Background()
	l := newLedger(t, scenario(func(sc *production.Scenario) {
		sc.Settings.PayrollFrequency = generic.SettleWeekly
	}))

	for day := generic.Day(1); day <= 7; day++ {
		l.ResetHourAllocations()
		a := l.CheckAndAllocate(ledger.AllocationRequest{Roles: []string{"operator"}})
		l.Commit(a, day, 1, 1)
		require.NoError(t, l.CloseDay(ctx, day))

		assert.True(t, l.LaborAccruedOn(day).Equal(d(10)), "cost incurred on day %d", day)
		if day < 7 {
			assert.True(t, outflow(t, l, day, generic.CategoryLabor).IsZero(), "no cash on day %d", day)
		}
	}
	assert.True(t, outflow(t, l, 7, generic.CategoryLabor).Equal(d(70)))
	assert.True(t, l.UnpaidLabor().IsZero())
}

func TestPayroll_FinalSettlementPaysTheRest(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, scenario(func(sc *production.Scenario) {
		sc.Settings.PayrollFrequency = generic.SettleMonthly
	}))

	a := l.CheckAndAllocate(ledger.AllocationRequest{Roles: []string{"operator"}})
	l.Commit(a, 3, 1, 1)
	require.NoError(t, l.CloseDay(ctx, 3))
	assert.True(t, l.UnpaidLabor().Equal(d(10)))

	require.NoError(t, l.FinalSettlement(ctx, 3))
	require.NoError(t, l.FinalSettlement(ctx, 3))
	assert.True(t, outflow(t, l, 3, generic.CategoryLabor).Equal(d(10)))
}

// =============================================================================
// DEPRECIATION
// =============================================================================

func TestDepreciation_NonCashDailyOrAtEnd(t *testing.T) {
	ctx := context.Background()
	for _, timing := range []generic.TimingPolicy{generic.TimingDaily, generic.TimingEndOfSimulation} {
		t.Run(string(timing), func(t *testing.T) {
			l := newLedger(t, scenario(func(sc *production.Scenario) {
				sc.Settings.DepreciationTiming = timing
			}))
			for day := generic.Day(1); day <= 2; day++ {
				l.ResetHourAllocations()
				a := l.CheckAndAllocate(ledger.AllocationRequest{Equipment: []string{"press"}})
				l.Commit(a, day, 1, 1)
				require.NoError(t, l.CloseDay(ctx, day))
			}
			require.NoError(t, l.FinalSettlement(ctx, 2))

			entries, err := l.Entries(ctx)
			require.NoError(t, err)
			days := generic.ReplayDays(entries, generic.DayRange{From: 1, To: 2})
			if timing == generic.TimingDaily {
				assert.True(t, days[0].NonCashFor(generic.CategoryDepreciation).Value.Equal(d(6)))
			} else {
				assert.True(t, days[0].NonCashFor(generic.CategoryDepreciation).IsZero())
				assert.True(t, days[1].NonCashFor(generic.CategoryDepreciation).Value.Equal(d(12)))
			}
			assert.True(t, days[1].Closing.IsZero(), "depreciation never moves cash")
			assert.True(t, l.Totals().Depreciation.Equal(d(12)))
		})
	}
}

// =============================================================================
// PERIODIC EXPENSES
// =============================================================================

func TestDailyShare_MonthlyGrossWithVAT(t *testing.T) {
	c, err := ledger.DailyShare(production.PeriodicExpense{
		ID: "rent", Amount: d(3600), Period: generic.PeriodMonth, VATRate: d(20),
	}, 30)
	require.NoError(t, err)
	assert.True(t, c.Gross.Equal(d(120)))
	assert.True(t, c.Net.Equal(d(100)))
	assert.True(t, c.VAT.Equal(d(20)))

	c, err = ledger.DailyShare(production.PeriodicExpense{ID: "ins", Amount: d(3600), Period: generic.PeriodYear}, 30)
	require.NoError(t, err)
	assert.True(t, c.Gross.Equal(d(10)))
	assert.True(t, c.VAT.IsZero())
}

func TestSettlePeriodic_IdempotentAndTotalsMatchDaily(t *testing.T) {
	// GIVEN: the same expense under daily and end-of-simulation timing
	// WHEN: three days run and the end settlement is triggered twice
	// THEN: accrued totals match, and the deferred cash leaves once

	ctx := context.Background()
	withRent := func(timing generic.TimingPolicy) *ledger.ResourceLedger {
		return newLedger(t, scenario(func(sc *production.Scenario) {
			sc.Catalog.Expenses = []production.PeriodicExpense{
				{ID: "rent", Amount: d(3600), Period: generic.PeriodMonth, VATRate: d(20)},
			}
			sc.Settings.PeriodicTiming = timing
			sc.Catalog.Materials[0].MinStock = decimal.Zero
		}))
	}

	daily := withRent(generic.TimingDaily)
	deferred := withRent(generic.TimingEndOfSimulation)
	for day := generic.Day(1); day <= 3; day++ {
		_, err := daily.OpenDay(ctx, day)
		require.NoError(t, err)
		_, err = deferred.OpenDay(ctx, day)
		require.NoError(t, err)
	}
	assert.True(t, outflow(t, daily, 2, generic.CategoryPeriodic).Equal(d(100)))
	assert.True(t, outflow(t, deferred, 2, generic.CategoryPeriodic).IsZero())

	booked, err := deferred.SettlePeriodic(ctx, 3)
	require.NoError(t, err)
	assert.True(t, booked)
	booked, err = deferred.SettlePeriodic(ctx, 3)
	require.NoError(t, err)
	assert.False(t, booked)

	assert.True(t, outflow(t, deferred, 3, generic.CategoryPeriodic).Equal(d(300)))
	assert.True(t, outflow(t, deferred, 3, generic.CategoryPeriodicVAT).Equal(d(60)))
	assert.Equal(t, daily.Totals().PeriodicNet.String(), deferred.Totals().PeriodicNet.String())

	dailyCash, err := daily.Cash(ctx, 3)
	require.NoError(t, err)
	deferredCash, err := deferred.Cash(ctx, 3)
	require.NoError(t, err)
	assert.True(t, dailyCash.Equal(deferredCash))
	assert.True(t, deferredCash.Equal(d(-360)))
}
