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
// TEST HELPERS
// =============================================================================

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func dec(s string) decimal.Decimal { return generic.MustParseDecimal(s) }

// scenario uses two materials in one operation: board (replenishment
// rules under test) and glue.
func scenario(mutate func(*production.Scenario)) *production.Scenario {
	lead2, lead1 := 2, 1
	sc := &production.Scenario{
		Name: "ledger",
		Catalog: production.Catalog{
			Materials: []production.MaterialSpec{
				{ID: "board", UnitCost: d(2), VATRate: d(20), MinStock: d(100), MinOrderQty: d(200), InitialStock: d(40)},
				{ID: "glue", UnitCost: d(1), InitialStock: d(5)},
			},
			Roles: []production.RoleSpec{{ID: "operator"}},
			Employees: []production.EmployeeSpec{
				{ID: "bob", HourlyWage: d(12), RoleIDs: []string{"operator"}},
				{ID: "ann", HourlyWage: d(10), RoleIDs: []string{"operator"}},
			},
			Equipment: []production.EquipmentSpec{{ID: "press", HourlyDepreciation: d(6)}},
			Processes: []production.ProcessSpec{{
				ID: "proc",
				Chains: []production.ChainSpec{{
					ID: "flow", Type: production.ChainPerUnit,
					Operations: []production.OperationSpec{{
						ID: "glue-up", Productivity: 10,
						Materials: []production.MaterialUsage{
							{MaterialID: "board", PerUnit: d(1)},
							{MaterialID: "glue", PerUnit: d(1)},
						},
					}},
				}},
			}},
		},
		Order: production.Order{
			ID:    "ord",
			Items: []production.OrderItem{{ID: "box", ProcessID: "proc", Quantity: d(10), UnitPrice: d(10)}},
			BatchParams: map[string]production.BatchParams{
				"board": {ProductionLeadDays: &lead2, ShippingLeadDays: &lead1, PrepayPercent: decimal.NewNullDecimal(d(30))},
				"glue":  {},
			},
		},
		Settings: production.DefaultSettings(),
	}
	sc.Settings.ReplenishmentThreshold = dec("0.5")
	if mutate != nil {
		mutate(sc)
	}
	return sc
}

func newLedger(t *testing.T, sc *production.Scenario) *ledger.ResourceLedger {
	t.Helper()
	require.NoError(t, sc.Validate())
	l, err := ledger.New(context.Background(), sc, ledger.Options{})
	require.NoError(t, err)
	return l
}

func outflow(t *testing.T, l *ledger.ResourceLedger, day generic.Day, cat generic.Category) decimal.Decimal {
	t.Helper()
	entries, err := l.Entries(context.Background())
	require.NoError(t, err)
	days := generic.ReplayDays(entries, generic.DayRange{From: day, To: day})
	require.Len(t, days, 1)
	return days[0].Out(cat).Value
}

// =============================================================================
// REPLENISHMENT AND BATCH LIFECYCLE
// =============================================================================

func TestReplenishment_BelowThresholdOrdersOnceWhileInFlight(t *testing.T) {
	// GIVEN: minStock 100, ratio 0.5, stock 40
	// WHEN: replenishment runs on day 1 and day 2
	// THEN: one batch on day 1, none on day 2 although stock is still low

	ctx := context.Background()
	l := newLedger(t, scenario(nil))

	placed, err := l.DailyReplenishment(ctx, 1)
	require.NoError(t, err)
	require.Len(t, placed, 1)
	b := placed[0]
	assert.Equal(t, "board", b.MaterialID)
	assert.True(t, b.Quantity.Equal(d(200)))
	assert.Equal(t, generic.Day(3), b.ReadyDay)
	assert.Equal(t, generic.Day(4), b.ArrivalDay)

	placed, err = l.DailyReplenishment(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, placed)
	assert.Len(t, l.Batches(), 1)
}

func TestBatch_PrepayPostpayArrivalExactlyOnce(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, scenario(nil))

	_, err := l.DailyReplenishment(ctx, 1)
	require.NoError(t, err)

	// net 400, VAT 80, 30% prepay on the order day
	assert.True(t, outflow(t, l, 1, generic.CategoryMaterials).Equal(d(120)))
	assert.True(t, outflow(t, l, 1, generic.CategoryMaterialsVAT).Equal(d(24)))

	// nothing before the ready day
	paid, err := l.ProcessPostpay(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, paid)
	assert.Empty(t, l.ProcessArrivals(3))
	assert.True(t, l.Stock("board").Equal(d(40)), "never credited before arrival")

	paid, err = l.ProcessPostpay(ctx, 3)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.True(t, outflow(t, l, 3, generic.CategoryMaterials).Equal(d(280)))

	paid, err = l.ProcessPostpay(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, paid, "postpay is booked once")

	arrived := l.ProcessArrivals(4)
	require.Len(t, arrived, 1)
	assert.True(t, l.Stock("board").Equal(d(240)))
	assert.Empty(t, l.ProcessArrivals(5))
	assert.True(t, l.Stock("board").Equal(d(240)), "credited once")
	assert.False(t, l.InFlight("board"))

	cash, err := l.Cash(ctx, 5)
	require.NoError(t, err)
	assert.True(t, cash.Equal(d(-480)))
}

func TestReplenishment_NoWaitArrivesSameDay(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, scenario(func(sc *production.Scenario) {
		sc.Settings.WaitForDelivery = false
	}))

	placed, err := l.DailyReplenishment(ctx, 1)
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.True(t, placed[0].PostpayBooked)
	assert.True(t, placed[0].Arrived)
	assert.True(t, l.Stock("board").Equal(d(240)))
}

func TestReplenishment_ShortageFlagOrdersWithoutMinStock(t *testing.T) {
	// GIVEN: glue has no min stock and no min order quantity
	// WHEN: a consumption needs 12 glue with 5 on hand
	// THEN: the next replenishment orders at least the shortfall

	ctx := context.Background()
	l := newLedger(t, scenario(nil))

	res := l.ReserveAndConsume([]ledger.Consumption{{MaterialID: "glue", Quantity: d(12)}})
	require.False(t, res.OK)
	assert.True(t, l.IsShort("glue"))

	placed, err := l.DailyReplenishment(ctx, 1)
	require.NoError(t, err)
	var glue *ledger.MaterialBatch
	for _, b := range placed {
		if b.MaterialID == "glue" {
			glue = b
		}
	}
	require.NotNil(t, glue)
	assert.True(t, glue.Quantity.Equal(d(7)))
	assert.False(t, l.IsShort("glue"))
}

// =============================================================================
// CONSUMPTION
// =============================================================================

func TestReserveAndConsume_AllOrNothing(t *testing.T) {
	l := newLedger(t, scenario(nil))

	res := l.ReserveAndConsume([]ledger.Consumption{
		{MaterialID: "board", Quantity: d(10)},
		{MaterialID: "glue", Quantity: d(6)},
	})
	assert.False(t, res.OK)
	require.Len(t, res.Shortage, 1)
	assert.Equal(t, "glue", res.Shortage[0].MaterialID)
	assert.True(t, l.Stock("board").Equal(d(40)), "board untouched when glue is short")
	assert.True(t, l.Stock("glue").Equal(d(5)))

	res = l.ReserveAndConsume([]ledger.Consumption{
		{MaterialID: "board", Quantity: d(10)},
		{MaterialID: "glue", Quantity: d(5)},
	})
	require.True(t, res.OK)
	require.Len(t, res.Details, 2)
	assert.True(t, res.Details[0].Net.Equal(d(20)))
	assert.True(t, res.Details[0].VAT.Equal(d(4)))
	assert.True(t, l.Stock("board").Equal(d(30)))
	assert.True(t, l.Stock("glue").IsZero())
	assert.True(t, l.Consumed("board").Equal(d(10)))
	assert.True(t, l.Totals().MaterialNet.Equal(d(25)))
}

func TestReserveAndConsume_SameMaterialTwiceIsSummed(t *testing.T) {
	l := newLedger(t, scenario(nil))
	res := l.ReserveAndConsume([]ledger.Consumption{
		{MaterialID: "glue", Quantity: d(3)},
		{MaterialID: "glue", Quantity: d(3)},
	})
	assert.False(t, res.OK)
	assert.True(t, l.Stock("glue").Equal(d(5)))
}

// =============================================================================
// CLIENT INFLOWS AND DAY OPENING
// =============================================================================

func TestOpenDay_CreditsScheduledPayments(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, scenario(func(sc *production.Scenario) {
		sc.Settings.InitialCash = d(1000)
		sc.Order.PaymentSchedule = []production.PaymentScheduleItem{
			{Day: 1, Percent: decimal.NewNullDecimal(d(50))},
			{Day: 3, Amount: decimal.NewNullDecimal(d(25))},
		}
	}))

	open, err := l.OpenDay(ctx, 1)
	require.NoError(t, err)
	assert.True(t, open.Inflow.Equal(d(50)))
	require.Len(t, open.Ordered, 1)

	open, err = l.OpenTailDay(ctx, 3)
	require.NoError(t, err)
	assert.True(t, open.Inflow.Equal(d(25)))
	require.Len(t, open.Postpaid, 1)
	assert.True(t, l.Totals().ClientInflow.Equal(d(75)))

	opening, err := l.Cash(ctx, 0)
	require.NoError(t, err)
	assert.True(t, opening.Equal(d(1000)))

	assert.Equal(t, generic.Day(4), l.LastScheduledDay())
}
