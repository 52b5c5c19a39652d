package production_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func twoStepScenario() *production.Scenario {
	return &production.Scenario{
		Name: "two-step",
		Catalog: production.Catalog{
			Materials: []production.MaterialSpec{
				{ID: "board", UnitCost: d(2), VATRate: d(20), MinStock: d(10), MinOrderQty: d(50), InitialStock: d(100)},
			},
			Roles:     []production.RoleSpec{{ID: "operator"}},
			Employees: []production.EmployeeSpec{{ID: "ann", HourlyWage: d(10), RoleIDs: []string{"operator"}}},
			Equipment: []production.EquipmentSpec{{ID: "press", HourlyDepreciation: d(3)}},
			Processes: []production.ProcessSpec{{
				ID: "proc",
				Chains: []production.ChainSpec{
					{
						ID: "flow", OrderIndex: 2, Type: production.ChainPerUnit,
						Operations: []production.OperationSpec{
							{ID: "B", OrderIndex: 2, Productivity: 5},
							{ID: "A", OrderIndex: 1, Productivity: 10, Materials: []production.MaterialUsage{{MaterialID: "board", PerUnit: d(1)}}},
						},
					},
					{
						ID: "die", OrderIndex: 1, Type: production.ChainOneTime, Quantity: d(2),
						Operations: []production.OperationSpec{{ID: "cut-die", Productivity: 1, EquipmentIDs: []string{"press"}}},
					},
				},
			}},
		},
		Order: production.Order{
			ID:          "ord-1",
			Items:       []production.OrderItem{{ID: "box", ProcessID: "proc", Quantity: d(20), UnitPrice: d(5)}},
			BatchParams: map[string]production.BatchParams{"board": {}},
		},
		Settings: production.DefaultSettings(),
	}
}

// =============================================================================
// OPERATION AND CHAIN
// =============================================================================

func TestBuildItems_OrdersChainsAndOperations(t *testing.T) {
	items := production.BuildItems(twoStepScenario())
	require.Len(t, items, 1)
	chains := items[0].Chains
	require.Len(t, chains, 2)

	assert.Equal(t, "die", chains[0].Spec.ID)
	assert.True(t, chains[0].Ops[0].Target().Equal(d(2)), "ONE_TIME targets its declared quantity")

	flow := chains[1]
	assert.Equal(t, "A", flow.Ops[0].Spec.ID)
	assert.Equal(t, "B", flow.Ops[1].Spec.ID)
	assert.True(t, flow.Ops[1].Target().Equal(d(20)), "PER_UNIT targets the item quantity")
	assert.True(t, flow.IsFirstInChain(flow.Ops[0]))
	assert.Nil(t, flow.Previous(flow.Ops[0]))
	assert.Same(t, flow.Ops[0], flow.Previous(flow.Ops[1]))

	assert.Same(t, chains[0], items[0].OneTimeBlocking(1))
}

func TestOperation_ConservationAcrossHandOff(t *testing.T) {
	// GIVEN: A -> B, both targeting 20
	// WHEN: A produces, releases, B pulls and produces
	// THEN: remaining + outgoing + transferred == target for both at every step

	flow := production.BuildItems(twoStepScenario())[0].Chains[1]
	a, b := flow.Ops[0], flow.Ops[1]

	conserved := func(op *production.Operation) {
		sum := op.Remaining().Add(op.OutgoingBuffer()).Add(op.Transferred())
		require.True(t, sum.Equal(op.Target()), "%s: %s != %s", op.Spec.ID, sum, op.Target())
	}

	assert.True(t, a.ProduceForHour(d(10)).Equal(d(10)))
	conserved(a)

	// staged output is not pullable yet
	assert.True(t, flow.PullFromPrevious(b, d(5)).IsZero())

	flow.ReleaseStaged()
	assert.True(t, a.Available().Equal(d(10)))

	pulled := flow.PullFromPrevious(b, d(15))
	assert.True(t, pulled.Equal(d(10)), "pull is clamped to upstream buffer")
	assert.True(t, a.Transferred().Equal(d(10)))
	assert.True(t, b.Pulled().Equal(d(10)))
	conserved(a)

	b.ProduceForHour(pulled)
	conserved(b)
	flow.ReleaseStaged()
	assert.True(t, flow.Finished().Equal(d(10)), "last operation hands output to finished goods")
	assert.True(t, b.Transferred().Equal(d(10)))
	conserved(b)
}

func TestOperation_ProduceClampsToRemaining(t *testing.T) {
	op := production.BuildItems(twoStepScenario())[0].Chains[1].Ops[0]
	assert.True(t, op.ProduceForHour(d(15)).Equal(d(15)))
	assert.True(t, op.ProduceForHour(d(15)).Equal(d(5)))
	assert.True(t, op.IsComplete())
	assert.True(t, op.ProduceForHour(d(1)).IsZero())
}

func TestOperation_WholeUnitsCarriesFraction(t *testing.T) {
	op := production.BuildItems(twoStepScenario())[0].Chains[1].Ops[0]
	// 2.5 per cycle -> 2, 3, 2, 3
	got := []int64{}
	for i := 0; i < 4; i++ {
		got = append(got, op.WholeUnits(2.5).IntPart())
	}
	assert.Equal(t, []int64{2, 3, 2, 3}, got)
}

// =============================================================================
// SCENARIO VALIDATION
// =============================================================================

func TestValidate_MissingBatchParamsIsConfigError(t *testing.T) {
	sc := twoStepScenario()
	sc.Order.BatchParams = nil

	err := sc.Validate()
	require.Error(t, err)
	assert.True(t, production.IsConfigError(err))
	var cfgErr *production.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "material", cfgErr.Entity)
	assert.Equal(t, "board", cfgErr.ID)
}

func TestValidate_UnknownReferences(t *testing.T) {
	sc := twoStepScenario()
	sc.Catalog.Processes[0].Chains[0].Operations[0].RoleIDs = []string{"ghost"}
	var cfgErr *production.ConfigError
	require.ErrorAs(t, sc.Validate(), &cfgErr)
	assert.Equal(t, "operation", cfgErr.Entity)

	sc = twoStepScenario()
	sc.Order.Items[0].ProcessID = "nope"
	require.ErrorAs(t, sc.Validate(), &cfgErr)
	assert.Equal(t, "order_item", cfgErr.Entity)

	sc = twoStepScenario()
	sc.Order.PaymentSchedule = []production.PaymentScheduleItem{{Day: 1}}
	require.ErrorAs(t, sc.Validate(), &cfgErr)
	assert.Equal(t, "payment", cfgErr.Entity)

	sc = twoStepScenario()
	sc.Catalog.Expenses = []production.PeriodicExpense{{ID: "rent", Amount: d(100), Period: generic.Period("decade")}}
	require.ErrorAs(t, sc.Validate(), &cfgErr)
	assert.Equal(t, "periodic_expense", cfgErr.Entity)

	assert.NoError(t, twoStepScenario().Validate())
}

func TestTerms_FallBackToMaterialAndSettings(t *testing.T) {
	sc := twoStepScenario()
	terms, ok := sc.Terms("board")
	require.True(t, ok)
	assert.True(t, terms.MinOrderQty.Equal(d(50)))
	assert.True(t, terms.PrepayPercent.Equal(d(100)))

	lead := 3
	sc.Order.BatchParams["board"] = production.BatchParams{
		MinOrderQty:      d(80),
		ShippingLeadDays: &lead,
		PrepayPercent:    decimal.NewNullDecimal(d(30)),
	}
	terms, _ = sc.Terms("board")
	assert.True(t, terms.MinOrderQty.Equal(d(80)))
	assert.Equal(t, 3, terms.ShippingLeadDays)
	assert.True(t, terms.PrepayPercent.Equal(d(30)))

	_, ok = sc.Terms("glue")
	assert.False(t, ok)
}

func TestOrder_PaymentAmount(t *testing.T) {
	o := twoStepScenario().Order
	assert.True(t, o.TotalValue().Equal(d(100)))
	assert.True(t, o.PaymentAmount(production.PaymentScheduleItem{Day: 1, Percent: decimal.NewNullDecimal(d(30))}).Equal(d(30)))
	assert.True(t, o.PaymentAmount(production.PaymentScheduleItem{Day: 1, Amount: decimal.NewNullDecimal(d(12))}).Equal(d(12)))
}

func TestSettings_ValidateRejectsBadRanges(t *testing.T) {
	s := production.DefaultSettings()
	s.RestMinutesPerHour = 60
	assert.True(t, production.IsConfigError(s.Validate()))

	s = production.Settings{}.WithDefaults()
	assert.Equal(t, 8, s.WorkingHoursPerDay)
	assert.Equal(t, 30, s.MonthLengthDays)
	assert.NoError(t, s.Validate())
}
