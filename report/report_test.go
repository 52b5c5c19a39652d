package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/production-engine/engine"
	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
	"github.com/warp/production-engine/report"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// pressScenario: 20 boxes at 10/h on the press with bob held for the whole
// cycle, one board per box from stock, paid in full on day 1.
func pressScenario() *production.Scenario {
	return &production.Scenario{
		Name: "press",
		Catalog: production.Catalog{
			Materials: []production.MaterialSpec{{ID: "board", Name: "Board", UnitCost: d(2), VATRate: d(20), InitialStock: d(20)}},
			Equipment: []production.EquipmentSpec{
				{ID: "press", Name: "Press", HourlyDepreciation: d(3), CountsTowardUtilization: true},
				{ID: "spare", Name: "Spare press", HourlyDepreciation: d(1)},
			},
			Roles: []production.RoleSpec{{ID: "operator"}},
			Employees: []production.EmployeeSpec{
				{ID: "bob", Name: "Bob", HourlyWage: d(12), RoleIDs: []string{"operator"}},
				{ID: "ann", Name: "Ann", HourlyWage: d(10)},
			},
			Processes: []production.ProcessSpec{{
				ID: "proc",
				Chains: []production.ChainSpec{{
					ID: "flow", Type: production.ChainPerUnit,
					Operations: []production.OperationSpec{{
						ID: "print", Productivity: 10,
						RoleIDs: []string{"operator"}, EquipmentIDs: []string{"press"},
						ContinuousStaff: true, ContinuousEquipment: true,
						Materials: []production.MaterialUsage{{MaterialID: "board", PerUnit: d(1)}},
					}},
				}},
			}},
		},
		Order: production.Order{
			ID:              "ord-1",
			Items:           []production.OrderItem{{ID: "box", ProcessID: "proc", Quantity: d(20), UnitPrice: d(5)}},
			PaymentSchedule: []production.PaymentScheduleItem{{Day: 1, Percent: decimal.NewNullDecimal(d(100))}},
			BatchParams:     map[string]production.BatchParams{"board": {}},
		},
		Settings: production.DefaultSettings(),
	}
}

func simulate(t *testing.T, sc *production.Scenario) *report.Report {
	t.Helper()
	rep, res, err := report.Simulate(context.Background(), sc, engine.Options{})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, engine.StatusCompleted, rep.Status)
	return rep
}

// =============================================================================
// BUILD
// =============================================================================

func TestBuild_CostSummary(t *testing.T) {
	// GIVEN: two held hours of bob (12/h) and the press (3/h), 20 boards
	//        at 2 net from stock
	// WHEN: the report is built
	// THEN: totals are the accrued costs and margin is value minus cost

	rep := simulate(t, pressScenario())

	assert.Equal(t, 2, rep.TotalHours)
	assert.Equal(t, 1, rep.ProductionDays)
	assert.True(t, rep.Costs.Labor.Equal(d(24)), "labor %s", rep.Costs.Labor)
	assert.True(t, rep.Costs.Depreciation.Equal(d(6)), "depreciation %s", rep.Costs.Depreciation)
	assert.True(t, rep.Costs.Materials.Equal(d(40)), "materials %s", rep.Costs.Materials)
	assert.True(t, rep.Costs.MaterialsVAT.Equal(d(8)))
	assert.True(t, rep.Costs.Total.Equal(d(70)))
	assert.True(t, rep.Costs.OrderValue.Equal(d(100)))
	assert.True(t, rep.Costs.Margin.Equal(d(30)))
	assert.True(t, rep.Costs.Purchased.IsZero(), "everything came from stock")
}

func TestBuild_DayLedgerMatchesCash(t *testing.T) {
	// GIVEN: a 100 client payment and 24 of daily payroll on day 1
	// WHEN: the report is built
	// THEN: the day row closes at 76 and depreciation is shown but not paid

	rep := simulate(t, pressScenario())

	require.Len(t, rep.Days, 1)
	day := rep.Days[0]
	assert.Equal(t, generic.Day(1), day.Day)
	assert.True(t, day.CashIn.Equal(d(100)))
	assert.True(t, day.Labor.Equal(d(24)))
	assert.True(t, day.TotalOut.Equal(d(24)))
	assert.True(t, day.Depreciation.Equal(d(6)))
	assert.True(t, day.Closing.Equal(d(76)))

	assert.True(t, rep.Cash.Closing.Equal(d(76)))
	assert.Equal(t, generic.Day(1), rep.Cash.LowestDay)
	assert.Empty(t, rep.Cash.OverdraftDays)
}

func TestBuild_OverdraftIsVisible(t *testing.T) {
	// GIVEN: the client pays only on day 3
	// WHEN: payroll goes out on day 1
	// THEN: day 1 is the first overdraft and the lowest point

	sc := pressScenario()
	sc.Order.PaymentSchedule = []production.PaymentScheduleItem{{Day: 3, Percent: decimal.NewNullDecimal(d(100))}}

	rep := simulate(t, sc)

	assert.Equal(t, generic.Day(3), rep.FinalDay)
	require.Len(t, rep.Days, 3)
	assert.Equal(t, generic.Day(1), rep.Cash.FirstOverdraft)
	assert.True(t, rep.Cash.Lowest.Equal(d(-24)))
	assert.True(t, rep.Cash.Closing.Equal(d(76)))
}

func TestBuild_MaterialsAndUtilization(t *testing.T) {
	rep := simulate(t, pressScenario())

	require.Len(t, rep.Materials, 1)
	board := rep.Materials[0]
	assert.True(t, board.Consumed.Equal(d(20)))
	assert.True(t, board.FinalStock.IsZero())
	assert.Equal(t, 0, board.Batches)

	u := rep.Utilization
	assert.Equal(t, 2.0, u.AvailableHours)
	require.Len(t, u.Employees, 2)
	assert.Equal(t, "bob", u.Employees[0].ID)
	assert.InDelta(t, 1.0, u.Employees[0].Ratio, 1e-9)
	assert.InDelta(t, 0.0, u.Employees[1].Ratio, 1e-9)
	assert.InDelta(t, 0.5, u.EmployeeAverage, 1e-9)

	require.Len(t, u.Equipment, 2)
	assert.False(t, u.Equipment[1].Counted)
	assert.InDelta(t, 1.0, u.EquipmentAverage, 1e-9, "the spare press is not counted")
}

func TestBuild_IncompleteResult(t *testing.T) {
	_, err := report.Build(context.Background(), &engine.Result{})
	assert.Error(t, err)
}

func TestReport_JSONShape(t *testing.T) {
	rep := simulate(t, pressScenario())

	raw, err := json.Marshal(rep)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "completed", doc["status"])
	assert.Contains(t, doc, "days")
	assert.Contains(t, doc, "utilization")
	assert.NotContains(t, doc, "Ledger")
}

// =============================================================================
// XLSX
// =============================================================================

func TestWriteXLSX(t *testing.T) {
	// GIVEN: a finished report
	// WHEN: it is written as a workbook
	// THEN: every section has its sheet with a header row and data

	rep := simulate(t, pressScenario())

	var buf bytes.Buffer
	require.NoError(t, rep.WriteXLSX(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{
		report.SheetSummary, report.SheetDays, report.SheetOperations,
		report.SheetMaterials, report.SheetUtilization, report.SheetHours, report.SheetEvents,
	}, f.GetSheetList())

	rows, err := f.GetRows(report.SheetOperations)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Operation", rows[0][2])
	assert.Equal(t, "print", rows[1][2])

	days, err := f.GetRows(report.SheetDays)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "76", days[1][10])

	summary, err := f.GetRows(report.SheetSummary)
	require.NoError(t, err)
	status := ""
	for _, row := range summary {
		if len(row) == 2 && row[0] == "Status" {
			status = row[1]
		}
	}
	assert.Equal(t, "completed", status)
}
