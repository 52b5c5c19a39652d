/*
Package report reduces a finished run into the figures a planner reads.

PURPOSE:
  The engine produces raw material: operation states, cycle logs, events
  and a cash ledger. Build folds them into totals, utilization, a day-by-
  day cash statement and material usage. It makes no scheduling decision
  and never mutates the run.

DAY LEDGER:
  Replayed from the cash entries with generic.ReplayDays, so the statement
  can never drift from what was booked. Day 0 carries the opening balance
  only and is folded into day 1's opening.

UTILIZATION:
  worked = committed minutes / 60, available = production hours.
  Equipment without CountsTowardUtilization is listed but left out of the
  equipment average.

SEE ALSO:
  - xlsx.go: spreadsheet export of the same report
  - generic/projection.go: lowest balance and overdraft days
*/
package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/production-engine/engine"
	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// REPORT
// =============================================================================

type Report struct {
	Scenario          string        `json:"scenario"`
	OrderID           string        `json:"order_id"`
	Status            engine.Status `json:"status"`
	TotalHours        int           `json:"total_hours"`
	ProductionDays    int           `json:"production_days"`
	LastProductionDay generic.Day   `json:"last_production_day"`
	FinalDay          generic.Day   `json:"final_day"`

	Costs       CostSummary     `json:"costs"`
	Cash        CashSummary     `json:"cash"`
	Utilization UtilizationView `json:"utilization"`

	Days       []DayRow                 `json:"days"`
	Materials  []MaterialRow            `json:"materials"`
	Batches    []BatchRow               `json:"batches"`
	Chains     []engine.ChainResult     `json:"chains"`
	Operations []engine.OperationResult `json:"operations"`
	Logs       []engine.ProductionLog   `json:"logs"`
	Events     []engine.Event           `json:"events"`
}

// CostSummary holds accrued totals. They are independent of cash timing.
type CostSummary struct {
	Materials    decimal.Decimal `json:"materials"`
	MaterialsVAT decimal.Decimal `json:"materials_vat"`
	Labor        decimal.Decimal `json:"labor"`
	Depreciation decimal.Decimal `json:"depreciation"`
	Periodic     decimal.Decimal `json:"periodic"`
	PeriodicVAT  decimal.Decimal `json:"periodic_vat"`

	// Materials + Labor + Depreciation + Periodic, net of VAT
	Total decimal.Decimal `json:"total"`

	Purchased    decimal.Decimal `json:"purchased"`
	PurchasedVAT decimal.Decimal `json:"purchased_vat"`

	OrderValue   decimal.Decimal `json:"order_value"`
	ClientInflow decimal.Decimal `json:"client_inflow"`
	Margin       decimal.Decimal `json:"margin"`
}

type CashSummary struct {
	Opening        decimal.Decimal `json:"opening"`
	Closing        decimal.Decimal `json:"closing"`
	Lowest         decimal.Decimal `json:"lowest"`
	LowestDay      generic.Day     `json:"lowest_day"`
	FirstOverdraft generic.Day     `json:"first_overdraft,omitempty"`
	OverdraftDays  []generic.Day   `json:"overdraft_days,omitempty"`
}

type DayRow struct {
	Day          generic.Day     `json:"day"`
	Opening      decimal.Decimal `json:"opening"`
	CashIn       decimal.Decimal `json:"cash_in"`
	Materials    decimal.Decimal `json:"materials"`
	MaterialsVAT decimal.Decimal `json:"materials_vat"`
	Labor        decimal.Decimal `json:"labor"`
	Periodic     decimal.Decimal `json:"periodic"`
	PeriodicVAT  decimal.Decimal `json:"periodic_vat"`
	TotalOut     decimal.Decimal `json:"total_out"`
	Depreciation decimal.Decimal `json:"depreciation"`
	Closing      decimal.Decimal `json:"closing"`
}

type MaterialRow struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	InitialStock decimal.Decimal `json:"initial_stock"`
	Purchased    decimal.Decimal `json:"purchased"`
	Consumed     decimal.Decimal `json:"consumed"`
	FinalStock   decimal.Decimal `json:"final_stock"`
	Batches      int             `json:"batches"`
}

type BatchRow struct {
	ID         string          `json:"id"`
	MaterialID string          `json:"material_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Net        decimal.Decimal `json:"net"`
	VAT        decimal.Decimal `json:"vat"`
	OrderDay   generic.Day     `json:"order_day"`
	ReadyDay   generic.Day     `json:"ready_day"`
	ArrivalDay generic.Day     `json:"arrival_day"`
	Arrived    bool            `json:"arrived"`
}

type UtilizationView struct {
	AvailableHours float64          `json:"available_hours"`
	Employees      []UtilizationRow `json:"employees"`
	Equipment      []UtilizationRow `json:"equipment"`

	// average ratio over employees and over counted equipment
	EmployeeAverage  float64 `json:"employee_average"`
	EquipmentAverage float64 `json:"equipment_average"`
}

type UtilizationRow struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	WorkedHours float64 `json:"worked_hours"`
	IdleHours   float64 `json:"idle_hours"`
	Ratio       float64 `json:"ratio"`
	Counted     bool    `json:"counted"`
}

// =============================================================================
// BUILD
// =============================================================================

// Simulate runs a scenario and builds its report. The engine result is
// returned as well for callers that need the ledger. A canceled run still
// yields a report of the partial result along with the context error.
func Simulate(ctx context.Context, sc *production.Scenario, opts engine.Options) (*Report, *engine.Result, error) {
	res, runErr := engine.Run(ctx, sc, opts)
	if res == nil {
		return nil, nil, runErr
	}
	rep, err := Build(context.WithoutCancel(ctx), res)
	if err != nil {
		return nil, res, err
	}
	return rep, res, runErr
}

// Build reduces a run result to a Report.
func Build(ctx context.Context, res *engine.Result) (*Report, error) {
	if res == nil || res.Ledger == nil || res.Scenario == nil {
		return nil, fmt.Errorf("report: incomplete result")
	}
	sc := res.Scenario
	l := res.Ledger
	clock := sc.Settings.Clock()

	rep := &Report{
		Scenario:          sc.Name,
		OrderID:           sc.Order.ID,
		Status:            res.Status,
		TotalHours:        res.TotalHours,
		ProductionDays:    clock.DaysFor(res.TotalHours),
		LastProductionDay: res.LastDay,
		FinalDay:          res.FinalDay,
		Chains:            res.Chains,
		Operations:        res.Operations,
		Logs:              res.Logs,
		Events:            res.Events,
	}

	totals := l.Totals()
	rep.Costs = CostSummary{
		Materials:    totals.MaterialNet,
		MaterialsVAT: totals.MaterialVAT,
		Labor:        totals.Labor,
		Depreciation: totals.Depreciation,
		Periodic:     totals.PeriodicNet,
		PeriodicVAT:  totals.PeriodicVAT,
		Purchased:    totals.PurchasedNet,
		PurchasedVAT: totals.PurchasedVAT,
		OrderValue:   sc.Order.TotalValue(),
		ClientInflow: totals.ClientInflow,
	}
	rep.Costs.Total = totals.MaterialNet.Add(totals.Labor).Add(totals.Depreciation).Add(totals.PeriodicNet)
	rep.Costs.Margin = rep.Costs.OrderValue.Sub(rep.Costs.Total)

	entries, err := l.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: load entries: %w", err)
	}
	final := max(res.FinalDay, 1)
	days := generic.ReplayDays(entries, generic.DayRange{From: 1, To: final})
	for _, b := range days {
		rep.Days = append(rep.Days, dayRow(b))
	}
	p := generic.ProjectCash(days)
	rep.Cash = CashSummary{
		Opening:        p.Opening.Value,
		Closing:        p.Closing.Value,
		Lowest:         p.Lowest.Value,
		LowestDay:      p.LowestDay,
		FirstOverdraft: p.FirstOverdraft,
		OverdraftDays:  p.OverdraftDays,
	}

	rep.Materials, rep.Batches = materials(res)
	rep.Utilization = utilization(res)
	return rep, nil
}

func dayRow(b generic.DayBalance) DayRow {
	return DayRow{
		Day:          b.Day,
		Opening:      b.Opening.Value,
		CashIn:       b.CashIn.Value,
		Materials:    b.Out(generic.CategoryMaterials).Value,
		MaterialsVAT: b.Out(generic.CategoryMaterialsVAT).Value,
		Labor:        b.Out(generic.CategoryLabor).Value,
		Periodic:     b.Out(generic.CategoryPeriodic).Value,
		PeriodicVAT:  b.Out(generic.CategoryPeriodicVAT).Value,
		TotalOut:     b.TotalOut.Value,
		Depreciation: b.NonCashFor(generic.CategoryDepreciation).Value,
		Closing:      b.Closing.Value,
	}
}

func materials(res *engine.Result) ([]MaterialRow, []BatchRow) {
	l := res.Ledger
	purchased := make(map[string]decimal.Decimal)
	count := make(map[string]int)
	var batches []BatchRow
	for _, b := range l.Batches() {
		purchased[b.MaterialID] = purchased[b.MaterialID].Add(b.Quantity)
		count[b.MaterialID]++
		batches = append(batches, BatchRow{
			ID:         b.ID,
			MaterialID: b.MaterialID,
			Quantity:   b.Quantity,
			Net:        b.Net(),
			VAT:        b.VAT(),
			OrderDay:   b.OrderDay,
			ReadyDay:   b.ReadyDay,
			ArrivalDay: b.ArrivalDay,
			Arrived:    b.Arrived,
		})
	}

	rows := make([]MaterialRow, 0, len(res.Scenario.Catalog.Materials))
	for _, m := range res.Scenario.Catalog.Materials {
		p, ok := purchased[m.ID]
		if !ok {
			p = decimal.Zero
		}
		rows = append(rows, MaterialRow{
			ID:           m.ID,
			Name:         m.Name,
			InitialStock: m.InitialStock,
			Purchased:    p,
			Consumed:     l.Consumed(m.ID),
			FinalStock:   l.Stock(m.ID),
			Batches:      count[m.ID],
		})
	}
	return rows, batches
}

func utilization(res *engine.Result) UtilizationView {
	l := res.Ledger
	available := float64(res.TotalHours)
	view := UtilizationView{AvailableHours: available}

	row := func(ref generic.ResourceRef, name string, counted bool) UtilizationRow {
		worked := l.WorkedMinutes(ref) / 60
		r := UtilizationRow{ID: ref.ID, Name: name, WorkedHours: worked, IdleHours: max(available-worked, 0), Counted: counted}
		if available > 0 {
			r.Ratio = min(worked/available, 1)
		}
		return r
	}

	var sum float64
	for _, e := range res.Scenario.Catalog.Employees {
		r := row(generic.Employee(e.ID), e.Name, true)
		view.Employees = append(view.Employees, r)
		sum += r.Ratio
	}
	if n := len(view.Employees); n > 0 {
		view.EmployeeAverage = sum / float64(n)
	}

	sum = 0
	counted := 0
	for _, e := range res.Scenario.Catalog.Equipment {
		r := row(generic.Equipment(e.ID), e.Name, e.CountsTowardUtilization)
		view.Equipment = append(view.Equipment, r)
		if r.Counted {
			sum += r.Ratio
			counted++
		}
	}
	if counted > 0 {
		view.EquipmentAverage = sum / float64(counted)
	}
	return view
}
