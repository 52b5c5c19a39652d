package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names, in workbook order.
const (
	SheetSummary     = "Summary"
	SheetDays        = "Days"
	SheetOperations  = "Operations"
	SheetMaterials   = "Materials"
	SheetUtilization = "Utilization"
	SheetHours       = "Hours"
	SheetEvents      = "Events"
)

// WriteXLSX renders the report as a workbook with one sheet per section.
func (r *Report) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	for _, name := range []string{SheetDays, SheetOperations, SheetMaterials, SheetUtilization, SheetHours, SheetEvents} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("report: create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("report: header style: %w", err)
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
		width  float64
	}{
		{SheetSummary, []string{"Field", "Value"}, r.summaryRows(), 24},
		{SheetDays, []string{"Day", "Opening", "Cash in", "Materials", "Materials VAT", "Labor", "Periodic", "Periodic VAT", "Total out", "Depreciation", "Closing"}, r.dayRows(), 14},
		{SheetOperations, []string{"Item", "Chain", "Operation", "Type", "Status", "Target", "Produced", "Started", "Completed", "Cycles", "Labor", "Depreciation", "Materials"}, r.operationRows(), 14},
		{SheetMaterials, []string{"Material", "Name", "Initial", "Purchased", "Consumed", "Final", "Batches"}, r.materialRows(), 14},
		{SheetUtilization, []string{"Kind", "ID", "Name", "Worked h", "Idle h", "Ratio", "Counted"}, r.utilizationRows(), 14},
		{SheetHours, []string{"Hour", "Day", "Item", "Chain", "Operation", "Produced", "Pulled", "Materials", "Labor", "Depreciation"}, r.logRows(), 14},
		{SheetEvents, []string{"Hour", "Day", "Kind", "Level", "Operation", "Message"}, r.eventRows(), 16},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.header, s.rows, header, s.width); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, style int, width float64) error {
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("report: %s header: %w", sheet, err)
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, first, last, style); err != nil {
		return fmt.Errorf("report: %s style: %w", sheet, err)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("report: %s row %d: %w", sheet, i+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(sheet, "A", lastCol, width)
}

// money keeps cells numeric so the sheet can be summed.
func money(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}

func (r *Report) summaryRows() [][]any {
	rows := [][]any{
		{"Scenario", r.Scenario},
		{"Order", r.OrderID},
		{"Status", string(r.Status)},
		{"Total hours", r.TotalHours},
		{"Production days", r.ProductionDays},
		{"Last production day", int(r.LastProductionDay)},
		{"Final day", int(r.FinalDay)},
		{"Materials", money(r.Costs.Materials)},
		{"Materials VAT", money(r.Costs.MaterialsVAT)},
		{"Labor", money(r.Costs.Labor)},
		{"Depreciation", money(r.Costs.Depreciation)},
		{"Periodic", money(r.Costs.Periodic)},
		{"Periodic VAT", money(r.Costs.PeriodicVAT)},
		{"Total cost", money(r.Costs.Total)},
		{"Order value", money(r.Costs.OrderValue)},
		{"Client inflow", money(r.Costs.ClientInflow)},
		{"Margin", money(r.Costs.Margin)},
		{"Opening cash", money(r.Cash.Opening)},
		{"Closing cash", money(r.Cash.Closing)},
		{"Lowest cash", money(r.Cash.Lowest)},
		{"Lowest cash day", int(r.Cash.LowestDay)},
	}
	if r.Cash.FirstOverdraft != 0 {
		rows = append(rows, []any{"First overdraft day", int(r.Cash.FirstOverdraft)})
	}
	return rows
}

func (r *Report) dayRows() [][]any {
	rows := make([][]any, 0, len(r.Days))
	for _, d := range r.Days {
		rows = append(rows, []any{
			int(d.Day), money(d.Opening), money(d.CashIn),
			money(d.Materials), money(d.MaterialsVAT), money(d.Labor),
			money(d.Periodic), money(d.PeriodicVAT), money(d.TotalOut),
			money(d.Depreciation), money(d.Closing),
		})
	}
	return rows
}

func (r *Report) operationRows() [][]any {
	rows := make([][]any, 0, len(r.Operations))
	for _, op := range r.Operations {
		started, completed := "", ""
		if op.StartedHour != nil {
			started = fmt.Sprint(int(*op.StartedHour))
		}
		if op.CompletedHour != nil {
			completed = fmt.Sprint(int(*op.CompletedHour))
		}
		rows = append(rows, []any{
			op.ItemID, op.ChainID, op.OperationID, string(op.Type), string(op.Status),
			money(op.Target), money(op.Produced), started, completed, op.Cycles,
			money(op.Labor), money(op.Depreciation), money(op.MaterialNet),
		})
	}
	return rows
}

func (r *Report) materialRows() [][]any {
	rows := make([][]any, 0, len(r.Materials))
	for _, m := range r.Materials {
		rows = append(rows, []any{
			m.ID, m.Name, money(m.InitialStock), money(m.Purchased),
			money(m.Consumed), money(m.FinalStock), m.Batches,
		})
	}
	return rows
}

func (r *Report) utilizationRows() [][]any {
	var rows [][]any
	add := func(kind string, u UtilizationRow) {
		rows = append(rows, []any{kind, u.ID, u.Name, u.WorkedHours, u.IdleHours, u.Ratio, u.Counted})
	}
	for _, u := range r.Utilization.Employees {
		add("employee", u)
	}
	for _, u := range r.Utilization.Equipment {
		add("equipment", u)
	}
	return rows
}

// logRows lists one row per operation hour. Consumed materials are folded
// into one cell as "id qty" pairs.
func (r *Report) logRows() [][]any {
	rows := make([][]any, 0, len(r.Logs))
	for _, l := range r.Logs {
		materials := ""
		for i, m := range l.Materials {
			if i > 0 {
				materials += ", "
			}
			materials += m.MaterialID + " " + m.Quantity.String()
		}
		produced, _ := l.Produced.Float64()
		pulled, _ := l.Pulled.Float64()
		rows = append(rows, []any{
			int(l.Hour), int(l.Day), l.ItemID, l.ChainID, l.OperationID,
			produced, pulled, materials, money(l.Labor), money(l.Depreciation),
		})
	}
	return rows
}

func (r *Report) eventRows() [][]any {
	rows := make([][]any, 0, len(r.Events))
	for _, ev := range r.Events {
		rows = append(rows, []any{int(ev.Hour), int(ev.Day), string(ev.Kind), string(ev.Level), ev.Operation, ev.Message})
	}
	return rows
}
