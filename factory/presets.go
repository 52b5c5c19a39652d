package factory

import (
	"encoding/json"
	"sort"
)

// =============================================================================
// PRESETS
// =============================================================================
//
// Ready-made scenario documents for demos and tests. All of them describe
// the same small carton shop:
//
//   tooling    ONE_TIME  die-making on the die press (toolmaker)
//   production PER_UNIT  printing -> cutting -> gluing
//
// and differ in settings and payment terms.

type Preset struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

var presets = []struct {
	Preset
	build func() ScenarioDocument
}{
	{Preset{"box-demo", "Box production", "Die-cutting tool, then 1000 printed boxes; materials restocked during the run", "baseline"}, boxDemo},
	{Preset{"box-variance", "Box production with variance", "Same order with +/-15% random productivity and cost variance, fixed seed", "variance"}, boxVariance},
	{Preset{"box-cash-crunch", "Late client payment", "Client pays everything after delivery; shows the overdraft window", "cash"}, boxCashCrunch},
	{Preset{"box-weekly-payroll", "Weekly payroll", "Wages settled weekly, overhead and depreciation booked at the end", "cash"}, boxWeeklyPayroll},
}

// Presets lists the built-in scenarios by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p.Preset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PresetDocument returns a fresh copy of a preset's document.
func PresetDocument(name string) (ScenarioDocument, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p.build(), true
		}
	}
	return ScenarioDocument{}, false
}

// PresetJSON is PresetDocument rendered as JSON.
func PresetJSON(name string) (string, bool) {
	doc, ok := PresetDocument(name)
	if !ok {
		return "", false
	}
	b, _ := json.MarshalIndent(doc, "", "  ")
	return string(b), true
}

func ptr[T any](v T) *T { return &v }

// =============================================================================
// BOX SHOP
// =============================================================================

func boxCatalog() CatalogDocument {
	return CatalogDocument{
		Materials: []MaterialDocument{
			{ID: "board", Name: "Corrugated board sheet", Unit: "sheet", UnitCost: 0.4, VATRate: 20,
				MinStock: 200, MinOrderQty: 1000, ProductionLeadDays: 2, ShippingLeadDays: 1, InitialStock: 600},
			{ID: "ink", Name: "Process ink", Unit: "l", UnitCost: 12, VATRate: 20,
				MinStock: 2, MinOrderQty: 10, ProductionLeadDays: 1, ShippingLeadDays: 1, InitialStock: 5},
			{ID: "glue", Name: "Hot-melt glue", Unit: "kg", UnitCost: 4, VATRate: 20,
				MinStock: 1, MinOrderQty: 5, ShippingLeadDays: 1, InitialStock: 3},
		},
		Equipment: []EquipmentDocument{
			{ID: "die-press", Name: "Die press", HourlyDepreciation: 8, CountsTowardUtilization: true},
			{ID: "printer", Name: "Flexo printer", HourlyDepreciation: 6, Productivity: 140, CountsTowardUtilization: true},
			{ID: "cutter", Name: "Rotary cutter", HourlyDepreciation: 3, CountsTowardUtilization: true},
			{ID: "gluer", Name: "Folder-gluer", HourlyDepreciation: 2},
		},
		Roles: []RoleDocument{
			{ID: "toolmaker", Name: "Toolmaker"},
			{ID: "printer-op", Name: "Printer operator"},
			{ID: "cutter-op", Name: "Cutter operator"},
			{ID: "gluer-op", Name: "Gluer operator", Productivity: 100},
		},
		Employees: []EmployeeDocument{
			{ID: "ann", Name: "Ann", HourlyWage: 18, Roles: []string{"printer-op"}},
			{ID: "bob", Name: "Bob", HourlyWage: 16, Roles: []string{"cutter-op", "gluer-op"}},
			{ID: "carl", Name: "Carl", HourlyWage: 22, Roles: []string{"toolmaker", "cutter-op"}},
			{ID: "dana", Name: "Dana", HourlyWage: 14, Roles: []string{"gluer-op"}},
		},
		Processes: []ProcessDocument{{
			ID:   "carton",
			Name: "Printed carton",
			Chains: []ChainDocument{
				{ID: "tooling", Name: "Cutting die", Type: "ONE_TIME", Quantity: 1, Operations: []OperationDocument{
					{ID: "die-making", Name: "Die making", Productivity: 0.25,
						Roles: []string{"toolmaker"}, Equipment: []string{"die-press"},
						ContinuousStaff: true, ContinuousEquipment: true},
				}},
				{ID: "production", Name: "Boxes", Type: "PER_UNIT", Operations: []OperationDocument{
					{ID: "printing", Name: "Printing", Productivity: 120,
						Materials: []UsageDocument{{Material: "board", PerUnit: 1}, {Material: "ink", PerUnit: 0.002}},
						Roles:     []string{"printer-op"}, Equipment: []string{"printer"},
						ContinuousStaff: true, ContinuousEquipment: true},
					{ID: "cutting", Name: "Cutting", Productivity: 150, MinBatch: 100,
						Roles: []string{"cutter-op"}, Equipment: []string{"cutter"},
						ContinuousEquipment: true, SetupFraction: 0.2},
					{ID: "gluing", Name: "Folding and gluing", Productivity: 90,
						Materials: []UsageDocument{{Material: "glue", PerUnit: 0.001}},
						Roles:     []string{"gluer-op"}, Equipment: []string{"gluer"},
						ContinuousStaff: true},
				}},
			},
		}},
		Expenses: []ExpenseDocument{
			{ID: "rent", Name: "Workshop rent", Amount: 3600, Period: "month", VATRate: 20},
			{ID: "utilities", Name: "Power and water", Amount: 900, Period: "month", VATRate: 20},
			{ID: "insurance", Name: "Liability insurance", Amount: 2400, Period: "year"},
		},
	}
}

func boxOrder() OrderDocument {
	return OrderDocument{
		ID:   "ord-carton-1000",
		Name: "1000 printed cartons",
		Items: []OrderItemDocument{
			{ID: "carton", Name: "Printed carton", Process: "carton", Quantity: 1000, UnitPrice: 2.4},
		},
		BatchParams: map[string]BatchParamsDocument{
			"board": {PrepayPercent: ptr(50.0)},
			"ink":   {},
			"glue":  {MinOrderQty: 10},
		},
		Payments: []PaymentDocument{
			{Day: 1, Percent: ptr(30.0)},
			{Day: 10, Percent: ptr(70.0)},
		},
	}
}

func boxDemo() ScenarioDocument {
	return ScenarioDocument{
		Name:    "box-demo",
		Catalog: boxCatalog(),
		Order:   boxOrder(),
		Settings: &SettingsDocument{
			WorkingHoursPerDay: 8,
			RestMinutesPerHour: ptr(5),
			InitialCash:        ptr(2000.0),
		},
	}
}

func boxVariance() ScenarioDocument {
	doc := boxDemo()
	doc.Name = "box-variance"
	doc.Settings.VarianceMode = "random"
	doc.Settings.VariancePercent = ptr(15.0)
	doc.Settings.Seed = ptr(int64(42))
	return doc
}

func boxCashCrunch() ScenarioDocument {
	doc := boxDemo()
	doc.Name = "box-cash-crunch"
	doc.Order.Payments = []PaymentDocument{{Day: 20, Percent: ptr(100.0)}}
	doc.Settings.InitialCash = ptr(0.0)
	doc.Settings.PrepayPercent = ptr(100.0)
	return doc
}

func boxWeeklyPayroll() ScenarioDocument {
	doc := boxDemo()
	doc.Name = "box-weekly-payroll"
	doc.Settings.PayrollFrequency = "weekly"
	doc.Settings.DepreciationTiming = "end_of_simulation"
	doc.Settings.PeriodicTiming = "end_of_simulation"
	return doc
}
