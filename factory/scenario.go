/*
Package factory converts scenario documents into production specs.

PURPOSE:
  Planners describe a factory and an order as a JSON or YAML document; the
  factory turns it into a production.Scenario the engine can run. The same
  document shape is what the API accepts, what the CLI reads from disk and
  what the presets are written in.

DOCUMENT SHAPE (YAML shown, JSON uses the same keys):
  name: box-demo
  catalog:
    materials:
      - {id: board, unit_cost: 0.4, vat_rate: 20, min_stock: 200, initial_stock: 500}
    equipment:
      - {id: press, hourly_depreciation: 6, counts_toward_utilization: true}
    roles:     [{id: printer}]
    employees: [{id: ann, hourly_wage: 18, roles: [printer]}]
    processes:
      - id: box
        chains:
          - id: tooling
            type: ONE_TIME
            quantity: 1
            operations: [{id: die, productivity: 0.5, equipment: [press]}]
    expenses:  [{id: rent, amount: 3600, period: month, vat_rate: 20}]
  order:
    id: ord-1
    items:        [{id: box, process: box, quantity: 1000, unit_price: 2.5}]
    batch_params: {board: {min_order_qty: 1000, prepay_percent: 50}}
    payments:     [{day: 1, percent: 30}, {day: 10, percent: 70}]
  settings:
    working_hours_per_day: 8
    variance_mode: none

DEFAULTS:
  Missing settings come from ScenarioFactory.Defaults. Operations and chains
  without an order_index keep their position in the document.

SEE ALSO:
  - presets.go: built-in demo documents
  - production/scenario.go: Validate, run on every parsed scenario
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
	"github.com/warp/production-engine/variance"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

type ScenarioDocument struct {
	Name     string            `json:"name" yaml:"name"`
	Catalog  CatalogDocument   `json:"catalog" yaml:"catalog"`
	Order    OrderDocument     `json:"order" yaml:"order"`
	Settings *SettingsDocument `json:"settings,omitempty" yaml:"settings,omitempty"`
}

type CatalogDocument struct {
	Materials []MaterialDocument  `json:"materials,omitempty" yaml:"materials,omitempty"`
	Equipment []EquipmentDocument `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	Roles     []RoleDocument      `json:"roles,omitempty" yaml:"roles,omitempty"`
	Employees []EmployeeDocument  `json:"employees,omitempty" yaml:"employees,omitempty"`
	Processes []ProcessDocument   `json:"processes,omitempty" yaml:"processes,omitempty"`
	Expenses  []ExpenseDocument   `json:"expenses,omitempty" yaml:"expenses,omitempty"`
}

type MaterialDocument struct {
	ID                 string  `json:"id" yaml:"id"`
	Name               string  `json:"name,omitempty" yaml:"name,omitempty"`
	Unit               string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	UnitCost           float64 `json:"unit_cost" yaml:"unit_cost"`
	VATRate            float64 `json:"vat_rate,omitempty" yaml:"vat_rate,omitempty"` // percent
	MinStock           float64 `json:"min_stock,omitempty" yaml:"min_stock,omitempty"`
	MinOrderQty        float64 `json:"min_order_qty,omitempty" yaml:"min_order_qty,omitempty"`
	ProductionLeadDays int     `json:"production_lead_days,omitempty" yaml:"production_lead_days,omitempty"`
	ShippingLeadDays   int     `json:"shipping_lead_days,omitempty" yaml:"shipping_lead_days,omitempty"`
	InitialStock       float64 `json:"initial_stock,omitempty" yaml:"initial_stock,omitempty"`
}

type EquipmentDocument struct {
	ID                      string  `json:"id" yaml:"id"`
	Name                    string  `json:"name,omitempty" yaml:"name,omitempty"`
	HourlyDepreciation      float64 `json:"hourly_depreciation,omitempty" yaml:"hourly_depreciation,omitempty"`
	Productivity            float64 `json:"productivity,omitempty" yaml:"productivity,omitempty"`
	CountsTowardUtilization bool    `json:"counts_toward_utilization,omitempty" yaml:"counts_toward_utilization,omitempty"`
}

type RoleDocument struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	Productivity float64 `json:"productivity,omitempty" yaml:"productivity,omitempty"`
}

type EmployeeDocument struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	HourlyWage float64  `json:"hourly_wage" yaml:"hourly_wage"`
	Roles      []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

type ProcessDocument struct {
	ID     string          `json:"id" yaml:"id"`
	Name   string          `json:"name,omitempty" yaml:"name,omitempty"`
	Chains []ChainDocument `json:"chains" yaml:"chains"`
}

type ChainDocument struct {
	ID         string              `json:"id" yaml:"id"`
	Name       string              `json:"name,omitempty" yaml:"name,omitempty"`
	OrderIndex int                 `json:"order_index,omitempty" yaml:"order_index,omitempty"`
	Type       string              `json:"type" yaml:"type"` // ONE_TIME, PER_UNIT
	Quantity   float64             `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Operations []OperationDocument `json:"operations" yaml:"operations"`
}

type OperationDocument struct {
	ID                  string          `json:"id" yaml:"id"`
	Name                string          `json:"name,omitempty" yaml:"name,omitempty"`
	OrderIndex          int             `json:"order_index,omitempty" yaml:"order_index,omitempty"`
	Materials           []UsageDocument `json:"materials,omitempty" yaml:"materials,omitempty"`
	Roles               []string        `json:"roles,omitempty" yaml:"roles,omitempty"`
	Equipment           []string        `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	Productivity        float64         `json:"productivity,omitempty" yaml:"productivity,omitempty"`
	VariancePercent     float64         `json:"variance_percent,omitempty" yaml:"variance_percent,omitempty"`
	MinBatch            float64         `json:"min_batch,omitempty" yaml:"min_batch,omitempty"`
	ContinuousEquipment bool            `json:"continuous_equipment,omitempty" yaml:"continuous_equipment,omitempty"`
	ContinuousStaff     bool            `json:"continuous_staff,omitempty" yaml:"continuous_staff,omitempty"`
	SetupFraction       float64         `json:"setup_fraction,omitempty" yaml:"setup_fraction,omitempty"`
	CycleHours          int             `json:"cycle_hours,omitempty" yaml:"cycle_hours,omitempty"`
}

type UsageDocument struct {
	Material string  `json:"material" yaml:"material"`
	PerUnit  float64 `json:"per_unit" yaml:"per_unit"`
}

type ExpenseDocument struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name,omitempty" yaml:"name,omitempty"`
	Amount  float64 `json:"amount" yaml:"amount"` // gross
	Period  string  `json:"period" yaml:"period"`
	VATRate float64 `json:"vat_rate,omitempty" yaml:"vat_rate,omitempty"`
}

type OrderDocument struct {
	ID          string                         `json:"id" yaml:"id"`
	Name        string                         `json:"name,omitempty" yaml:"name,omitempty"`
	Items       []OrderItemDocument            `json:"items" yaml:"items"`
	BatchParams map[string]BatchParamsDocument `json:"batch_params,omitempty" yaml:"batch_params,omitempty"`
	Payments    []PaymentDocument              `json:"payments,omitempty" yaml:"payments,omitempty"`
}

type OrderItemDocument struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Process   string  `json:"process" yaml:"process"`
	Quantity  float64 `json:"quantity" yaml:"quantity"`
	UnitPrice float64 `json:"unit_price,omitempty" yaml:"unit_price,omitempty"`
}

type BatchParamsDocument struct {
	MinOrderQty        float64  `json:"min_order_qty,omitempty" yaml:"min_order_qty,omitempty"`
	ProductionLeadDays *int     `json:"production_lead_days,omitempty" yaml:"production_lead_days,omitempty"`
	ShippingLeadDays   *int     `json:"shipping_lead_days,omitempty" yaml:"shipping_lead_days,omitempty"`
	PrepayPercent      *float64 `json:"prepay_percent,omitempty" yaml:"prepay_percent,omitempty"`
}

// PaymentDocument carries exactly one of Percent or Amount.
type PaymentDocument struct {
	Day     int      `json:"day" yaml:"day"`
	Percent *float64 `json:"percent,omitempty" yaml:"percent,omitempty"`
	Amount  *float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
}

// SettingsDocument overrides factory defaults; nil and empty fields keep them.
type SettingsDocument struct {
	WorkingHoursPerDay     int      `json:"working_hours_per_day,omitempty" yaml:"working_hours_per_day,omitempty"`
	RestMinutesPerHour     *int     `json:"rest_minutes_per_hour,omitempty" yaml:"rest_minutes_per_hour,omitempty"`
	WaitForDelivery        *bool    `json:"wait_for_delivery,omitempty" yaml:"wait_for_delivery,omitempty"`
	VarianceMode           string   `json:"variance_mode,omitempty" yaml:"variance_mode,omitempty"`
	VariancePercent        *float64 `json:"variance_percent,omitempty" yaml:"variance_percent,omitempty"`
	Seed                   *int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	ReplenishmentThreshold *float64 `json:"replenishment_threshold,omitempty" yaml:"replenishment_threshold,omitempty"`
	InitialCash            *float64 `json:"initial_cash,omitempty" yaml:"initial_cash,omitempty"`
	PrepayPercent          *float64 `json:"prepay_percent,omitempty" yaml:"prepay_percent,omitempty"`
	DepreciationTiming     string   `json:"depreciation_timing,omitempty" yaml:"depreciation_timing,omitempty"`
	PeriodicTiming         string   `json:"periodic_timing,omitempty" yaml:"periodic_timing,omitempty"`
	PayrollFrequency       string   `json:"payroll_frequency,omitempty" yaml:"payroll_frequency,omitempty"`
	MonthLengthDays        int      `json:"month_length_days,omitempty" yaml:"month_length_days,omitempty"`
	MaxHours               int      `json:"max_hours,omitempty" yaml:"max_hours,omitempty"`
}

// =============================================================================
// SCENARIO FACTORY
// =============================================================================

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the document format from a file name. Anything that is
// not .yaml or .yml is read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ScenarioFactory converts documents to scenarios.
type ScenarioFactory struct {
	// Defaults seed the settings of every parsed scenario.
	Defaults production.Settings
}

func NewScenarioFactory() *ScenarioFactory {
	return &ScenarioFactory{Defaults: production.DefaultSettings()}
}

// Parse decodes a document in the given format and converts it.
func (f *ScenarioFactory) Parse(data []byte, format Format) (*production.Scenario, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return f.FromDocument(doc)
}

// ParseJSON is Parse for JSON input.
func (f *ScenarioFactory) ParseJSON(data []byte) (*production.Scenario, error) {
	return f.Parse(data, FormatJSON)
}

// ParseYAML is Parse for YAML input.
func (f *ScenarioFactory) ParseYAML(data []byte) (*production.Scenario, error) {
	return f.Parse(data, FormatYAML)
}

// LoadFile reads and converts a scenario file.
func (f *ScenarioFactory) LoadFile(path string) (*production.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	return f.Parse(data, FormatOf(path))
}

// Decode reads a document without converting it.
func Decode(data []byte, format Format) (ScenarioDocument, error) {
	var doc ScenarioDocument
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return doc, fmt.Errorf("failed to parse scenario YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return doc, fmt.Errorf("failed to parse scenario JSON: %w", err)
		}
	}
	return doc, nil
}

// FromDocument converts and validates a document.
func (f *ScenarioFactory) FromDocument(doc ScenarioDocument) (*production.Scenario, error) {
	catalog, err := CatalogFromDocument(doc.Catalog)
	if err != nil {
		return nil, err
	}
	order, err := OrderFromDocument(doc.Order)
	if err != nil {
		return nil, err
	}
	settings, err := f.Settings(doc.Settings)
	if err != nil {
		return nil, err
	}

	sc := &production.Scenario{
		Name:     doc.Name,
		Catalog:  *catalog,
		Order:    *order,
		Settings: settings.WithDefaults(),
	}
	if sc.Name == "" {
		sc.Name = order.ID
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// CatalogFromDocument converts the catalog part of a document.
func CatalogFromDocument(cd CatalogDocument) (*production.Catalog, error) {
	c := &production.Catalog{}
	for _, m := range cd.Materials {
		c.Materials = append(c.Materials, production.MaterialSpec{
			ID:                 m.ID,
			Name:               m.Name,
			Unit:               m.Unit,
			UnitCost:           dec(m.UnitCost),
			VATRate:            dec(m.VATRate),
			MinStock:           dec(m.MinStock),
			MinOrderQty:        dec(m.MinOrderQty),
			ProductionLeadDays: m.ProductionLeadDays,
			ShippingLeadDays:   m.ShippingLeadDays,
			InitialStock:       dec(m.InitialStock),
		})
	}
	for _, e := range cd.Equipment {
		c.Equipment = append(c.Equipment, production.EquipmentSpec{
			ID:                      e.ID,
			Name:                    e.Name,
			HourlyDepreciation:      dec(e.HourlyDepreciation),
			Productivity:            e.Productivity,
			CountsTowardUtilization: e.CountsTowardUtilization,
		})
	}
	for _, r := range cd.Roles {
		c.Roles = append(c.Roles, production.RoleSpec{ID: r.ID, Name: r.Name, Productivity: r.Productivity})
	}
	for _, e := range cd.Employees {
		c.Employees = append(c.Employees, production.EmployeeSpec{
			ID:         e.ID,
			Name:       e.Name,
			HourlyWage: dec(e.HourlyWage),
			RoleIDs:    e.Roles,
		})
	}
	for _, p := range cd.Processes {
		spec, err := parseProcess(p)
		if err != nil {
			return nil, err
		}
		c.Processes = append(c.Processes, spec)
	}
	for _, x := range cd.Expenses {
		period, err := generic.ParsePeriod(x.Period)
		if err != nil {
			return nil, &production.ConfigError{Entity: "periodic_expense", ID: x.ID, Reason: err.Error()}
		}
		c.Expenses = append(c.Expenses, production.PeriodicExpense{
			ID:      x.ID,
			Name:    x.Name,
			Amount:  dec(x.Amount),
			Period:  period,
			VATRate: dec(x.VATRate),
		})
	}
	return c, nil
}

// OrderFromDocument converts the order part of a document.
func OrderFromDocument(od OrderDocument) (*production.Order, error) {
	o := &production.Order{ID: od.ID, Name: od.Name}
	for _, it := range od.Items {
		o.Items = append(o.Items, production.OrderItem{
			ID:        it.ID,
			Name:      it.Name,
			ProcessID: it.Process,
			Quantity:  dec(it.Quantity),
			UnitPrice: dec(it.UnitPrice),
		})
	}
	if len(od.BatchParams) > 0 {
		o.BatchParams = make(map[string]production.BatchParams, len(od.BatchParams))
		for id, bp := range od.BatchParams {
			o.BatchParams[id] = production.BatchParams{
				MinOrderQty:        dec(bp.MinOrderQty),
				ProductionLeadDays: bp.ProductionLeadDays,
				ShippingLeadDays:   bp.ShippingLeadDays,
				PrepayPercent:      nullDec(bp.PrepayPercent),
			}
		}
	}
	for _, p := range od.Payments {
		o.PaymentSchedule = append(o.PaymentSchedule, production.PaymentScheduleItem{
			Day:     p.Day,
			Percent: nullDec(p.Percent),
			Amount:  nullDec(p.Amount),
		})
	}
	return o, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseProcess(p ProcessDocument) (production.ProcessSpec, error) {
	spec := production.ProcessSpec{ID: p.ID, Name: p.Name}
	for i, cd := range p.Chains {
		typ, err := parseChainType(cd.Type)
		if err != nil {
			return spec, &production.ConfigError{Entity: "chain", ID: cd.ID, Reason: err.Error()}
		}
		ch := production.ChainSpec{
			ID:         cd.ID,
			Name:       cd.Name,
			OrderIndex: orderIndex(cd.OrderIndex, i),
			Type:       typ,
			Quantity:   dec(cd.Quantity),
		}
		for j, od := range cd.Operations {
			op := production.OperationSpec{
				ID:                  od.ID,
				Name:                od.Name,
				OrderIndex:          orderIndex(od.OrderIndex, j),
				RoleIDs:             od.Roles,
				EquipmentIDs:        od.Equipment,
				Productivity:        od.Productivity,
				VariancePercent:     od.VariancePercent,
				MinBatch:            dec(od.MinBatch),
				ContinuousEquipment: od.ContinuousEquipment,
				ContinuousStaff:     od.ContinuousStaff,
				SetupFraction:       od.SetupFraction,
				CycleHours:          od.CycleHours,
			}
			for _, u := range od.Materials {
				op.Materials = append(op.Materials, production.MaterialUsage{MaterialID: u.Material, PerUnit: dec(u.PerUnit)})
			}
			ch.Operations = append(ch.Operations, op)
		}
		spec.Chains = append(spec.Chains, ch)
	}
	return spec, nil
}

// orderIndex keeps document order when no index is given.
func orderIndex(given, position int) int {
	if given != 0 {
		return given
	}
	return position + 1
}

func parseChainType(s string) (production.ChainType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ONE_TIME", "ONETIME":
		return production.ChainOneTime, nil
	case "PER_UNIT", "PERUNIT", "":
		return production.ChainPerUnit, nil
	default:
		return "", fmt.Errorf("unknown chain type %q", s)
	}
}

// Settings applies document overrides on top of the factory defaults.
func (f *ScenarioFactory) Settings(sd *SettingsDocument) (production.Settings, error) {
	s := f.Defaults
	if sd == nil {
		return s, nil
	}
	if sd.WorkingHoursPerDay != 0 {
		s.WorkingHoursPerDay = sd.WorkingHoursPerDay
	}
	if sd.RestMinutesPerHour != nil {
		s.RestMinutesPerHour = *sd.RestMinutesPerHour
	}
	if sd.WaitForDelivery != nil {
		s.WaitForDelivery = *sd.WaitForDelivery
	}
	if sd.VarianceMode != "" {
		mode, err := variance.ParseMode(sd.VarianceMode)
		if err != nil {
			return s, &production.ConfigError{Entity: "settings", ID: "variance_mode", Reason: err.Error()}
		}
		s.VarianceMode = mode
	}
	if sd.VariancePercent != nil {
		s.VariancePercent = *sd.VariancePercent
	}
	if sd.Seed != nil {
		s.Seed = *sd.Seed
	}
	if sd.ReplenishmentThreshold != nil {
		s.ReplenishmentThreshold = dec(*sd.ReplenishmentThreshold)
	}
	if sd.InitialCash != nil {
		s.InitialCash = dec(*sd.InitialCash)
	}
	if sd.PrepayPercent != nil {
		s.PrepayPercent = dec(*sd.PrepayPercent)
	}
	if sd.DepreciationTiming != "" {
		p, err := generic.ParseTimingPolicy(sd.DepreciationTiming)
		if err != nil {
			return s, &production.ConfigError{Entity: "settings", ID: "depreciation_timing", Reason: err.Error()}
		}
		s.DepreciationTiming = p
	}
	if sd.PeriodicTiming != "" {
		p, err := generic.ParseTimingPolicy(sd.PeriodicTiming)
		if err != nil {
			return s, &production.ConfigError{Entity: "settings", ID: "periodic_timing", Reason: err.Error()}
		}
		s.PeriodicTiming = p
	}
	if sd.PayrollFrequency != "" {
		freq, err := generic.ParseSettlementFrequency(sd.PayrollFrequency)
		if err != nil {
			return s, &production.ConfigError{Entity: "settings", ID: "payroll_frequency", Reason: err.Error()}
		}
		s.PayrollFrequency = freq
	}
	if sd.MonthLengthDays != 0 {
		s.MonthLengthDays = sd.MonthLengthDays
	}
	if sd.MaxHours != 0 {
		s.MaxHours = sd.MaxHours
	}
	return s, nil
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func nullDec(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}

// =============================================================================
// SPEC -> DOCUMENT
// =============================================================================

// ToCatalogDocument renders a catalog back into document form.
func ToCatalogDocument(c *production.Catalog) CatalogDocument {
	var cd CatalogDocument
	for _, m := range c.Materials {
		cd.Materials = append(cd.Materials, MaterialDocument{
			ID:                 m.ID,
			Name:               m.Name,
			Unit:               m.Unit,
			UnitCost:           m.UnitCost.InexactFloat64(),
			VATRate:            m.VATRate.InexactFloat64(),
			MinStock:           m.MinStock.InexactFloat64(),
			MinOrderQty:        m.MinOrderQty.InexactFloat64(),
			ProductionLeadDays: m.ProductionLeadDays,
			ShippingLeadDays:   m.ShippingLeadDays,
			InitialStock:       m.InitialStock.InexactFloat64(),
		})
	}
	for _, e := range c.Equipment {
		cd.Equipment = append(cd.Equipment, EquipmentDocument{
			ID:                      e.ID,
			Name:                    e.Name,
			HourlyDepreciation:      e.HourlyDepreciation.InexactFloat64(),
			Productivity:            e.Productivity,
			CountsTowardUtilization: e.CountsTowardUtilization,
		})
	}
	for _, r := range c.Roles {
		cd.Roles = append(cd.Roles, RoleDocument{ID: r.ID, Name: r.Name, Productivity: r.Productivity})
	}
	for _, e := range c.Employees {
		cd.Employees = append(cd.Employees, EmployeeDocument{
			ID:         e.ID,
			Name:       e.Name,
			HourlyWage: e.HourlyWage.InexactFloat64(),
			Roles:      e.RoleIDs,
		})
	}
	for _, p := range c.Processes {
		pd := ProcessDocument{ID: p.ID, Name: p.Name}
		for _, ch := range p.Chains {
			chd := ChainDocument{
				ID:         ch.ID,
				Name:       ch.Name,
				OrderIndex: ch.OrderIndex,
				Type:       string(ch.Type),
				Quantity:   ch.Quantity.InexactFloat64(),
			}
			for _, op := range ch.Operations {
				opd := OperationDocument{
					ID:                  op.ID,
					Name:                op.Name,
					OrderIndex:          op.OrderIndex,
					Roles:               op.RoleIDs,
					Equipment:           op.EquipmentIDs,
					Productivity:        op.Productivity,
					VariancePercent:     op.VariancePercent,
					MinBatch:            op.MinBatch.InexactFloat64(),
					ContinuousEquipment: op.ContinuousEquipment,
					ContinuousStaff:     op.ContinuousStaff,
					SetupFraction:       op.SetupFraction,
					CycleHours:          op.CycleHours,
				}
				for _, u := range op.Materials {
					opd.Materials = append(opd.Materials, UsageDocument{Material: u.MaterialID, PerUnit: u.PerUnit.InexactFloat64()})
				}
				chd.Operations = append(chd.Operations, opd)
			}
			pd.Chains = append(pd.Chains, chd)
		}
		cd.Processes = append(cd.Processes, pd)
	}
	for _, x := range c.Expenses {
		cd.Expenses = append(cd.Expenses, ExpenseDocument{
			ID:      x.ID,
			Name:    x.Name,
			Amount:  x.Amount.InexactFloat64(),
			Period:  string(x.Period),
			VATRate: x.VATRate.InexactFloat64(),
		})
	}
	return cd
}
