/*
Package production defines the manufacturing domain: catalog specs, the
order being simulated, run settings, and the runtime state of operations
and chains.

PURPOSE:
  Everything the scheduler consumes is described here as plain, immutable
  specs. Runtime Operation and Chain values (operation.go, chain.go) are
  the only mutable state in the package and they only move units between
  buffers; stock and cash belong to the ledger package.

CATALOG:
  MaterialSpec   unit cost, VAT, min stock, min order quantity, lead times
  EquipmentSpec  hourly depreciation, optional productivity
  RoleSpec       optional productivity
  EmployeeSpec   hourly wage, roles (many-to-many)

PROCESS:
  ProcessSpec -> ChainSpec[] -> OperationSpec[]

  ONE_TIME chains run their declared quantity once per order item (tooling,
  setup). PER_UNIT chains push the order quantity through every operation,
  handing units downstream as they are finished.

SEE ALSO:
  - settings.go: SimulationSettings
  - scenario.go: Scenario assembly and validation
  - factory/scenario.go: JSON/YAML documents -> specs
*/
package production

import (
	"github.com/shopspring/decimal"
	"github.com/warp/production-engine/generic"
)

// =============================================================================
// CATALOG SPECS
// =============================================================================

type MaterialSpec struct {
	ID   string
	Name string
	Unit string

	UnitCost decimal.Decimal
	VATRate  decimal.Decimal // percent, e.g. 20

	MinStock    decimal.Decimal
	MinOrderQty decimal.Decimal

	ProductionLeadDays int
	ShippingLeadDays   int

	InitialStock decimal.Decimal
}

type EquipmentSpec struct {
	ID                 string
	Name               string
	HourlyDepreciation decimal.Decimal

	// Units per hour; 0 means the equipment does not cap productivity.
	Productivity float64

	CountsTowardUtilization bool
}

type RoleSpec struct {
	ID   string
	Name string

	// Units per hour; 0 means the role does not cap productivity.
	Productivity float64
}

type EmployeeSpec struct {
	ID         string
	Name       string
	HourlyWage decimal.Decimal
	RoleIDs    []string
}

func (e EmployeeSpec) HasRole(roleID string) bool {
	for _, r := range e.RoleIDs {
		if r == roleID {
			return true
		}
	}
	return false
}

// =============================================================================
// PROCESS SPECS
// =============================================================================

type ChainType string

const (
	ChainOneTime ChainType = "ONE_TIME"
	ChainPerUnit ChainType = "PER_UNIT"
)

func (t ChainType) Valid() bool { return t == ChainOneTime || t == ChainPerUnit }

// MaterialUsage is the quantity of a material consumed per unit produced.
type MaterialUsage struct {
	MaterialID string
	PerUnit    decimal.Decimal
}

type OperationSpec struct {
	ID         string
	Name       string
	OrderIndex int

	Materials    []MaterialUsage
	RoleIDs      []string
	EquipmentIDs []string

	// Nominal units per hour (0 = unspecified) and its own variance percent.
	Productivity    float64
	VariancePercent float64

	// Upstream units required before a dependent PER_UNIT operation starts.
	MinBatch decimal.Decimal

	// Continuous resources stay reserved for the whole cycle; otherwise
	// they are only booked for a setup fraction of the first hour.
	ContinuousEquipment bool
	ContinuousStaff     bool

	SetupFraction float64 // share of the cycle spent on setup, default 0.1
	CycleHours    int     // PER_UNIT cycle length, default 1
}

// Continuous reports whether any resource is held for the whole cycle.
func (o OperationSpec) Continuous() bool { return o.ContinuousEquipment || o.ContinuousStaff }

type ChainSpec struct {
	ID         string
	Name       string
	OrderIndex int
	Type       ChainType

	// Declared quantity of a ONE_TIME chain, default 1. Ignored for PER_UNIT.
	Quantity decimal.Decimal

	Operations []OperationSpec
}

type ProcessSpec struct {
	ID     string
	Name   string
	Chains []ChainSpec
}

// =============================================================================
// ORDER
// =============================================================================

type OrderItem struct {
	ID        string
	Name      string
	ProcessID string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// BatchParams are the purchase terms for one material on this order.
// Zero/nil fields fall back to the MaterialSpec and the settings.
type BatchParams struct {
	MinOrderQty        decimal.Decimal
	ProductionLeadDays *int
	ShippingLeadDays   *int
	PrepayPercent      decimal.NullDecimal
}

// PaymentScheduleItem is a client payment: a percent of the order value or
// a fixed amount, received on Day.
type PaymentScheduleItem struct {
	Day     int
	Percent decimal.NullDecimal
	Amount  decimal.NullDecimal
}

type Order struct {
	ID              string
	Name            string
	Items           []OrderItem
	BatchParams     map[string]BatchParams
	PaymentSchedule []PaymentScheduleItem
}

// TotalValue is the sum of quantity * unit price over all items.
func (o Order) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Quantity.Mul(it.UnitPrice))
	}
	return total
}

// PaymentAmount resolves a schedule item against the order value.
func (o Order) PaymentAmount(p PaymentScheduleItem) decimal.Decimal {
	if p.Amount.Valid {
		return p.Amount.Decimal
	}
	if p.Percent.Valid {
		return o.TotalValue().Mul(p.Percent.Decimal).Div(decimal.NewFromInt(100))
	}
	return decimal.Zero
}

// =============================================================================
// OVERHEAD
// =============================================================================

// PeriodicExpense is a gross (VAT-inclusive) amount quoted per Period.
type PeriodicExpense struct {
	ID      string
	Name    string
	Amount  decimal.Decimal
	Period  generic.Period
	VATRate decimal.Decimal // percent
}
