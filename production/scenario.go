package production

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrConfiguration marks a scenario that cannot be simulated.
var ErrConfiguration = errors.New("invalid scenario configuration")

// ConfigError names the offending entity. It is fatal and returned before
// the first simulated hour.
type ConfigError struct {
	Entity string // "material", "operation", "order_item", "settings", ...
	ID     string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Entity, e.ID, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// IsConfigError returns true if err is (or wraps) a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// =============================================================================
// CATALOG AND SCENARIO
// =============================================================================

// Catalog is the shared master data: resources, processes and overhead.
type Catalog struct {
	Materials []MaterialSpec
	Equipment []EquipmentSpec
	Roles     []RoleSpec
	Employees []EmployeeSpec
	Processes []ProcessSpec
	Expenses  []PeriodicExpense
}

// Scenario is everything one simulation run needs.
type Scenario struct {
	Name     string
	Catalog  Catalog
	Order    Order
	Settings Settings
}

// Loader supplies catalog and orders from a repository. Stores implement it;
// the engine never reaches for a global connection.
type Loader interface {
	LoadCatalog(ctx context.Context) (*Catalog, error)
	LoadOrder(ctx context.Context, orderID string) (*Order, error)
}

// LoadScenario assembles and validates a scenario from a Loader.
func LoadScenario(ctx context.Context, l Loader, orderID string, settings Settings) (*Scenario, error) {
	catalog, err := l.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	order, err := l.LoadOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	sc := &Scenario{Name: order.Name, Catalog: *catalog, Order: *order, Settings: settings.WithDefaults()}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func (c *Catalog) Material(id string) (MaterialSpec, bool) {
	for _, m := range c.Materials {
		if m.ID == id {
			return m, true
		}
	}
	return MaterialSpec{}, false
}

func (c *Catalog) EquipmentUnit(id string) (EquipmentSpec, bool) {
	for _, e := range c.Equipment {
		if e.ID == id {
			return e, true
		}
	}
	return EquipmentSpec{}, false
}

func (c *Catalog) Role(id string) (RoleSpec, bool) {
	for _, r := range c.Roles {
		if r.ID == id {
			return r, true
		}
	}
	return RoleSpec{}, false
}

func (c *Catalog) Employee(id string) (EmployeeSpec, bool) {
	for _, e := range c.Employees {
		if e.ID == id {
			return e, true
		}
	}
	return EmployeeSpec{}, false
}

func (c *Catalog) Process(id string) (ProcessSpec, bool) {
	for _, p := range c.Processes {
		if p.ID == id {
			return p, true
		}
	}
	return ProcessSpec{}, false
}

// =============================================================================
// BATCH TERMS
// =============================================================================

// PurchaseTerms are the resolved batch parameters for one material.
type PurchaseTerms struct {
	MinOrderQty        decimal.Decimal
	ProductionLeadDays int
	ShippingLeadDays   int
	PrepayPercent      decimal.Decimal
}

// Terms resolves the order's batch parameters for a material against the
// material spec and settings. ok is false when the order has none.
func (s *Scenario) Terms(materialID string) (PurchaseTerms, bool) {
	bp, ok := s.Order.BatchParams[materialID]
	if !ok {
		return PurchaseTerms{}, false
	}
	m, _ := s.Catalog.Material(materialID)

	t := PurchaseTerms{
		MinOrderQty:        bp.MinOrderQty,
		ProductionLeadDays: m.ProductionLeadDays,
		ShippingLeadDays:   m.ShippingLeadDays,
		PrepayPercent:      s.Settings.PrepayPercent,
	}
	if t.MinOrderQty.IsZero() {
		t.MinOrderQty = m.MinOrderQty
	}
	if bp.ProductionLeadDays != nil {
		t.ProductionLeadDays = *bp.ProductionLeadDays
	}
	if bp.ShippingLeadDays != nil {
		t.ShippingLeadDays = *bp.ShippingLeadDays
	}
	if bp.PrepayPercent.Valid {
		t.PrepayPercent = bp.PrepayPercent.Decimal
	}
	return t, true
}

// ReferencedMaterials returns the sorted IDs of every material any
// operation of the order consumes.
func (s *Scenario) ReferencedMaterials() []string {
	seen := make(map[string]bool)
	for _, it := range s.Order.Items {
		p, ok := s.Catalog.Process(it.ProcessID)
		if !ok {
			continue
		}
		for _, ch := range p.Chains {
			for _, op := range ch.Operations {
				for _, u := range op.Materials {
					seen[u.MaterialID] = true
				}
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks catalog linkage. The first problem found is returned as a
// *ConfigError naming the entity.
func (s *Scenario) Validate() error {
	if err := s.Settings.Validate(); err != nil {
		return err
	}

	roles := make(map[string]bool)
	for _, r := range s.Catalog.Roles {
		roles[r.ID] = true
	}
	for _, e := range s.Catalog.Employees {
		if e.HourlyWage.IsNegative() {
			return &ConfigError{Entity: "employee", ID: e.ID, Reason: "hourly wage must not be negative"}
		}
		for _, r := range e.RoleIDs {
			if !roles[r] {
				return &ConfigError{Entity: "employee", ID: e.ID, Reason: fmt.Sprintf("unknown role %q", r)}
			}
		}
	}
	for _, m := range s.Catalog.Materials {
		if m.InitialStock.IsNegative() || m.MinStock.IsNegative() || m.MinOrderQty.IsNegative() {
			return &ConfigError{Entity: "material", ID: m.ID, Reason: "quantities must not be negative"}
		}
		if m.ProductionLeadDays < 0 || m.ShippingLeadDays < 0 {
			return &ConfigError{Entity: "material", ID: m.ID, Reason: "lead times must not be negative"}
		}
	}
	for _, x := range s.Catalog.Expenses {
		if _, err := x.Period.Days(s.Settings.MonthLengthDays); err != nil {
			return &ConfigError{Entity: "periodic_expense", ID: x.ID, Reason: err.Error()}
		}
	}

	if len(s.Order.Items) == 0 {
		return &ConfigError{Entity: "order", ID: s.Order.ID, Reason: "has no items"}
	}
	for _, it := range s.Order.Items {
		if !it.Quantity.IsPositive() {
			return &ConfigError{Entity: "order_item", ID: it.ID, Reason: "quantity must be positive"}
		}
		p, ok := s.Catalog.Process(it.ProcessID)
		if !ok {
			return &ConfigError{Entity: "order_item", ID: it.ID, Reason: fmt.Sprintf("unknown process %q", it.ProcessID)}
		}
		if err := s.validateProcess(p); err != nil {
			return err
		}
	}

	for _, id := range s.ReferencedMaterials() {
		if _, ok := s.Order.BatchParams[id]; !ok {
			return &ConfigError{Entity: "material", ID: id, Reason: "no purchase-batch parameters on order " + s.Order.ID}
		}
	}

	for i, p := range s.Order.PaymentSchedule {
		id := fmt.Sprintf("%s#%d", s.Order.ID, i+1)
		if p.Day < 1 {
			return &ConfigError{Entity: "payment", ID: id, Reason: "day must be >= 1"}
		}
		if p.Percent.Valid == p.Amount.Valid {
			return &ConfigError{Entity: "payment", ID: id, Reason: "exactly one of percent or amount is required"}
		}
	}
	return nil
}

func (s *Scenario) validateProcess(p ProcessSpec) error {
	if len(p.Chains) == 0 {
		return &ConfigError{Entity: "process", ID: p.ID, Reason: "has no chains"}
	}
	for _, ch := range p.Chains {
		if !ch.Type.Valid() {
			return &ConfigError{Entity: "chain", ID: ch.ID, Reason: fmt.Sprintf("unknown chain type %q", ch.Type)}
		}
		if len(ch.Operations) == 0 {
			return &ConfigError{Entity: "chain", ID: ch.ID, Reason: "has no operations"}
		}
		if ch.Quantity.IsNegative() {
			return &ConfigError{Entity: "chain", ID: ch.ID, Reason: "quantity must not be negative"}
		}
		for _, op := range ch.Operations {
			if op.Productivity < 0 || op.VariancePercent < 0 {
				return &ConfigError{Entity: "operation", ID: op.ID, Reason: "productivity and variance must not be negative"}
			}
			if op.SetupFraction < 0 || op.SetupFraction > 1 {
				return &ConfigError{Entity: "operation", ID: op.ID, Reason: "setup fraction must be 0..1"}
			}
			for _, u := range op.Materials {
				if _, ok := s.Catalog.Material(u.MaterialID); !ok {
					return &ConfigError{Entity: "operation", ID: op.ID, Reason: fmt.Sprintf("unknown material %q", u.MaterialID)}
				}
				if u.PerUnit.IsNegative() {
					return &ConfigError{Entity: "operation", ID: op.ID, Reason: "material usage must not be negative"}
				}
			}
			for _, r := range op.RoleIDs {
				if _, ok := s.Catalog.Role(r); !ok {
					return &ConfigError{Entity: "operation", ID: op.ID, Reason: fmt.Sprintf("unknown role %q", r)}
				}
			}
			for _, e := range op.EquipmentIDs {
				if _, ok := s.Catalog.EquipmentUnit(e); !ok {
					return &ConfigError{Entity: "operation", ID: op.ID, Reason: fmt.Sprintf("unknown equipment %q", e)}
				}
			}
		}
	}
	return nil
}
