package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/production-engine/generic"
)

// =============================================================================
// PER-HOUR ALLOCATION
// =============================================================================
//
// Every employee and equipment unit has a budget of HourMinutes per simulated
// hour. CheckAndAllocate resolves a request against those budgets without
// mutating anything; Commit books the minutes and their cost. Multi-hour
// holds are not tracked here: the scheduler owns them and passes a Held
// predicate so held resources look saturated.

const HourMinutes = 60.0

type AllocationRequest struct {
	Roles     []string
	Equipment []string

	// Minutes wanted from every resource this hour.
	Minutes float64

	// Reject partial minutes instead of pro-rating capacity.
	RequireFullStaff     bool
	RequireFullEquipment bool

	// Held reports resources reserved by another operation. May be nil.
	Held func(generic.ResourceRef) bool
}

// Allocation is the outcome of CheckAndAllocate. A zero Capacity means the
// request cannot run this hour; that is contention, not an error.
type Allocation struct {
	Capacity  float64
	Employees []string
	Equipment []string
	Minutes   float64

	// Reason is set when Capacity is zero.
	Reason string
}

func (a Allocation) OK() bool { return a.Capacity > 0 }

// Refs returns every resource in the allocation.
func (a Allocation) Refs() []generic.ResourceRef {
	refs := make([]generic.ResourceRef, 0, len(a.Employees)+len(a.Equipment))
	for _, id := range a.Employees {
		refs = append(refs, generic.Employee(id))
	}
	for _, id := range a.Equipment {
		refs = append(refs, generic.Equipment(id))
	}
	return refs
}

const (
	ReasonNoWorker       = "insufficient_workers"
	ReasonEquipmentBusy  = "equipment_busy"
	ReasonUnknownRequest = "unknown_resource"
)

// CheckAndAllocate resolves each role to one free employee holding it and
// each equipment id to itself. Capacity is the smallest fraction of the
// requested minutes any chosen resource can give.
func (l *ResourceLedger) CheckAndAllocate(req AllocationRequest) Allocation {
	minutes := req.Minutes
	if minutes <= 0 || minutes > HourMinutes {
		minutes = HourMinutes
	}
	held := req.Held
	if held == nil {
		held = func(generic.ResourceRef) bool { return false }
	}

	capacity := 1.0
	chosen := make(map[string]bool)
	out := Allocation{}

	for _, roleID := range req.Roles {
		id, free := l.pickEmployee(roleID, minutes, req.RequireFullStaff, chosen, held)
		if id == "" {
			return Allocation{Reason: ReasonNoWorker}
		}
		chosen[id] = true
		out.Employees = append(out.Employees, id)
		capacity = min(capacity, free/minutes)
	}

	for _, eqID := range req.Equipment {
		if _, ok := l.equipment[eqID]; !ok {
			return Allocation{Reason: ReasonUnknownRequest}
		}
		ref := generic.Equipment(eqID)
		if held(ref) {
			return Allocation{Reason: ReasonEquipmentBusy}
		}
		free := HourMinutes - l.usedMinutes[ref]
		if free <= 0 || (req.RequireFullEquipment && free < minutes) {
			return Allocation{Reason: ReasonEquipmentBusy}
		}
		out.Equipment = append(out.Equipment, eqID)
		capacity = min(capacity, free/minutes)
	}

	out.Capacity = capacity
	out.Minutes = minutes * capacity
	return out
}

func (l *ResourceLedger) pickEmployee(roleID string, minutes float64, requireFull bool,
	chosen map[string]bool, held func(generic.ResourceRef) bool) (string, float64) {

	type candidate struct {
		id   string
		free float64
	}
	var cands []candidate
	for id, e := range l.employees {
		if chosen[id] || l.workedHour[id] || !e.HasRole(roleID) {
			continue
		}
		ref := generic.Employee(id)
		if held(ref) {
			continue
		}
		free := HourMinutes - l.usedMinutes[ref]
		if free <= 0 || (requireFull && free < minutes) {
			continue
		}
		cands = append(cands, candidate{id, min(free, minutes)})
	}
	if len(cands) == 0 {
		return "", 0
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].free != cands[j].free {
			return cands[i].free > cands[j].free
		}
		return cands[i].id < cands[j].id
	})
	return cands[0].id, cands[0].free
}

// Cost is what a Commit booked.
type Cost struct {
	Labor        decimal.Decimal
	Depreciation decimal.Decimal
}

// Commit books the allocation's minutes against every resource, accrues
// wage and depreciation cost to day, and marks the employees as having
// worked this hour. Multipliers come from the cost-side variance.
func (l *ResourceLedger) Commit(a Allocation, day generic.Day, laborMultiplier, depreciationMultiplier float64) Cost {
	cost := Cost{Labor: decimal.Zero, Depreciation: decimal.Zero}
	if a.Minutes <= 0 {
		return cost
	}
	hours := decimal.NewFromFloat(a.Minutes / HourMinutes)

	for _, id := range a.Employees {
		ref := generic.Employee(id)
		l.usedMinutes[ref] += a.Minutes
		l.workedMinutes[ref] += a.Minutes
		l.workedHour[id] = true
		wage := l.employees[id].HourlyWage
		cost.Labor = cost.Labor.Add(wage.Mul(hours).Mul(decimal.NewFromFloat(laborMultiplier)))
	}
	for _, id := range a.Equipment {
		ref := generic.Equipment(id)
		l.usedMinutes[ref] += a.Minutes
		l.workedMinutes[ref] += a.Minutes
		rate := l.equipment[id].HourlyDepreciation
		cost.Depreciation = cost.Depreciation.Add(rate.Mul(hours).Mul(decimal.NewFromFloat(depreciationMultiplier)))
	}

	if !cost.Labor.IsZero() {
		l.labor.Accrue(day, generic.Money(cost.Labor))
		l.totals.Labor = l.totals.Labor.Add(cost.Labor)
	}
	if !cost.Depreciation.IsZero() {
		l.depreciation.Accrue(day, generic.Money(cost.Depreciation))
		l.totals.Depreciation = l.totals.Depreciation.Add(cost.Depreciation)
	}
	return cost
}

// ResetHourAllocations clears the per-hour minute budgets. Call once per
// simulated hour before any allocation. Multi-hour holds are unaffected.
func (l *ResourceLedger) ResetHourAllocations() {
	clear(l.usedMinutes)
	clear(l.workedHour)
}

// WorkedMinutes is the cumulative committed minutes of a resource.
func (l *ResourceLedger) WorkedMinutes(ref generic.ResourceRef) float64 {
	return l.workedMinutes[ref]
}

// WorkedThisHour reports whether an employee was committed this hour.
func (l *ResourceLedger) WorkedThisHour(employeeID string) bool {
	return l.workedHour[employeeID]
}
