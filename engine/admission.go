package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/ledger"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// ADMISSION
// =============================================================================
//
// Operations are attempted in item, chain index, operation index order.
//
//   ONE_TIME  only the first incomplete ONE_TIME chain of the item runs, and
//             inside it operations run one after another.
//   PER_UNIT  waits for earlier ONE_TIME chains; a dependent operation
//             starts once its predecessor has released max(1, MinBatch)
//             units.
//
// Continuous resources are held for the whole cycle through the ownership
// table. Other resources are only booked for the setup minutes.

// DefaultSetupFraction is the share of the first cycle booked as setup when
// an operation does not set its own.
const DefaultSetupFraction = 0.1

func (e *Engine) admit(h generic.Hour, day generic.Day) {
	for _, s := range e.states {
		if s.status != OpNotStarted {
			continue
		}
		reason := e.blockedBy(s)
		if reason == "" {
			reason = e.tryStart(s, h, day)
		}
		s.pending = reason
	}
}

// blockedBy returns why the operation may not start yet, "" when it may.
func (e *Engine) blockedBy(s *opState) string {
	ch := s.chain
	prev := ch.Previous(s.op)

	if ch.Type() == production.ChainOneTime {
		if e.blockingOneTime(s) != ch {
			return WaitOneTimePending
		}
		if prev != nil && !prev.IsComplete() {
			return WaitPrevious
		}
		return ""
	}

	if e.blockingOneTime(s) != nil {
		return WaitOneTimePending
	}
	if prev != nil {
		need := decimal.Max(decimal.NewFromInt(1), s.op.Spec.MinBatch)
		need = decimal.Min(need, s.op.Target())
		if prev.Available().Add(prev.Transferred()).LessThan(need) {
			return WaitUpstream
		}
	}
	return ""
}

func (e *Engine) blockingOneTime(s *opState) *production.Chain {
	return s.item.OneTimeBlocking(s.chainIndex)
}

// tryStart allocates resources and activates the operation. It returns the
// waiting reason when resources are not available.
func (e *Engine) tryStart(s *opState, h generic.Hour, day generic.Day) string {
	spec := s.op.Spec
	held := func(ref generic.ResourceRef) bool { return e.own.IsBusy(ref, h) }

	var rate float64
	cycle := max(spec.CycleHours, 1)
	if s.op.Type == production.ChainOneTime {
		rate = e.rate(spec)
		cycle = e.oneTimeCycle(s.op, rate, 1)
	}

	fraction := spec.SetupFraction
	if fraction <= 0 {
		fraction = DefaultSetupFraction
	}
	setupMinutes := math.Min(fraction*float64(cycle)*ledger.HourMinutes, ledger.HourMinutes)

	cont := ledger.AllocationRequest{
		Minutes:              ledger.HourMinutes,
		RequireFullStaff:     spec.ContinuousStaff,
		RequireFullEquipment: spec.ContinuousEquipment,
		Held:                 held,
	}
	setup := ledger.AllocationRequest{Minutes: setupMinutes, Held: held}
	if spec.ContinuousStaff {
		cont.Roles = spec.RoleIDs
	} else {
		setup.Roles = spec.RoleIDs
	}
	if spec.ContinuousEquipment {
		cont.Equipment = spec.EquipmentIDs
	} else {
		setup.Equipment = spec.EquipmentIDs
	}

	contAlloc := e.allocate(cont)
	if !contAlloc.OK() {
		return contAlloc.Reason
	}
	setupAlloc := e.allocate(setup)
	if !setupAlloc.OK() {
		return setupAlloc.Reason
	}

	laborMul, depMul := e.variance.CostMultiplier(), e.variance.CostMultiplier()
	s.addCost(e.ledger.Commit(contAlloc, day, laborMul, depMul))
	s.addCost(e.ledger.Commit(setupAlloc, day, laborMul, depMul))

	s.capacity = math.Min(contAlloc.Capacity, setupAlloc.Capacity)
	if s.op.Type == production.ChainOneTime {
		cycle = e.oneTimeCycle(s.op, rate, s.capacity)
	}
	s.cycleHours = cycle
	s.status = OpActive
	s.cycleEnd = h + generic.Hour(cycle)
	start := h
	s.started = &start
	s.heldStaff = contAlloc.Employees
	s.heldEquipment = contAlloc.Equipment
	e.hold(s, h, s.cycleEnd-1)

	e.emit(Event{Hour: h, Day: day, Kind: EventStarted, Operation: s.op.Key(),
		Message: startMessage(s, contAlloc, setupAlloc)})
	s.waitReason = ""
	return ""
}

// allocate skips the ledger for requests that need nothing.
func (e *Engine) allocate(req ledger.AllocationRequest) ledger.Allocation {
	if len(req.Roles) == 0 && len(req.Equipment) == 0 {
		return ledger.Allocation{Capacity: 1}
	}
	return e.ledger.CheckAndAllocate(req)
}

func startMessage(s *opState, cont, setup ledger.Allocation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s started, cycle %dh", s.op.Spec.ID, s.cycleHours)
	if staff := append(append([]string(nil), cont.Employees...), setup.Employees...); len(staff) > 0 {
		fmt.Fprintf(&b, ", staff %s", strings.Join(staff, ","))
	}
	if eq := append(append([]string(nil), cont.Equipment...), setup.Equipment...); len(eq) > 0 {
		fmt.Fprintf(&b, ", equipment %s", strings.Join(eq, ","))
	}
	if s.capacity < 1 {
		fmt.Fprintf(&b, ", capacity %.2f", s.capacity)
	}
	return b.String()
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// diagnose emits a waiting event when an operation's reason changed.
func (e *Engine) diagnose(h generic.Hour, day generic.Day) {
	for _, s := range e.states {
		if s.status != OpNotStarted || s.pending == s.waitReason {
			continue
		}
		s.waitReason = s.pending
		level := LevelInfo
		if s.pending == WaitWorkers || s.pending == WaitEquipmentBusy || s.pending == WaitUnknownResource {
			level = LevelWarn
		}
		e.emit(Event{Hour: h, Day: day, Kind: EventWaiting, Level: level, Operation: s.op.Key(), Reason: s.pending,
			Message: fmt.Sprintf("%s waiting: %s", s.op.Spec.ID, strings.ReplaceAll(s.pending, "_", " "))})
	}
}
