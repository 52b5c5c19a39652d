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
// OPERATION STATE - Scheduler bookkeeping around a runtime Operation
// =============================================================================

type opState struct {
	op         *production.Operation
	chain      *production.Chain
	item       *production.Item
	chainIndex int

	status     OperationStatus
	cycleEnd   generic.Hour
	cycleHours int
	capacity   float64
	cycles     int
	started    *generic.Hour
	completed  *generic.Hour

	// continuous holds, re-extended on every rollover
	heldStaff     []string
	heldEquipment []string

	// pending is this hour's waiting reason, waitReason the last one emitted
	pending    string
	waitReason string

	// materials of the shortage last reported, cleared once consumption succeeds
	shortage string

	cycleLabor, cycleDepreciation decimal.Decimal
	labor, depreciation           decimal.Decimal
	materialNet, materialVAT      decimal.Decimal
}

func newOpState(op *production.Operation, ch *production.Chain, item *production.Item, chainIndex int) *opState {
	return &opState{
		op:                op,
		chain:             ch,
		item:              item,
		chainIndex:        chainIndex,
		status:            OpNotStarted,
		cycleLabor:        decimal.Zero,
		cycleDepreciation: decimal.Zero,
		labor:             decimal.Zero,
		depreciation:      decimal.Zero,
		materialNet:       decimal.Zero,
		materialVAT:       decimal.Zero,
	}
}

func (s *opState) addCost(c ledger.Cost) {
	s.cycleLabor = s.cycleLabor.Add(c.Labor)
	s.cycleDepreciation = s.cycleDepreciation.Add(c.Depreciation)
	s.labor = s.labor.Add(c.Labor)
	s.depreciation = s.depreciation.Add(c.Depreciation)
}

func (s *opState) heldRefs() []generic.ResourceRef {
	refs := make([]generic.ResourceRef, 0, len(s.heldStaff)+len(s.heldEquipment))
	for _, id := range s.heldStaff {
		refs = append(refs, generic.Employee(id))
	}
	for _, id := range s.heldEquipment {
		refs = append(refs, generic.Equipment(id))
	}
	return refs
}

func (s *opState) result() OperationResult {
	return OperationResult{
		Key:           s.op.Key(),
		ItemID:        s.op.ItemID,
		ChainID:       s.op.ChainID,
		OperationID:   s.op.Spec.ID,
		Name:          s.op.Spec.Name,
		Type:          s.op.Type,
		Status:        s.status,
		Target:        s.op.Target(),
		Produced:      s.op.Produced(),
		Transferred:   s.op.Transferred(),
		Pulled:        s.op.Pulled(),
		StartedHour:   s.started,
		CompletedHour: s.completed,
		Cycles:        s.cycles,
		Labor:         s.labor,
		Depreciation:  s.depreciation,
		MaterialNet:   s.materialNet,
		MaterialVAT:   s.materialVAT,
	}
}

// =============================================================================
// CYCLE END
// =============================================================================

func (e *Engine) finishCycles(h generic.Hour) {
	for _, s := range e.states {
		if s.status == OpActive && s.cycleEnd == h {
			e.finishCycle(s, h)
		}
	}
}

// finishCycle settles the work done in [cycle start, h-1].
func (e *Engine) finishCycle(s *opState, h generic.Hour) {
	op := s.op
	day := e.clock.DayOf(h - 1)
	prev := s.chain.Previous(op)
	dependent := op.Type == production.ChainPerUnit && prev != nil

	units := op.Remaining()
	if op.Type == production.ChainPerUnit {
		rate := e.rate(op.Spec)
		units = op.WholeUnits(rate * float64(s.cycleHours) * e.settings.RestCoefficient() * s.capacity)
		units = decimal.Min(units, op.Remaining())
		if dependent {
			units = decimal.Min(units, prev.Available())
		}
	}

	var consumed []ledger.ConsumedMaterial
	if units.IsPositive() && len(op.Spec.Materials) > 0 {
		res := e.ledger.ReserveAndConsume(e.consumption(op.Spec, units))
		if !res.OK {
			ids := make([]string, len(res.Shortage))
			for i, sh := range res.Shortage {
				ids[i] = sh.MaterialID
			}
			if key := strings.Join(ids, ","); key != s.shortage {
				s.shortage = key
				for _, sh := range res.Shortage {
					e.emit(Event{Hour: h, Day: day, Kind: EventShortage, Level: LevelWarn, Operation: op.Key(), Material: sh.MaterialID,
						Message: fmt.Sprintf("needs %s %s, %s in stock", sh.Needed, sh.MaterialID, sh.InStock)})
				}
			}
			// keep the holds and retry next hour
			s.cycleEnd = h + 1
			e.hold(s, h, h)
			return
		}
		consumed = res.Details
		s.shortage = ""
		for _, c := range consumed {
			s.materialNet = s.materialNet.Add(c.Net)
			s.materialVAT = s.materialVAT.Add(c.VAT)
		}
	}

	pulled := decimal.Zero
	if dependent {
		pulled = s.chain.PullFromPrevious(op, units)
	}
	produced := op.ProduceForHour(units)
	s.cycles++

	e.logs = append(e.logs, ProductionLog{
		Hour:         h - 1,
		Day:          day,
		ItemID:       op.ItemID,
		ChainID:      op.ChainID,
		OperationID:  op.Spec.ID,
		Produced:     produced,
		Pulled:       pulled,
		Materials:    consumed,
		Labor:        s.cycleLabor,
		Depreciation: s.cycleDepreciation,
	})
	s.cycleLabor = decimal.Zero
	s.cycleDepreciation = decimal.Zero

	if op.IsComplete() {
		s.status = OpCompleted
		done := h
		s.completed = &done
		e.own.ReleaseHolder(op.Key())
		s.heldStaff, s.heldEquipment = nil, nil
		e.emit(Event{Hour: h, Day: day, Kind: EventCompleted, Operation: op.Key(),
			Message: fmt.Sprintf("%s completed %s units", op.Spec.ID, op.Target())})
		return
	}

	s.cycleEnd = h + generic.Hour(s.cycleHours)
	e.hold(s, h, s.cycleEnd-1)
	e.emit(Event{Hour: h, Day: day, Kind: EventCycleComplete, Operation: op.Key(),
		Message: fmt.Sprintf("%s produced %s, %s remaining", op.Spec.ID, produced, op.Remaining())})
}

// hold (re)reserves the operation's continuous resources through busyUntil.
func (e *Engine) hold(s *opState, now, busyUntil generic.Hour) {
	for _, ref := range s.heldRefs() {
		e.own.Hold(ref, s.op.Key(), busyUntil, now)
	}
}

func (e *Engine) consumption(spec production.OperationSpec, units decimal.Decimal) []ledger.Consumption {
	mult := decimal.NewFromFloat(e.variance.CostMultiplier())
	lines := make([]ledger.Consumption, 0, len(spec.Materials))
	for _, u := range spec.Materials {
		lines = append(lines, ledger.Consumption{
			MaterialID: u.MaterialID,
			Quantity:   u.PerUnit.Mul(units).Mul(mult),
		})
	}
	return lines
}

// =============================================================================
// PRODUCTIVITY
// =============================================================================

// DefaultRate is the units per hour of an operation with no productivity on
// itself, its equipment or its roles.
const DefaultRate = 1.0

// rate is the smallest variance-adjusted productivity among the operation,
// its equipment and its roles.
func (e *Engine) rate(spec production.OperationSpec) float64 {
	rate := math.Inf(1)
	consider := func(base float64) {
		if base > 0 {
			rate = math.Min(rate, e.variance.Productivity(base, spec.VariancePercent))
		}
	}
	consider(spec.Productivity)
	for _, id := range spec.EquipmentIDs {
		if eq, ok := e.sc.Catalog.EquipmentUnit(id); ok {
			consider(eq.Productivity)
		}
	}
	for _, id := range spec.RoleIDs {
		if r, ok := e.sc.Catalog.Role(id); ok {
			consider(r.Productivity)
		}
	}
	if math.IsInf(rate, 1) {
		return DefaultRate
	}
	return math.Max(rate, 0)
}

// oneTimeCycle is the number of hours a ONE_TIME operation needs to produce
// its whole target at the given capacity.
func (e *Engine) oneTimeCycle(op *production.Operation, rate, capacity float64) int {
	perHour := rate * e.settings.RestCoefficient() * capacity
	if perHour <= 0 {
		return e.settings.MaxHours + 1
	}
	target, _ := op.Target().Float64()
	hours := int(math.Ceil(target/perHour - 1e-9))
	return max(hours, 1)
}
