package production

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/warp/production-engine/generic"
)

// =============================================================================
// OPERATION - Runtime progress of one OperationSpec for one order item
// =============================================================================

// Operation tracks where every unit of its target currently is:
//
//	remaining    not produced yet
//	staged       produced this hour, visible downstream next hour
//	available    produced and pullable by the next operation
//	transferred  handed to the next operation (or to finished goods)
//
// remaining + staged + available + transferred == target at all times.
// staged + available is the outgoing buffer.
type Operation struct {
	Spec    OperationSpec
	ItemID  string
	ChainID string
	Index   int
	Type    ChainType

	target      decimal.Decimal
	remaining   decimal.Decimal
	staged      decimal.Decimal
	available   decimal.Decimal
	transferred decimal.Decimal
	pulled      decimal.Decimal

	// fractional units carried between PER_UNIT cycles
	carry float64
}

func newOperation(spec OperationSpec, itemID, chainID string, index int, typ ChainType, target decimal.Decimal) *Operation {
	return &Operation{
		Spec:        spec,
		ItemID:      itemID,
		ChainID:     chainID,
		Index:       index,
		Type:        typ,
		target:      target,
		remaining:   target,
		staged:      decimal.Zero,
		available:   decimal.Zero,
		transferred: decimal.Zero,
		pulled:      decimal.Zero,
	}
}

// Key uniquely identifies the operation inside a run.
func (o *Operation) Key() string {
	return fmt.Sprintf("%s/%s/%s", o.ItemID, o.ChainID, o.Spec.ID)
}

func (o *Operation) Target() decimal.Decimal      { return o.target }
func (o *Operation) Remaining() decimal.Decimal   { return o.remaining }
func (o *Operation) Staged() decimal.Decimal      { return o.staged }
func (o *Operation) Available() decimal.Decimal   { return o.available }
func (o *Operation) Transferred() decimal.Decimal { return o.transferred }
func (o *Operation) Pulled() decimal.Decimal      { return o.pulled }

// OutgoingBuffer is everything produced and not yet handed downstream.
func (o *Operation) OutgoingBuffer() decimal.Decimal { return o.staged.Add(o.available) }

// Produced is the cumulative output so far.
func (o *Operation) Produced() decimal.Decimal { return o.target.Sub(o.remaining) }

// IsComplete is true once nothing remains to be produced.
func (o *Operation) IsComplete() bool { return !o.remaining.IsPositive() }

// ProduceForHour moves up to qty units from remaining into the staged
// buffer and returns the amount actually produced.
func (o *Operation) ProduceForHour(qty decimal.Decimal) decimal.Decimal {
	if !qty.IsPositive() {
		return decimal.Zero
	}
	q := decimal.Min(qty, o.remaining)
	o.remaining = o.remaining.Sub(q)
	o.staged = o.staged.Add(q)
	o.checkConservation()
	return q
}

// WholeUnits converts a fractional production capacity into whole units,
// carrying the fraction into the next call.
func (o *Operation) WholeUnits(capacity float64) decimal.Decimal {
	if capacity < 0 {
		capacity = 0
	}
	total := capacity + o.carry
	whole := math.Floor(total + 1e-9)
	o.carry = total - whole
	if o.carry < 0 {
		o.carry = 0
	}
	return decimal.NewFromFloat(whole)
}

// releaseStaged makes last hour's output pullable.
func (o *Operation) releaseStaged() decimal.Decimal {
	q := o.staged
	o.available = o.available.Add(q)
	o.staged = decimal.Zero
	return q
}

// handOff moves up to qty available units into transferred.
func (o *Operation) handOff(qty decimal.Decimal) decimal.Decimal {
	q := decimal.Min(qty, o.available)
	if !q.IsPositive() {
		return decimal.Zero
	}
	o.available = o.available.Sub(q)
	o.transferred = o.transferred.Add(q)
	o.checkConservation()
	return q
}

func (o *Operation) checkConservation() {
	sum := o.remaining.Add(o.staged).Add(o.available).Add(o.transferred)
	if !sum.Equal(o.target) || o.remaining.IsNegative() || o.available.IsNegative() {
		panic(&generic.InvariantError{
			Invariant: "conservation",
			Subject:   o.Key(),
			Detail: fmt.Sprintf("remaining %s + staged %s + available %s + transferred %s != target %s",
				o.remaining, o.staged, o.available, o.transferred, o.target),
		})
	}
}
