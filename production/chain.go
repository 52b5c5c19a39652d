package production

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CHAIN - Ordered operations with buffer hand-off
// =============================================================================

// Chain owns the hand-off between consecutive operations. Operations never
// touch a sibling's buffer directly; they go through PullFromPrevious.
type Chain struct {
	Spec   ChainSpec
	ItemID string
	Ops    []*Operation

	finished decimal.Decimal
}

func (c *Chain) Type() ChainType { return c.Spec.Type }

// IsFirstInChain reports whether op has no upstream dependency.
func (c *Chain) IsFirstInChain(op *Operation) bool {
	return len(c.Ops) > 0 && c.Ops[0] == op
}

// Previous returns the operation feeding op, nil for the first one.
func (c *Chain) Previous(op *Operation) *Operation {
	for i, o := range c.Ops {
		if o == op {
			if i == 0 {
				return nil
			}
			return c.Ops[i-1]
		}
	}
	return nil
}

// PullFromPrevious moves up to desired units out of the upstream available
// buffer into its transferred counter and records them as pulled by op.
// Returns the amount pulled.
func (c *Chain) PullFromPrevious(op *Operation, desired decimal.Decimal) decimal.Decimal {
	prev := c.Previous(op)
	if prev == nil || !desired.IsPositive() {
		return decimal.Zero
	}
	q := prev.handOff(desired)
	op.pulled = op.pulled.Add(q)
	return q
}

// ReleaseStaged makes every operation's last-hour output pullable. ONE_TIME
// operations hand their output on immediately since nothing pulls from
// them; the last operation of either chain type feeds finished goods.
func (c *Chain) ReleaseStaged() decimal.Decimal {
	released := decimal.Zero
	for i, op := range c.Ops {
		released = released.Add(op.releaseStaged())
		last := i == len(c.Ops)-1
		if c.Spec.Type == ChainOneTime || last {
			q := op.handOff(op.available)
			if last {
				c.finished = c.finished.Add(q)
			}
		}
	}
	return released
}

// Finished is the quantity delivered out of the chain.
func (c *Chain) Finished() decimal.Decimal { return c.finished }

// IsComplete is true when every operation has produced its target.
func (c *Chain) IsComplete() bool {
	for _, op := range c.Ops {
		if !op.IsComplete() {
			return false
		}
	}
	return true
}

// =============================================================================
// ITEM - Runtime chains of one order item
// =============================================================================

type Item struct {
	Spec   OrderItem
	Chains []*Chain
}

func (it *Item) IsComplete() bool {
	for _, c := range it.Chains {
		if !c.IsComplete() {
			return false
		}
	}
	return true
}

// OneTimeBlocking returns the first incomplete ONE_TIME chain ordered before
// (or equal to) index, or nil. PER_UNIT chains wait for it.
func (it *Item) OneTimeBlocking(index int) *Chain {
	for i, c := range it.Chains {
		if i > index {
			break
		}
		if c.Spec.Type == ChainOneTime && !c.IsComplete() {
			return c
		}
	}
	return nil
}

// BuildItems instantiates runtime chains for every order item. Chains are
// ordered by OrderIndex, then operations by OrderIndex. ONE_TIME chains
// target their declared quantity (default 1); PER_UNIT chains target the
// item quantity.
func BuildItems(sc *Scenario) []*Item {
	items := make([]*Item, 0, len(sc.Order.Items))
	for _, spec := range sc.Order.Items {
		p, _ := sc.Catalog.Process(spec.ProcessID)

		chains := append([]ChainSpec(nil), p.Chains...)
		sort.SliceStable(chains, func(i, j int) bool { return chains[i].OrderIndex < chains[j].OrderIndex })

		item := &Item{Spec: spec}
		for _, cs := range chains {
			ops := append([]OperationSpec(nil), cs.Operations...)
			sort.SliceStable(ops, func(i, j int) bool { return ops[i].OrderIndex < ops[j].OrderIndex })
			cs.Operations = ops

			target := spec.Quantity
			if cs.Type == ChainOneTime {
				target = cs.Quantity
				if !target.IsPositive() {
					target = decimal.NewFromInt(1)
				}
			}

			ch := &Chain{Spec: cs, ItemID: spec.ID, finished: decimal.Zero}
			for i, opSpec := range ops {
				ch.Ops = append(ch.Ops, newOperation(opSpec, spec.ID, cs.ID, i, cs.Type, target))
			}
			item.Chains = append(item.Chains, ch)
		}
		items = append(items, item)
	}
	return items
}
