package engine

import (
	"fmt"
	"sort"

	"github.com/warp/production-engine/generic"
)

// =============================================================================
// OWNERSHIP TABLE - Multi-hour resource holds
// =============================================================================
//
// A continuous operation reserves its staff and equipment for a whole
// cycle. The per-hour minute budgets in the ledger are reset every hour, so
// the hold lives here: resource -> holder + last busy hour. A resource held
// until hour u is busy for every hour h <= u and released at hour u+1.

type hold struct {
	holder    string
	busyUntil generic.Hour
}

type Ownership struct {
	holds map[generic.ResourceRef]hold
}

func NewOwnership() *Ownership {
	return &Ownership{holds: make(map[generic.ResourceRef]hold)}
}

// Hold reserves ref for holder through busyUntil. Extending one's own hold
// is allowed; taking a resource another holder still has is a programming
// error.
func (o *Ownership) Hold(ref generic.ResourceRef, holder string, busyUntil, now generic.Hour) {
	if cur, ok := o.holds[ref]; ok && cur.holder != holder && cur.busyUntil >= now {
		panic(&generic.InvariantError{
			Invariant: "resource_exclusivity",
			Subject:   ref.String(),
			Detail:    fmt.Sprintf("held by %s until hour %d, requested by %s", cur.holder, cur.busyUntil, holder),
		})
	}
	o.holds[ref] = hold{holder: holder, busyUntil: busyUntil}
}

// IsBusy reports whether ref is held at hour h.
func (o *Ownership) IsBusy(ref generic.ResourceRef, h generic.Hour) bool {
	cur, ok := o.holds[ref]
	return ok && cur.busyUntil >= h
}

// HolderOf returns the current holder of ref at hour h.
func (o *Ownership) HolderOf(ref generic.ResourceRef, h generic.Hour) (string, bool) {
	cur, ok := o.holds[ref]
	if !ok || cur.busyUntil < h {
		return "", false
	}
	return cur.holder, true
}

// ReleaseExpired drops holds whose last busy hour is before h.
func (o *Ownership) ReleaseExpired(h generic.Hour) []generic.ResourceRef {
	var released []generic.ResourceRef
	for ref, cur := range o.holds {
		if cur.busyUntil < h {
			released = append(released, ref)
			delete(o.holds, ref)
		}
	}
	generic.SortRefs(released)
	return released
}

// ReleaseHolder drops every hold of holder.
func (o *Ownership) ReleaseHolder(holder string) {
	for ref, cur := range o.holds {
		if cur.holder == holder {
			delete(o.holds, ref)
		}
	}
}

// Busy returns the sorted IDs of resources of kind held at hour h.
func (o *Ownership) Busy(kind generic.ResourceKind, h generic.Hour) []string {
	var ids []string
	for ref, cur := range o.holds {
		if ref.Kind == kind && cur.busyUntil >= h {
			ids = append(ids, ref.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
