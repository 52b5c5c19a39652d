/*
resource.go - Handles for shared production resources

PURPOSE:
  Equipment units and employees are contended for by many operations.
  Rather than indexing into slices (where a reused index silently points
  at a different worker), every resource is addressed by a typed handle.

HOW IT WORKS:
  ResourceRef{Kind, ID} is comparable, so it keys both the per-hour minute
  allocator in the ledger and the scheduler's ownership table.

SEE ALSO:
  - ledger/allocation.go: per-hour minute budgets
  - engine/ownership.go: multi-hour holds
*/
package generic

import "sort"

// =============================================================================
// RESOURCE HANDLES
// =============================================================================

type ResourceKind string

const (
	ResourceMaterial  ResourceKind = "material"
	ResourceEquipment ResourceKind = "equipment"
	ResourceEmployee  ResourceKind = "employee"
)

// ResourceRef identifies one shared resource.
type ResourceRef struct {
	Kind ResourceKind
	ID   string
}

func Equipment(id string) ResourceRef { return ResourceRef{Kind: ResourceEquipment, ID: id} }
func Employee(id string) ResourceRef  { return ResourceRef{Kind: ResourceEmployee, ID: id} }
func Material(id string) ResourceRef  { return ResourceRef{Kind: ResourceMaterial, ID: id} }

func (r ResourceRef) String() string { return string(r.Kind) + ":" + r.ID }

// SortRefs orders refs by kind then ID, for deterministic output.
func SortRefs(refs []ResourceRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].ID < refs[j].ID
	})
}
