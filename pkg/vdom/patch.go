package vdom

// PatchKind is the type of patch operation.
type PatchKind uint8

const (
	PatchCreate  PatchKind = iota // Mount a new subtree
	PatchUpdate                   // Mutate a matched node in place
	PatchDelete                   // Unmount a subtree
	PatchReplace                  // Unmount old subtree, mount new one
)

// String returns the string representation of the PatchKind.
func (k PatchKind) String() string {
	switch k {
	case PatchCreate:
		return "Create"
	case PatchUpdate:
		return "Update"
	case PatchDelete:
		return "Delete"
	case PatchReplace:
		return "Replace"
	default:
		return "Unknown"
	}
}

// PropEdit is one attribute change inside an Update patch.
// Remove=true means the attribute is deleted; otherwise it is set.
type PropEdit struct {
	Key    string
	Value  any
	Remove bool
}

// Patch is one reconciliation instruction. Update patches nest: Child
// holds the patches for the node's children, computed positionally.
type Patch struct {
	Kind  PatchKind
	Old   *VNode     // Target of Update/Delete/Replace
	New   *VNode     // Subtree for Create/Replace, counterpart for Update
	Index int        // Position under the parent, for Create/Replace
	Props []PropEdit // Changed attributes, Update only
	Child []Patch    // Child patches, Update only
}

// Empty reports whether an Update patch carries no mutations at any
// depth. Non-Update patches are never empty.
func (p *Patch) Empty() bool {
	if p.Kind != PatchUpdate {
		return false
	}
	if len(p.Props) > 0 {
		return false
	}
	if p.textChanged() {
		return false
	}
	for i := range p.Child {
		if !p.Child[i].Empty() {
			return false
		}
	}
	return true
}

func (p *Patch) textChanged() bool {
	return p.Old != nil && p.New != nil &&
		p.Old.Kind == KindText && p.Old.Text != p.New.Text
}
