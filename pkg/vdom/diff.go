package vdom

import "reflect"

// Diff compares two node trees and returns the patches that transform
// old into new. Either side may be nil. Children are compared strictly
// by position: keys participate in identity but do not drive
// reordering, so an insertion mid-list cascades into Replace patches
// for everything after it. Cost is linear in total node count.
func Diff(old, new *VNode) []Patch {
	p, ok := diffNode(old, new, 0)
	if !ok {
		return nil
	}
	return []Patch{p}
}

// diffNode produces the single patch for one old/new pair at the given
// child index. ok=false means both sides were nil.
func diffNode(old, new *VNode, index int) (Patch, bool) {
	switch {
	case old == nil && new == nil:
		return Patch{}, false

	case old == nil:
		return Patch{Kind: PatchCreate, New: new, Index: index}, true

	case new == nil:
		return Patch{Kind: PatchDelete, Old: old, Index: index}, true

	case !SameIdentity(old, new):
		return Patch{Kind: PatchReplace, Old: old, New: new, Index: index}, true
	}

	// Same identity: the host handle carries forward.
	new.Ref = old.Ref

	p := Patch{
		Kind:  PatchUpdate,
		Old:   old,
		New:   new,
		Index: index,
		Props: diffProps(old.Props, new.Props),
	}

	max := len(old.Children)
	if len(new.Children) > max {
		max = len(new.Children)
	}
	for i := 0; i < max; i++ {
		var oc, nc *VNode
		if i < len(old.Children) {
			oc = old.Children[i]
		}
		if i < len(new.Children) {
			nc = new.Children[i]
		}
		if cp, ok := diffNode(oc, nc, i); ok {
			p.Child = append(p.Child, cp)
		}
	}
	return p, true
}

// diffProps returns the edits that turn old props into new props.
// Only changed keys appear; unchanged values produce nothing.
func diffProps(old, new Props) []PropEdit {
	var edits []PropEdit

	for key, ov := range old {
		nv, exists := new[key]
		if !exists {
			edits = append(edits, PropEdit{Key: key, Remove: true})
		} else if !propsEqual(ov, nv) {
			edits = append(edits, PropEdit{Key: key, Value: nv})
		}
	}
	for key, nv := range new {
		if _, exists := old[key]; !exists {
			edits = append(edits, PropEdit{Key: key, Value: nv})
		}
	}
	return edits
}

// propsEqual compares two prop values.
func propsEqual(a, b any) bool {
	// Fast paths for the common value types
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}
