// Package vdom implements the declarative node tree and the reconciler
// that renders it into a host tree while mutating only what changed.
package vdom

import "github.com/inkwell-ui/inkwell/pkg/host"

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement VKind = iota // <div>, <span>, etc.
	KindText                 // Plain text node
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// VNode describes one visual node. VNodes are ephemeral: a fresh tree
// is built on every render and thrown away after diffing. Only Ref
// survives across renders, carried forward between nodes with the same
// identity.
type VNode struct {
	Kind     VKind
	Tag      string       // Element tag name
	Props    Props        // Attributes; "style" holds Style
	Children []*VNode     // Child nodes, order significant
	Key      string       // Identity key, optional
	Text     string       // For KindText
	Ref      host.NodeRef // Host handle, assigned on mount
}

// Props holds element attributes.
type Props map[string]any

// Style is the value type of the "style" prop: inline style properties
// applied individually through the host.
type Style map[string]string

// El creates an element node.
func El(tag string, props Props, children ...*VNode) *VNode {
	return &VNode{
		Kind:     KindElement,
		Tag:      tag,
		Props:    props,
		Children: children,
	}
}

// Text creates a text node.
func Text(text string) *VNode {
	return &VNode{Kind: KindText, Text: text}
}

// WithKey sets the node's identity key and returns the node.
func (v *VNode) WithKey(key string) *VNode {
	v.Key = key
	return v
}

// SameIdentity reports whether a and b are the same logical node:
// equal kind, tag, and key. Either side may be nil. Text nodes carry
// no tag or key, so any two text nodes share identity.
func SameIdentity(a, b *VNode) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Kind == b.Kind && a.Tag == b.Tag && a.Key == b.Key
}
