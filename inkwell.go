package inkwell

import (
	"log/slog"

	"github.com/inkwell-ui/inkwell/pkg/editor"
	"github.com/inkwell-ui/inkwell/pkg/host"
	"github.com/inkwell-ui/inkwell/pkg/vdom"
)

// Re-exported core types.
type (
	// VNode is the declarative description of one visual node.
	VNode = vdom.VNode

	// Props holds element attributes.
	Props = vdom.Props

	// Patch is one reconciliation instruction.
	Patch = vdom.Patch

	// Host is the render-host capability surface.
	Host = host.Host

	// NodeRef is an opaque handle to a host-managed node.
	NodeRef = host.NodeRef

	// Block is the record slice the engine renders.
	Block = editor.Block

	// Editor is the editing engine for one container.
	Editor = editor.Engine

	// Store is the port to the external block record store.
	Store = editor.Store
)

// El creates an element node.
func El(tag string, props Props, children ...*VNode) *VNode {
	return vdom.El(tag, props, children...)
}

// Text creates a text node.
func Text(text string) *VNode {
	return vdom.Text(text)
}

// Diff compares two node trees and returns the patches that transform
// old into new.
func Diff(old, new *VNode) []Patch {
	return vdom.Diff(old, new)
}

// Apply executes patches under parent against the host tree and
// returns the handle of the resulting root node.
func Apply(h Host, parent NodeRef, patches []Patch) NodeRef {
	return vdom.NewApplier(h, slog.Default()).Apply(parent, patches)
}

// New creates an editing engine rendering into container.
func New(h Host, container NodeRef, store Store, opts ...editor.Option) (*Editor, error) {
	return editor.New(h, container, store, opts...)
}
