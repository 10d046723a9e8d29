// Package host defines the capability surface the editor core consumes
// from a render host. The core never touches a concrete platform: a host
// is anything that can create and mutate visual nodes, measure text
// positions, schedule work after a render pass, and deliver raw input
// events. The hostmem subpackage provides a complete in-memory
// implementation used by tests; remotehost drives a browser DOM over a
// websocket connection.
package host

import (
	"errors"
	"time"
)

// NodeRef is an opaque handle to a host-managed visual node.
// The zero value is never a valid node.
type NodeRef uint64

// None is the invalid node handle.
const None NodeRef = 0

// IsValid returns true if the handle refers to a node that once existed.
// It says nothing about whether the node is still attached.
func (r NodeRef) IsValid() bool {
	return r != None
}

// Host errors.
var (
	// ErrDetached is returned by tree operations against a handle whose
	// node has been removed from the host tree.
	ErrDetached = errors.New("host: node handle is detached")

	// ErrMeasure is returned when the host cannot resolve a text
	// position to geometry, typically because the node has not been
	// committed to the visual tree yet.
	ErrMeasure = errors.New("host: measurement unavailable")
)

// Tree is the structural mutation surface of a host.
// All operations are synchronous and must only be called from the
// host's event thread.
type Tree interface {
	// CreateElement creates a detached element node.
	CreateElement(tag string) NodeRef

	// CreateText creates a detached text node.
	CreateText(text string) NodeRef

	// SetText replaces the text content of a text node.
	SetText(ref NodeRef, text string) error

	// SetAttr sets an attribute on an element node.
	SetAttr(ref NodeRef, key, value string) error

	// RemoveAttr removes an attribute from an element node.
	RemoveAttr(ref NodeRef, key string) error

	// SetStyle sets one inline style property on an element node.
	// An empty value clears the property.
	SetStyle(ref NodeRef, prop, value string) error

	// Style reads back one inline style property. Hosts that cannot
	// read styles return "" for unknown properties.
	Style(ref NodeRef, prop string) (string, error)

	// InsertChild inserts child under parent at the given index.
	// An index at or beyond the current child count appends.
	InsertChild(parent NodeRef, index int, child NodeRef) error

	// RemoveNode detaches the node and its subtree from the tree.
	RemoveNode(ref NodeRef) error

	// Contains reports whether the handle refers to a node that is
	// currently attached (reachable from a root).
	Contains(ref NodeRef) bool
}

// Rect is node-relative screen geometry in host pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Measurer resolves a rune offset within a node's text to geometry
// relative to the measuring container.
type Measurer interface {
	// Measure returns the caret rectangle for the text boundary at
	// runeOffset inside ref. Fails with ErrMeasure (possibly wrapped)
	// when the node is not yet laid out.
	Measure(ref NodeRef, runeOffset int) (Rect, error)
}

// Scheduler defers work until after the host has committed a render
// pass. AfterFrame ordering is FIFO within a frame. Neither method is
// cancellable; callers guard against staleness themselves.
type Scheduler interface {
	// AfterFrame runs fn once the host has settled the next render
	// pass. Chaining two AfterFrame calls guarantees layout has been
	// committed for anything mutated before the first.
	AfterFrame(fn func())

	// AfterDelay runs fn on the host event thread after roughly d.
	AfterDelay(d time.Duration, fn func())
}

// Events delivers raw input events to subscribed handlers. Handlers are
// invoked synchronously on the host event thread, in subscription
// order, until one consumes the event.
type Events interface {
	Subscribe(h EventHandler) (unsubscribe func())
}

// Styles exposes scoped stylesheet resources. A scope owns its rules;
// releasing the scope removes them. This replaces ambient global
// stylesheet mutation.
type Styles interface {
	NewScope(name string) StyleScope
}

// StyleScope is one owned stylesheet.
type StyleScope interface {
	// SetRule installs or replaces a rule in this scope.
	SetRule(selector, declarations string)

	// Release removes every rule owned by this scope.
	Release()
}

// Host is the full capability set the editor engine requires.
type Host interface {
	Tree
	Measurer
	Scheduler
	Events
	Styles
}
