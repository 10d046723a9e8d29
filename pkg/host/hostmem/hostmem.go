// Package hostmem is a complete in-memory render host. It backs the
// core's tests and doubles as the reference for what a production
// adapter must provide: a mutable node tree, deterministic text
// measurement, a manually pumped frame scheduler, and synchronous
// event dispatch.
package hostmem

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inkwell-ui/inkwell/pkg/host"
)

type node struct {
	ref      host.NodeRef
	tag      string
	text     string
	isText   bool
	attrs    map[string]string
	styles   map[string]string
	children []*node
	parent   *node
}

type delayed struct {
	due time.Duration
	fn  func()
}

type handlerEntry struct {
	id uint64
	h  host.EventHandler
}

// Host is the in-memory host. Not safe for concurrent use; like a real
// UI thread, everything happens from one goroutine.
type Host struct {
	nextRef uint64
	nodes   map[host.NodeRef]*node
	root    *node

	pending []func()
	delayed []delayed
	now     time.Duration

	nextHandlerID uint64
	handlers      []handlerEntry

	rules map[string]map[string]string

	// Measurement knobs. GlyphWidth and LineHeight drive the
	// deterministic geometry; the failure fields force the next
	// measurements down the error or degenerate path.
	GlyphWidth     float64
	LineHeight     float64
	FailNext       int // next N measurements return an error
	DegenerateNext int // next N measurements return all-zero geometry
	MeasureLog     []host.NodeRef
}

// New creates a host with an attached root element.
func New() *Host {
	h := &Host{
		nodes:      make(map[host.NodeRef]*node),
		rules:      make(map[string]map[string]string),
		GlyphWidth: 8,
		LineHeight: 16,
	}
	h.root = h.newNode("root", false)
	return h
}

// Root returns the handle of the root element.
func (h *Host) Root() host.NodeRef {
	return h.root.ref
}

func (h *Host) newNode(tag string, isText bool) *node {
	h.nextRef++
	n := &node{
		ref:    host.NodeRef(h.nextRef),
		tag:    tag,
		isText: isText,
		attrs:  make(map[string]string),
		styles: make(map[string]string),
	}
	h.nodes[n.ref] = n
	return n
}

// --- host.Tree ---

// CreateElement creates a detached element node.
func (h *Host) CreateElement(tag string) host.NodeRef {
	return h.newNode(tag, false).ref
}

// CreateText creates a detached text node.
func (h *Host) CreateText(text string) host.NodeRef {
	n := h.newNode("", true)
	n.text = text
	return n.ref
}

// SetText replaces a text node's content.
func (h *Host) SetText(ref host.NodeRef, text string) error {
	n, ok := h.nodes[ref]
	if !ok {
		return host.ErrDetached
	}
	n.text = text
	return nil
}

// SetAttr sets an attribute.
func (h *Host) SetAttr(ref host.NodeRef, key, value string) error {
	n, ok := h.nodes[ref]
	if !ok {
		return host.ErrDetached
	}
	n.attrs[key] = value
	return nil
}

// RemoveAttr removes an attribute.
func (h *Host) RemoveAttr(ref host.NodeRef, key string) error {
	n, ok := h.nodes[ref]
	if !ok {
		return host.ErrDetached
	}
	delete(n.attrs, key)
	return nil
}

// SetStyle sets one inline style property. An empty value clears it,
// matching DOM setProperty semantics.
func (h *Host) SetStyle(ref host.NodeRef, prop, value string) error {
	n, ok := h.nodes[ref]
	if !ok {
		return host.ErrDetached
	}
	if value == "" {
		delete(n.styles, prop)
		return nil
	}
	n.styles[prop] = value
	return nil
}

// Style reads one inline style property.
func (h *Host) Style(ref host.NodeRef, prop string) (string, error) {
	n, ok := h.nodes[ref]
	if !ok {
		return "", host.ErrDetached
	}
	return n.styles[prop], nil
}

// InsertChild inserts child under parent at index, detaching it from
// any previous parent first.
func (h *Host) InsertChild(parent host.NodeRef, index int, child host.NodeRef) error {
	p, ok := h.nodes[parent]
	if !ok {
		return host.ErrDetached
	}
	c, ok := h.nodes[child]
	if !ok {
		return host.ErrDetached
	}
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, nil)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = c
	c.parent = p
	return nil
}

// RemoveNode detaches the node's subtree and invalidates its handles.
func (h *Host) RemoveNode(ref host.NodeRef) error {
	n, ok := h.nodes[ref]
	if !ok {
		return host.ErrDetached
	}
	if n.parent != nil {
		n.parent.removeChild(n)
	}
	h.forget(n)
	return nil
}

func (h *Host) forget(n *node) {
	delete(h.nodes, n.ref)
	for _, c := range n.children {
		h.forget(c)
	}
}

func (p *node) removeChild(c *node) {
	for i, ch := range p.children {
		if ch == c {
			p.children = append(p.children[:i], p.children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

// Contains reports whether ref is attached under the root.
func (h *Host) Contains(ref host.NodeRef) bool {
	n, ok := h.nodes[ref]
	if !ok {
		return false
	}
	for n != nil {
		if n == h.root {
			return true
		}
		n = n.parent
	}
	return false
}

// --- host.Measurer ---

// Measure resolves a rune offset to deterministic geometry: a fixed
// glyph advance on a single line. Offsets beyond the node's text clamp
// to its end, matching what a real text measurer does for a boundary
// request past the last glyph.
func (h *Host) Measure(ref host.NodeRef, runeOffset int) (host.Rect, error) {
	h.MeasureLog = append(h.MeasureLog, ref)
	if h.FailNext > 0 {
		h.FailNext--
		return host.Rect{}, fmt.Errorf("%w: forced failure", host.ErrMeasure)
	}
	if h.DegenerateNext > 0 {
		h.DegenerateNext--
		return host.Rect{}, nil
	}
	if !h.Contains(ref) {
		return host.Rect{}, fmt.Errorf("%w: node not attached", host.ErrMeasure)
	}
	n := h.nodes[ref]
	runes := []rune(h.textOf(n))
	if runeOffset < 0 {
		runeOffset = 0
	}
	if runeOffset > len(runes) {
		runeOffset = len(runes)
	}
	return host.Rect{
		X:      h.GlyphWidth * float64(runeOffset),
		Y:      0,
		Width:  0,
		Height: h.LineHeight,
	}, nil
}

func (h *Host) textOf(n *node) string {
	if n.isText {
		return n.text
	}
	var sb strings.Builder
	for _, c := range n.children {
		sb.WriteString(h.textOf(c))
	}
	return sb.String()
}

// --- host.Scheduler ---

// AfterFrame queues fn for the next PumpFrame call.
func (h *Host) AfterFrame(fn func()) {
	h.pending = append(h.pending, fn)
}

// AfterDelay queues fn to run once the manual clock advances past d.
func (h *Host) AfterDelay(d time.Duration, fn func()) {
	h.delayed = append(h.delayed, delayed{due: h.now + d, fn: fn})
}

// PumpFrame runs every task queued before this call. Tasks queued
// while pumping land in the next frame.
func (h *Host) PumpFrame() {
	tasks := h.pending
	h.pending = nil
	for _, fn := range tasks {
		fn()
	}
}

// PumpFrames pumps n frames.
func (h *Host) PumpFrames(n int) {
	for i := 0; i < n; i++ {
		h.PumpFrame()
	}
}

// Advance moves the manual clock forward and runs newly due delayed
// tasks in scheduling order.
func (h *Host) Advance(d time.Duration) {
	h.now += d
	remaining := h.delayed[:0]
	due := []func(){}
	for _, t := range h.delayed {
		if t.due <= h.now {
			due = append(due, t.fn)
		} else {
			remaining = append(remaining, t)
		}
	}
	h.delayed = remaining
	for _, fn := range due {
		fn()
	}
}

// Settle pumps frames and advances the clock until no work remains.
func (h *Host) Settle() {
	for len(h.pending) > 0 || len(h.delayed) > 0 {
		h.PumpFrame()
		h.Advance(time.Second)
	}
}

// --- host.Events ---

// Subscribe registers an event handler.
func (h *Host) Subscribe(eh host.EventHandler) func() {
	h.nextHandlerID++
	id := h.nextHandlerID
	h.handlers = append(h.handlers, handlerEntry{id: id, h: eh})
	return func() {
		for i, e := range h.handlers {
			if e.id == id {
				h.handlers = append(h.handlers[:i], h.handlers[i+1:]...)
				return
			}
		}
	}
}

// DispatchKey delivers a key event; the return value reports whether a
// handler consumed it (i.e. default host editing must be suppressed).
func (h *Host) DispatchKey(ev host.KeyEvent) bool {
	for _, e := range h.handlers {
		if e.h.HandleKey(ev) {
			return true
		}
	}
	return false
}

// DispatchComposition delivers a composition event.
func (h *Host) DispatchComposition(ev host.CompositionEvent) bool {
	for _, e := range h.handlers {
		if e.h.HandleComposition(ev) {
			return true
		}
	}
	return false
}

// DispatchPaste delivers a paste event.
func (h *Host) DispatchPaste(ev host.PasteEvent) bool {
	for _, e := range h.handlers {
		if e.h.HandlePaste(ev) {
			return true
		}
	}
	return false
}

// DispatchClick delivers a click event.
func (h *Host) DispatchClick(ev host.ClickEvent) bool {
	for _, e := range h.handlers {
		if e.h.HandleClick(ev) {
			return true
		}
	}
	return false
}

// --- host.Styles ---

type scope struct {
	h    *Host
	name string
}

// NewScope creates a named stylesheet scope.
func (h *Host) NewScope(name string) host.StyleScope {
	if _, ok := h.rules[name]; !ok {
		h.rules[name] = make(map[string]string)
	}
	return &scope{h: h, name: name}
}

func (s *scope) SetRule(selector, declarations string) {
	if rules, ok := s.h.rules[s.name]; ok {
		rules[selector] = declarations
	}
}

func (s *scope) Release() {
	delete(s.h.rules, s.name)
}

// Rule returns a rule installed in a scope, for assertions.
func (h *Host) Rule(scopeName, selector string) (string, bool) {
	rules, ok := h.rules[scopeName]
	if !ok {
		return "", false
	}
	decl, ok := rules[selector]
	return decl, ok
}

// --- inspection helpers ---

// Tag returns an element's tag.
func (h *Host) Tag(ref host.NodeRef) string {
	if n, ok := h.nodes[ref]; ok {
		return n.tag
	}
	return ""
}

// Attr returns an attribute value.
func (h *Host) Attr(ref host.NodeRef, key string) (string, bool) {
	if n, ok := h.nodes[ref]; ok {
		v, ok := n.attrs[key]
		return v, ok
	}
	return "", false
}

// Children returns a node's child handles in order.
func (h *Host) Children(ref host.NodeRef) []host.NodeRef {
	n, ok := h.nodes[ref]
	if !ok {
		return nil
	}
	out := make([]host.NodeRef, len(n.children))
	for i, c := range n.children {
		out[i] = c.ref
	}
	return out
}

// TextContent returns the concatenated text under a node.
func (h *Host) TextContent(ref host.NodeRef) string {
	n, ok := h.nodes[ref]
	if !ok {
		return ""
	}
	return h.textOf(n)
}

// Snapshot renders a node's subtree into a canonical string for
// structural comparison: tag, sorted attributes, inline styles, and
// children, recursively. Text nodes render as their quoted text.
func (h *Host) Snapshot(ref host.NodeRef) string {
	n, ok := h.nodes[ref]
	if !ok {
		return "<detached>"
	}
	var sb strings.Builder
	h.snapshot(n, &sb)
	return sb.String()
}

func (h *Host) snapshot(n *node, sb *strings.Builder) {
	if n.isText {
		fmt.Fprintf(sb, "%q", n.text)
		return
	}
	sb.WriteString("<")
	sb.WriteString(n.tag)
	for _, k := range sortedKeys(n.attrs) {
		fmt.Fprintf(sb, " %s=%q", k, n.attrs[k])
	}
	if len(n.styles) > 0 {
		sb.WriteString(" style=[")
		for i, k := range sortedKeys(n.styles) {
			if i > 0 {
				sb.WriteString(";")
			}
			fmt.Fprintf(sb, "%s:%s", k, n.styles[k])
		}
		sb.WriteString("]")
	}
	sb.WriteString(">")
	for _, c := range n.children {
		h.snapshot(c, sb)
	}
	sb.WriteString("</")
	sb.WriteString(n.tag)
	sb.WriteString(">")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
