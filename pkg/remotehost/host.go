package remotehost

import (
	"fmt"
	"time"

	"github.com/inkwell-ui/inkwell/pkg/host"
	"github.com/inkwell-ui/inkwell/pkg/protocol"
)

// The session mirrors the client tree structurally so Contains and
// Style answer without a round-trip; actual rendering state lives only
// on the client.

// CreateElement creates a detached element on the client.
func (s *Session) CreateElement(tag string) host.NodeRef {
	ref := s.allocRef()
	s.ops = append(s.ops, protocol.Op{Code: protocol.OpCreateElement, Ref: uint64(ref), Key: tag})
	return ref
}

// CreateText creates a detached text node on the client.
func (s *Session) CreateText(text string) host.NodeRef {
	ref := s.allocRef()
	s.ops = append(s.ops, protocol.Op{Code: protocol.OpCreateText, Ref: uint64(ref), Text: text})
	return ref
}

func (s *Session) allocRef() host.NodeRef {
	s.nextRef++
	ref := host.NodeRef(s.nextRef)
	s.nodes[ref] = &mirrorNode{ref: ref, styles: make(map[string]string)}
	return ref
}

// SetText replaces a text node's content.
func (s *Session) SetText(ref host.NodeRef, text string) error {
	if _, ok := s.nodes[ref]; !ok {
		return host.ErrDetached
	}
	s.ops = append(s.ops, protocol.Op{Code: protocol.OpSetText, Ref: uint64(ref), Text: text})
	return nil
}

// SetAttr sets an attribute.
func (s *Session) SetAttr(ref host.NodeRef, key, value string) error {
	if _, ok := s.nodes[ref]; !ok {
		return host.ErrDetached
	}
	s.ops = append(s.ops, protocol.Op{Code: protocol.OpSetAttr, Ref: uint64(ref), Key: key, Value: value})
	return nil
}

// RemoveAttr removes an attribute.
func (s *Session) RemoveAttr(ref host.NodeRef, key string) error {
	if _, ok := s.nodes[ref]; !ok {
		return host.ErrDetached
	}
	s.ops = append(s.ops, protocol.Op{Code: protocol.OpRemoveAttr, Ref: uint64(ref), Key: key})
	return nil
}

// SetStyle sets one inline style property. An empty value clears it;
// the client's setProperty treats "" the same way.
func (s *Session) SetStyle(ref host.NodeRef, prop, value string) error {
	n, ok := s.nodes[ref]
	if !ok {
		return host.ErrDetached
	}
	if value == "" {
		delete(n.styles, prop)
	} else {
		n.styles[prop] = value
	}
	s.ops = append(s.ops, protocol.Op{Code: protocol.OpSetStyle, Ref: uint64(ref), Key: prop, Value: value})
	return nil
}

// Style reads back one inline style property from the mirror. Only
// values this session set are visible.
func (s *Session) Style(ref host.NodeRef, prop string) (string, error) {
	n, ok := s.nodes[ref]
	if !ok {
		return "", host.ErrDetached
	}
	return n.styles[prop], nil
}

// InsertChild inserts child under parent at index.
func (s *Session) InsertChild(parent host.NodeRef, index int, child host.NodeRef) error {
	p, ok := s.nodes[parent]
	if !ok {
		return host.ErrDetached
	}
	c, ok := s.nodes[child]
	if !ok {
		return host.ErrDetached
	}
	if c.parent.IsValid() {
		if old, ok := s.nodes[c.parent]; ok {
			old.dropChild(child)
		}
	}
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, 0)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = child
	c.parent = parent
	s.ops = append(s.ops, protocol.Op{
		Code: protocol.OpInsertChild, Parent: uint64(parent), Index: index, Ref: uint64(child),
	})
	return nil
}

// RemoveNode removes a subtree.
func (s *Session) RemoveNode(ref host.NodeRef) error {
	n, ok := s.nodes[ref]
	if !ok {
		return host.ErrDetached
	}
	if n.parent.IsValid() {
		if p, ok := s.nodes[n.parent]; ok {
			p.dropChild(ref)
		}
	}
	s.forget(n)
	s.ops = append(s.ops, protocol.Op{Code: protocol.OpRemoveNode, Ref: uint64(ref)})
	return nil
}

func (s *Session) forget(n *mirrorNode) {
	delete(s.nodes, n.ref)
	for _, c := range n.children {
		if cn, ok := s.nodes[c]; ok {
			s.forget(cn)
		}
	}
}

func (n *mirrorNode) dropChild(ref host.NodeRef) {
	for i, c := range n.children {
		if c == ref {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

// Contains reports whether ref is attached under the client container.
func (s *Session) Contains(ref host.NodeRef) bool {
	n, ok := s.nodes[ref]
	if !ok {
		return false
	}
	for {
		if n.ref == s.root {
			return true
		}
		if !n.parent.IsValid() {
			return false
		}
		n, ok = s.nodes[n.parent]
		if !ok {
			return false
		}
	}
}

// Measure asks the client for caret geometry. Pending ops flush first
// so the measurement sees the tree it was computed against. A timeout
// or a negative client answer is a measurement failure; the caret's
// bounded retry absorbs it.
func (s *Session) Measure(ref host.NodeRef, runeOffset int) (host.Rect, error) {
	if _, ok := s.nodes[ref]; !ok {
		return host.Rect{}, fmt.Errorf("%w: node not mirrored", host.ErrMeasure)
	}
	s.flush()

	s.measureMu.Lock()
	s.nextMeasure++
	id := s.nextMeasure
	ch := make(chan *protocol.MeasureResult, 1)
	s.measures[id] = ch
	s.measureMu.Unlock()

	payload := protocol.EncodeMeasureRequest(&protocol.MeasureRequest{
		ID: id, Ref: uint64(ref), Offset: runeOffset,
	})
	start := time.Now()
	if err := s.writeFrame(protocol.FrameMeasureReq, payload); err != nil {
		s.dropMeasure(id)
		return host.Rect{}, fmt.Errorf("%w: %v", host.ErrMeasure, err)
	}

	select {
	case res := <-ch:
		s.metrics.measureRoundTrip(time.Since(start).Seconds())
		if !res.OK {
			return host.Rect{}, fmt.Errorf("%w: client could not measure", host.ErrMeasure)
		}
		return host.Rect{X: res.X, Y: res.Y, Width: res.Width, Height: res.Height}, nil
	case <-time.After(s.cfg.MeasureTimeout):
		s.dropMeasure(id)
		s.metrics.measureTimeout()
		return host.Rect{}, fmt.Errorf("%w: timeout after %s", host.ErrMeasure, s.cfg.MeasureTimeout)
	}
}

func (s *Session) dropMeasure(id uint64) {
	s.measureMu.Lock()
	delete(s.measures, id)
	s.measureMu.Unlock()
}

// AfterFrame parks fn until the client acks the next ops flush.
func (s *Session) AfterFrame(fn func()) {
	s.afterNext = append(s.afterNext, fn)
}

// AfterDelay runs fn on the event loop after roughly d.
func (s *Session) AfterDelay(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		s.Post(fn)
	})
}

// Subscribe registers an event handler.
func (s *Session) Subscribe(eh host.EventHandler) func() {
	s.nextHandlerID++
	id := s.nextHandlerID
	s.handlers = append(s.handlers, handlerEntry{id: id, h: eh})
	return func() {
		for i, e := range s.handlers {
			if e.id == id {
				s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
				return
			}
		}
	}
}

// wireScope emits stylesheet rules as ops.
type wireScope struct {
	s    *Session
	name string
}

// NewScope creates a client-side stylesheet scope.
func (s *Session) NewScope(name string) host.StyleScope {
	return &wireScope{s: s, name: name}
}

func (w *wireScope) SetRule(selector, declarations string) {
	w.s.ops = append(w.s.ops, protocol.Op{
		Code: protocol.OpStyleRule, Key: w.name, Value: selector, Text: declarations,
	})
}

func (w *wireScope) Release() {
	w.s.ops = append(w.s.ops, protocol.Op{Code: protocol.OpStyleRelease, Key: w.name})
}
