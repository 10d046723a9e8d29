// Package remotehost implements the render-host capability surface
// over a websocket connection: the editor core runs in Go while the
// visual tree lives in a thin browser client. Host mutations buffer
// per frame and flush as sequenced binary ops batches, split across
// frames when a batch outgrows the payload limit; the client acks each
// batch once it has committed layout, which drives the after-frame
// scheduler. Measurement is a request/response round-trip with a
// timeout, feeding the caret's bounded-retry path on slow clients.
package remotehost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkwell-ui/inkwell/pkg/host"
	"github.com/inkwell-ui/inkwell/pkg/protocol"
)

// ErrClosed is returned for operations against a closed session.
var ErrClosed = errors.New("remotehost: session closed")

var _ host.Host = (*Session)(nil)

// Conn is the subset of *websocket.Conn a session needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Config tunes a session.
type Config struct {
	// ReadTimeout is the websocket read deadline (default 60s).
	ReadTimeout time.Duration

	// MeasureTimeout bounds a measurement round-trip (default 250ms).
	// A timeout surfaces as a measurement failure, never a hang.
	MeasureTimeout time.Duration

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Metrics is optional; nil runs unmetered.
	Metrics *Metrics

	// Tracer defaults to the global "inkwell.remotehost" tracer.
	Tracer trace.Tracer
}

func (c *Config) fill() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.MeasureTimeout == 0 {
		c.MeasureTimeout = 250 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer("inkwell.remotehost")
	}
}

// mirrorNode is the server-side shadow of one client node, enough to
// answer Contains and Style without a round-trip.
type mirrorNode struct {
	ref      host.NodeRef
	parent   host.NodeRef
	styles   map[string]string
	children []host.NodeRef
}

type handlerEntry struct {
	id uint64
	h  host.EventHandler
}

// Session is one connected client acting as the render host. The
// host.Host methods must be called from the session's event loop
// goroutine (inside Post); the read loop runs separately and only
// hands work across.
type Session struct {
	conn    Conn
	cfg     Config
	log     *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	taskMu sync.Mutex
	tasks  []func()
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once

	writeMu sync.Mutex

	// Event-loop state (no locking needed).
	nextRef   uint64
	nodes     map[host.NodeRef]*mirrorNode
	root      host.NodeRef
	ops       []protocol.Op
	seq       uint64
	acked     map[uint64][]func()
	afterNext []func()

	nextHandlerID uint64
	handlers      []handlerEntry

	// Shared with the read loop.
	measureMu   sync.Mutex
	nextMeasure uint64
	measures    map[uint64]chan *protocol.MeasureResult
}

// NewSession wraps a websocket connection. The caller starts the
// loops: go s.ReadLoop(); go s.RunLoop().
func NewSession(conn Conn, cfg Config) *Session {
	cfg.fill()
	s := &Session{
		conn:     conn,
		cfg:      cfg,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		nodes:    make(map[host.NodeRef]*mirrorNode),
		acked:    make(map[uint64][]func()),
		measures: make(map[uint64]chan *protocol.MeasureResult),
	}
	// The client mounts its editor container as ref 1.
	s.nextRef = 1
	s.root = host.NodeRef(1)
	s.nodes[s.root] = &mirrorNode{ref: s.root, styles: make(map[string]string)}
	return s
}

// Root returns the handle of the client's editor container.
func (s *Session) Root() host.NodeRef {
	return s.root
}

// Post schedules fn onto the session event loop. The queue is
// unbounded so the read loop always hands work across without
// blocking; the event loop may be inside Measure, waiting on a result
// frame that only the read loop can deliver. Returns false if the
// session is closed.
func (s *Session) Post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	s.taskMu.Lock()
	s.tasks = append(s.tasks, fn)
	s.taskMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// RunLoop executes posted work and flushes buffered ops after each
// task. Blocks until Close.
func (s *Session) RunLoop() {
	for {
		select {
		case <-s.wake:
			for {
				fn := s.nextTask()
				if fn == nil {
					break
				}
				s.runTask(fn)
				s.flush()
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) nextTask() func() {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()
	if len(s.tasks) == 0 {
		s.tasks = nil
		return nil
	}
	fn := s.tasks[0]
	s.tasks = s.tasks[1:]
	return fn
}

func (s *Session) runTask(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("remotehost: task panic", "panic", r)
		}
	}()
	fn()
}

// ReadLoop reads frames until the connection drops. Blocks; run in
// its own goroutine.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Error("remotehost: read error", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.log.Error("remotehost: frame decode error", "error", err)
			s.sendError(protocol.ErrCodeBadFrame, "bad frame")
			continue
		}
		s.metrics.frameReceived(len(frame.Payload))

		switch frame.Type {
		case protocol.FrameHandshake:
			s.handleHandshake(frame.Payload)
		case protocol.FrameEvent:
			s.handleEventFrame(frame.Payload)
		case protocol.FrameAck:
			s.handleAckFrame(frame.Payload)
		case protocol.FrameMeasureRes:
			s.handleMeasureResult(frame.Payload)
		case protocol.FrameError:
			if we, err := protocol.DecodeWireError(frame.Payload); err == nil {
				s.log.Warn("remotehost: client error", "code", we.Code, "message", we.Message)
			}
		default:
			s.log.Warn("remotehost: unexpected frame", "type", frame.Type.String())
		}
	}
}

// Close shuts the session down. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()

		// Unblock any in-flight measurement with a failure.
		s.measureMu.Lock()
		for id, ch := range s.measures {
			ch <- &protocol.MeasureResult{ID: id, OK: false}
			delete(s.measures, id)
		}
		s.measureMu.Unlock()
	})
}

// Done is closed when the session shuts down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// --- frame handlers (read loop) ---

func (s *Session) handleHandshake(payload []byte) {
	hs, err := protocol.DecodeHandshake(payload)
	if err != nil {
		s.sendError(protocol.ErrCodeBadFrame, "bad handshake")
		return
	}
	if hs.Version != protocol.ProtocolVersion {
		s.sendError(protocol.ErrCodeVersion,
			fmt.Sprintf("unsupported protocol version %d", hs.Version))
		s.Close()
		return
	}
	s.log.Info("remotehost: client connected", "session", hs.SessionID)
}

func (s *Session) handleEventFrame(payload []byte) {
	pe, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.log.Error("remotehost: event decode error", "error", err)
		s.metrics.eventDropped()
		s.sendError(protocol.ErrCodeBadEvent, "bad event")
		return
	}
	s.metrics.eventReceived()
	s.Post(func() { s.dispatchEvent(pe) })
}

func (s *Session) handleAckFrame(payload []byte) {
	seq, err := protocol.DecodeAck(payload)
	if err != nil {
		s.log.Error("remotehost: ack decode error", "error", err)
		return
	}
	s.Post(func() {
		fns := s.acked[seq]
		delete(s.acked, seq)
		for _, fn := range fns {
			fn()
		}
	})
}

func (s *Session) handleMeasureResult(payload []byte) {
	res, err := protocol.DecodeMeasureResult(payload)
	if err != nil {
		s.log.Error("remotehost: measure decode error", "error", err)
		return
	}
	s.measureMu.Lock()
	ch, ok := s.measures[res.ID]
	if ok {
		delete(s.measures, res.ID)
	}
	s.measureMu.Unlock()
	if ok {
		ch <- res
	}
}

// --- event dispatch (event loop) ---

func (s *Session) dispatchEvent(pe *protocol.Event) {
	_, span := s.tracer.Start(context.Background(), "inkwell.event",
		trace.WithAttributes(
			attribute.String("event.type", pe.Type.String()),
			attribute.Int64("event.seq", int64(pe.Seq)),
		))
	defer span.End()

	consumed := false
	switch pe.Type {
	case protocol.EventKeyDown:
		if data, ok := pe.Payload.(*protocol.KeyData); ok {
			consumed = s.dispatchKey(host.KeyEvent{
				Key:       data.Key,
				Code:      data.Code,
				Modifiers: host.Modifiers(data.Modifiers),
				Repeat:    data.Repeat,
			})
		}
	case protocol.EventComposition:
		if data, ok := pe.Payload.(*protocol.CompositionData); ok {
			consumed = s.dispatchComposition(host.CompositionEvent{
				Phase: host.CompositionPhase(data.Phase),
				Data:  data.Data,
			})
		}
	case protocol.EventPaste:
		if data, ok := pe.Payload.(*protocol.PasteData); ok {
			consumed = s.dispatchPaste(host.PasteEvent{Text: data.Text})
		}
	case protocol.EventClick:
		if data, ok := pe.Payload.(*protocol.ClickData); ok {
			consumed = s.dispatchClick(host.ClickEvent{
				Ref:    host.NodeRef(data.Ref),
				X:      data.X,
				Y:      data.Y,
				Offset: data.Offset,
			})
		}
	}

	span.SetAttributes(attribute.Bool("event.consumed", consumed))
	if consumed {
		s.metrics.eventConsumed()
	}
}

func (s *Session) dispatchKey(ev host.KeyEvent) bool {
	for _, e := range s.handlers {
		if e.h.HandleKey(ev) {
			return true
		}
	}
	return false
}

func (s *Session) dispatchComposition(ev host.CompositionEvent) bool {
	for _, e := range s.handlers {
		if e.h.HandleComposition(ev) {
			return true
		}
	}
	return false
}

func (s *Session) dispatchPaste(ev host.PasteEvent) bool {
	for _, e := range s.handlers {
		if e.h.HandlePaste(ev) {
			return true
		}
	}
	return false
}

func (s *Session) dispatchClick(ev host.ClickEvent) bool {
	for _, e := range s.handlers {
		if e.h.HandleClick(ev) {
			return true
		}
	}
	return false
}

// --- wire output ---

func (s *Session) writeFrame(ft protocol.FrameType, payload []byte) error {
	frame, err := protocol.EncodeFrame(&protocol.Frame{Type: ft, Payload: payload})
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return err
	}
	s.metrics.frameSent(len(payload))
	return nil
}

func (s *Session) sendError(code uint64, msg string) {
	payload := protocol.EncodeWireError(&protocol.WireError{Code: code, Message: msg})
	if err := s.writeFrame(protocol.FrameError, payload); err != nil {
		s.log.Debug("remotehost: error frame write failed", "error", err)
	}
}

// flush ships buffered ops as sequenced frames and parks the
// after-frame callbacks on the last one, so they run only once the
// client has committed the whole batch. Batches whose encoding exceeds
// the frame payload limit split across as many frames as needed. An op
// too large to fit any frame on its own cannot ship at all; the
// session reports it and closes rather than let the client mirror
// drift behind the server state.
func (s *Session) flush() {
	if len(s.ops) == 0 && len(s.afterNext) == 0 {
		return
	}
	// Per-frame budget, leaving room for the batch header varints
	// (sequence number and op count).
	const budget = protocol.MaxPayloadSize - 2*protocol.MaxVarintLen

	batches := [][]protocol.Op{nil}
	size := 0
	for i := range s.ops {
		n := protocol.EncodedOpLen(&s.ops[i])
		if n > budget {
			s.log.Error("remotehost: op exceeds frame capacity",
				"code", s.ops[i].Code.String(), "size", n)
			s.ops = nil
			s.afterNext = nil
			s.sendError(protocol.ErrCodeOversized, "op exceeds frame capacity")
			s.Close()
			return
		}
		last := len(batches) - 1
		if size+n > budget && len(batches[last]) > 0 {
			batches = append(batches, nil)
			last++
			size = 0
		}
		batches[last] = append(batches[last], s.ops[i])
		size += n
	}

	after := s.afterNext
	s.ops = nil
	s.afterNext = nil

	for i, batch := range batches {
		s.seq++
		if i == len(batches)-1 {
			s.acked[s.seq] = after
		}
		if err := s.writeFrame(protocol.FrameOps, protocol.EncodeOps(s.seq, batch)); err != nil {
			s.log.Error("remotehost: ops write failed", "error", err)
			return
		}
		s.metrics.recordOps(len(batch))
	}
}
