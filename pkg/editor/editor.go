// Package editor wires the reconciler and the text-editing engine
// together: it renders block records into the host tree, owns the
// per-block fragments, and translates normalized input intents into
// fragment mutations, selection moves, and block store updates.
package editor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/inkwell-ui/inkwell/pkg/caret"
	"github.com/inkwell-ui/inkwell/pkg/host"
	"github.com/inkwell-ui/inkwell/pkg/input"
	"github.com/inkwell-ui/inkwell/pkg/selection"
	"github.com/inkwell-ui/inkwell/pkg/textmodel"
	"github.com/inkwell-ui/inkwell/pkg/vdom"
)

// ErrNoContainer is returned by New when the container handle is not
// attached to the host tree.
var ErrNoContainer = errors.New("editor: container not attached")

// Store is the port to the external block record store. The engine
// pushes text changes through it; everything else about block CRUD
// lives outside the core.
type Store interface {
	Update(blockID string, fields map[string]any) error
}

// Block is the slice of a block record the engine renders.
type Block struct {
	ID   string
	Type string
	Text string
}

type renderedBlock struct {
	blockType string
	frag      *textmodel.Fragment
	tree      *vdom.VNode
}

// Engine is the editing engine for one container. Single-threaded:
// every method must be called from the host event thread, and mutators
// must not be re-entered from selection listeners.
type Engine struct {
	host      host.Host
	container host.NodeRef
	store     Store
	log       *slog.Logger

	sel     *selection.Manager
	caret   *caret.Presenter
	applier *vdom.Applier
	interc  *input.Interceptor

	blocks map[string]*renderedBlock
	order  []string

	unsubSel func()
	onEnter  func(blockID string, offset int)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.log = logger }
}

// WithEnterHandler installs the callback for Enter presses. Splitting
// a block is block-store territory, so the engine only reports where
// the press happened.
func WithEnterHandler(fn func(blockID string, offset int)) Option {
	return func(e *Engine) { e.onEnter = fn }
}

// New creates an engine rendering into container. A detached container
// is a hard failure.
func New(h host.Host, container host.NodeRef, store Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		host:      h,
		container: container,
		store:     store,
		blocks:    make(map[string]*renderedBlock),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	if !h.Contains(container) {
		return nil, fmt.Errorf("%w: ref %d", ErrNoContainer, container)
	}

	e.sel = selection.NewManager()
	e.applier = vdom.NewApplier(h, e.log)

	pres, err := caret.NewPresenter(h, container, e, e.log)
	if err != nil {
		return nil, err
	}
	e.caret = pres

	e.unsubSel = e.sel.OnChange(func(s *selection.Selection) {
		if s == nil || !s.Collapsed {
			e.caret.Hide()
			return
		}
		e.caret.MoveTo(s.BlockID, s.Start)
	})

	return e, nil
}

// RenderBlock renders a block record into the host tree. The first
// render creates the block's fragment; later calls re-reconcile the
// existing tree. Blocks append in first-render order.
func (e *Engine) RenderBlock(b Block) error {
	blk, ok := e.blocks[b.ID]
	if !ok {
		blk = &renderedBlock{
			blockType: b.Type,
			frag:      textmodel.New(b.ID, b.Text),
		}
		e.blocks[b.ID] = blk
		e.order = append(e.order, b.ID)
	} else {
		blk.blockType = b.Type
	}
	return e.reconcile(b.ID)
}

// UpdateBlock syncs an externally changed record into the rendered
// tree. The fragment is reset only when the text actually differs, so
// a props-only update leaves caret anchoring untouched.
func (e *Engine) UpdateBlock(b Block) error {
	blk, ok := e.blocks[b.ID]
	if !ok {
		return e.RenderBlock(b)
	}
	blk.blockType = b.Type
	if blk.frag.Text() != b.Text {
		blk.frag.SetText(b.Text)
	}
	return e.reconcile(b.ID)
}

// RemoveBlock unmounts a block and drops its fragment. A selection in
// the removed block is cleared; pending caret measurements against it
// become stale no-ops.
func (e *Engine) RemoveBlock(blockID string) {
	blk, ok := e.blocks[blockID]
	if !ok {
		return
	}
	e.applier.Apply(e.container, vdom.Diff(blk.tree, nil))
	delete(e.blocks, blockID)
	for i, id := range e.order {
		if id == blockID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if s := e.sel.Get(); s != nil && s.BlockID == blockID {
		e.sel.Clear()
	}
}

// Fragment returns the live fragment for a block, or nil if the block
// is not rendered. Part of the caret presenter's staleness contract.
func (e *Engine) Fragment(blockID string) *textmodel.Fragment {
	if blk, ok := e.blocks[blockID]; ok {
		return blk.frag
	}
	return nil
}

// Anchor returns the host node the block's text is measured against.
func (e *Engine) Anchor(blockID string) host.NodeRef {
	if blk, ok := e.blocks[blockID]; ok && blk.tree != nil {
		return blk.tree.Ref
	}
	return host.None
}

// Selection returns the engine's selection manager.
func (e *Engine) Selection() *selection.Manager {
	return e.sel
}

// SetSelection sets the selection over one block; offsets normalize to
// (min, max).
func (e *Engine) SetSelection(blockID string, start, end int) {
	e.sel.Set(blockID, start, end)
}

// Caret returns the caret presenter.
func (e *Engine) Caret() *caret.Presenter {
	return e.caret
}

// SetupInputHandler subscribes the input interceptor and routes its
// intents into fragment mutations and store updates. Call once.
func (e *Engine) SetupInputHandler() {
	if e.interc != nil {
		return
	}
	e.interc = input.New(e.host, e.currentOffset, input.Callbacks{
		OnInput:   e.handleInput,
		OnKeyDown: e.handleKeyDown,
		OnClick:   e.handleClick,
	})
}

// Destroy tears the engine down: input unsubscribed, caret destroyed,
// every rendered block unmounted.
func (e *Engine) Destroy() {
	if e.interc != nil {
		e.interc.Close()
		e.interc = nil
	}
	if e.unsubSel != nil {
		e.unsubSel()
		e.unsubSel = nil
	}
	for _, id := range append([]string(nil), e.order...) {
		e.RemoveBlock(id)
	}
	e.caret.Destroy()
	e.sel.Clear()
}

// --- rendering ---

// renderTree builds the declarative tree for one block: a container
// div keyed by block id holding the fragment's run spans.
func (e *Engine) renderTree(blockID string, blk *renderedBlock) *vdom.VNode {
	props := vdom.Props{
		"data-block-id":   blockID,
		"data-block-type": blk.blockType,
		"class":           "inkwell-block",
	}
	return vdom.El("div", props, blk.frag.Render()...).WithKey(blockID)
}

// reconcile diffs the block's last tree against a fresh render and
// applies the patches.
func (e *Engine) reconcile(blockID string) error {
	blk := e.blocks[blockID]
	next := e.renderTree(blockID, blk)

	patches := vdom.Diff(blk.tree, next)
	if len(patches) > 0 {
		// Mounts and replaces land at the block's position among the
		// rendered blocks; updates ignore the index.
		patches[0].Index = e.indexOf(blockID)
	}
	e.applier.Apply(e.container, patches)
	blk.tree = next
	return nil
}

func (e *Engine) indexOf(blockID string) int {
	for i, id := range e.order {
		if id == blockID {
			return i
		}
	}
	return len(e.order)
}

// --- input intents ---

func (e *Engine) currentOffset() int {
	if s := e.sel.Get(); s != nil {
		return s.Start
	}
	return 0
}

// handleInput inserts text at the selection, replacing a non-collapsed
// range first.
func (e *Engine) handleInput(text string) {
	s := e.sel.Get()
	if s == nil {
		return
	}
	blk, ok := e.blocks[s.BlockID]
	if !ok {
		return
	}
	if !s.Collapsed {
		blk.frag.DeleteText(s.Start, s.End)
	}
	blk.frag.InsertText(s.Start, text)
	e.reconcile(s.BlockID)
	e.sel.SetCaret(s.BlockID, s.Start+len([]rune(text)))
	e.syncStore(s.BlockID)
}

func (e *Engine) handleKeyDown(ev host.KeyEvent, offset int) {
	s := e.sel.Get()
	if s == nil {
		return
	}
	blk, ok := e.blocks[s.BlockID]
	if !ok {
		return
	}

	switch ev.Key {
	case "Backspace":
		if !s.Collapsed {
			blk.frag.DeleteText(s.Start, s.End)
			e.reconcile(s.BlockID)
			e.sel.SetCaret(s.BlockID, s.Start)
			e.syncStore(s.BlockID)
		} else if s.Start > 0 {
			blk.frag.DeleteText(s.Start-1, s.Start)
			e.reconcile(s.BlockID)
			e.sel.SetCaret(s.BlockID, s.Start-1)
			e.syncStore(s.BlockID)
		}

	case "Delete":
		if !s.Collapsed {
			blk.frag.DeleteText(s.Start, s.End)
			e.reconcile(s.BlockID)
			e.sel.SetCaret(s.BlockID, s.Start)
			e.syncStore(s.BlockID)
		} else if s.Start < blk.frag.Len() {
			blk.frag.DeleteText(s.Start, s.Start+1)
			e.reconcile(s.BlockID)
			e.sel.SetCaret(s.BlockID, s.Start)
			e.syncStore(s.BlockID)
		}

	case "Enter":
		if e.onEnter != nil {
			e.onEnter(s.BlockID, offset)
		}

	case "ArrowLeft":
		if !s.Collapsed {
			e.sel.SetCaret(s.BlockID, s.Start)
		} else if s.Start > 0 {
			e.sel.SetCaret(s.BlockID, s.Start-1)
		}

	case "ArrowRight":
		if !s.Collapsed {
			e.sel.SetCaret(s.BlockID, s.End)
		} else if s.Start < blk.frag.Len() {
			e.sel.SetCaret(s.BlockID, s.Start+1)
		}

	case "ArrowUp", "ArrowDown":
		// Vertical movement needs line layout, which the core
		// delegates to the host and does not model.
	}
}

// handleClick places the caret where the host resolved a pointer
// press: the block owning the clicked node plus a rune offset.
func (e *Engine) handleClick(ev host.ClickEvent) bool {
	for id, blk := range e.blocks {
		if blk.tree != nil && blk.tree.Ref == ev.Ref {
			offset := ev.Offset
			if l := blk.frag.Len(); offset > l {
				offset = l
			}
			if offset < 0 {
				offset = 0
			}
			e.sel.SetCaret(id, offset)
			return true
		}
	}
	return false
}

func (e *Engine) syncStore(blockID string) {
	if e.store == nil {
		return
	}
	blk := e.blocks[blockID]
	if err := e.store.Update(blockID, map[string]any{"text": blk.frag.Text()}); err != nil {
		e.log.Warn("editor: store update failed", "block", blockID, "error", err)
	}
}
