package editor

import (
	"errors"
	"testing"

	"github.com/inkwell-ui/inkwell/pkg/host"
	"github.com/inkwell-ui/inkwell/pkg/host/hostmem"
)

type fakeStore struct {
	updates []map[string]any
	blocks  []string
	err     error
}

func (s *fakeStore) Update(blockID string, fields map[string]any) error {
	s.blocks = append(s.blocks, blockID)
	s.updates = append(s.updates, fields)
	return s.err
}

func setup(t *testing.T) (*hostmem.Host, *Engine, *fakeStore, host.NodeRef) {
	t.Helper()
	h := hostmem.New()
	container := h.CreateElement("div")
	if err := h.InsertChild(h.Root(), -1, container); err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{}
	e, err := New(h, container, store)
	if err != nil {
		t.Fatal(err)
	}
	return h, e, store, container
}

func TestNewRequiresAttachedContainer(t *testing.T) {
	h := hostmem.New()
	detached := h.CreateElement("div")

	_, err := New(h, detached, nil)
	if !errors.Is(err, ErrNoContainer) {
		t.Errorf("err = %v, want ErrNoContainer", err)
	}
}

func TestRenderBlockMountsRunSpans(t *testing.T) {
	h, e, _, container := setup(t)

	if err := e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "hello"}); err != nil {
		t.Fatal(err)
	}

	kids := h.Children(container)
	if len(kids) != 1 {
		t.Fatalf("Container has %d children, want 1", len(kids))
	}
	blockRef := kids[0]
	if id, _ := h.Attr(blockRef, "data-block-id"); id != "b1" {
		t.Errorf("data-block-id = %q, want b1", id)
	}
	if bt, _ := h.Attr(blockRef, "data-block-type"); bt != "paragraph" {
		t.Errorf("data-block-type = %q, want paragraph", bt)
	}
	if got := h.TextContent(blockRef); got != "hello" {
		t.Errorf("TextContent = %q, want hello", got)
	}
	spans := h.Children(blockRef)
	if len(spans) != 1 || h.Tag(spans[0]) != "span" {
		t.Errorf("Block children = %d %q, want one span per run", len(spans), h.Tag(spans[0]))
	}
	if _, ok := h.Attr(spans[0], "data-run-id"); !ok {
		t.Errorf("Run span missing data-run-id")
	}
}

func TestRenderBlocksAppendInOrder(t *testing.T) {
	h, e, _, container := setup(t)

	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "one"})
	e.RenderBlock(Block{ID: "b2", Type: "paragraph", Text: "two"})

	kids := h.Children(container)
	if len(kids) != 2 {
		t.Fatalf("Container has %d children, want 2", len(kids))
	}
	if got := h.TextContent(kids[0]); got != "one" {
		t.Errorf("First block = %q, want one", got)
	}
	if got := h.TextContent(kids[1]); got != "two" {
		t.Errorf("Second block = %q, want two", got)
	}
}

func TestUpdateBlockSyncsChangedText(t *testing.T) {
	h, e, _, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "old"})

	if err := e.UpdateBlock(Block{ID: "b1", Type: "paragraph", Text: "new"}); err != nil {
		t.Fatal(err)
	}

	if got := h.TextContent(container); got != "new" {
		t.Errorf("TextContent = %q, want new", got)
	}
}

func TestUpdateBlockSameTextKeepsFragment(t *testing.T) {
	_, e, _, _ := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "same"})
	before := e.Fragment("b1").Runs()[0].ID

	e.UpdateBlock(Block{ID: "b1", Type: "heading", Text: "same"})

	if after := e.Fragment("b1").Runs()[0].ID; after != before {
		t.Errorf("Run id changed on a props-only update; fragment must be untouched")
	}
}

func TestRemoveBlockUnmountsAndClearsSelection(t *testing.T) {
	h, e, _, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "one"})
	e.RenderBlock(Block{ID: "b2", Type: "paragraph", Text: "two"})
	e.SetSelection("b1", 0, 0)

	e.RemoveBlock("b1")

	kids := h.Children(container)
	if len(kids) != 1 || h.TextContent(kids[0]) != "two" {
		t.Errorf("Container = %q, want only the second block", h.TextContent(container))
	}
	if s := e.Selection().Get(); s != nil {
		t.Errorf("Selection = %+v after its block was removed, want nil", s)
	}
	if e.Fragment("b1") != nil {
		t.Errorf("Fragment still resolvable after removal")
	}
	if e.Anchor("b1").IsValid() {
		t.Errorf("Anchor still resolvable after removal")
	}
}

func TestRemoveBlockKeepsOtherSelection(t *testing.T) {
	_, e, _, _ := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "one"})
	e.RenderBlock(Block{ID: "b2", Type: "paragraph", Text: "two"})
	e.SetSelection("b2", 1, 1)

	e.RemoveBlock("b1")

	if s := e.Selection().Get(); s == nil || s.BlockID != "b2" {
		t.Errorf("Selection = %+v, want kept in b2", s)
	}
}

func TestTypingInsertsAtCaret(t *testing.T) {
	h, e, store, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "helo"})
	e.SetupInputHandler()
	e.SetSelection("b1", 2, 2)

	if !h.DispatchKey(host.KeyEvent{Key: "l"}) {
		t.Fatal("Printable key not consumed")
	}

	if got := h.TextContent(container); got != "hello" {
		t.Errorf("TextContent = %q, want hello", got)
	}
	if s := e.Selection().Get(); s == nil || s.Start != 3 || !s.Collapsed {
		t.Errorf("Selection = %+v, want collapsed at 3", s)
	}
	if len(store.updates) != 1 || store.updates[0]["text"] != "hello" {
		t.Errorf("Store updates = %v, want one with text hello", store.updates)
	}
}

func TestTypingReplacesRangeSelection(t *testing.T) {
	h, e, _, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "hello world"})
	e.SetupInputHandler()
	e.SetSelection("b1", 6, 11)

	h.DispatchKey(host.KeyEvent{Key: "x"})

	if got := h.TextContent(container); got != "hello x" {
		t.Errorf("TextContent = %q, want %q", got, "hello x")
	}
	if s := e.Selection().Get(); s == nil || s.Start != 7 {
		t.Errorf("Selection = %+v, want collapsed at 7", s)
	}
}

func TestPasteInsertsWholePayload(t *testing.T) {
	h, e, _, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "ab"})
	e.SetupInputHandler()
	e.SetSelection("b1", 1, 1)

	h.DispatchPaste(host.PasteEvent{Text: "XYZ"})

	if got := h.TextContent(container); got != "aXYZb" {
		t.Errorf("TextContent = %q, want aXYZb", got)
	}
	if s := e.Selection().Get(); s == nil || s.Start != 4 {
		t.Errorf("Selection = %+v, want collapsed at 4", s)
	}
}

func TestCompositionInsertsComposedText(t *testing.T) {
	h, e, _, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: ""})
	e.SetupInputHandler()
	e.SetSelection("b1", 0, 0)

	h.DispatchComposition(host.CompositionEvent{Phase: host.CompositionStart})
	h.DispatchComposition(host.CompositionEvent{Phase: host.CompositionUpdate, Data: "日"})
	h.DispatchComposition(host.CompositionEvent{Phase: host.CompositionEnd, Data: "日本語"})

	if got := h.TextContent(container); got != "日本語" {
		t.Errorf("TextContent = %q, want 日本語", got)
	}
	if s := e.Selection().Get(); s == nil || s.Start != 3 {
		t.Errorf("Selection = %+v, want collapsed at 3 runes", s)
	}
}

func TestBackspace(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end int
		wantText   string
		wantCaret  int
	}{
		{"deletes previous rune", "abc", 2, 2, "ac", 1},
		{"at start is a no-op", "abc", 0, 0, "abc", 0},
		{"deletes range", "hello world", 5, 11, "hello", 5},
		{"unicode rune", "日本語", 2, 2, "日語", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e, _, container := setup(t)
			e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: tt.text})
			e.SetupInputHandler()
			e.SetSelection("b1", tt.start, tt.end)

			h.DispatchKey(host.KeyEvent{Key: "Backspace"})

			if got := h.TextContent(container); got != tt.wantText {
				t.Errorf("TextContent = %q, want %q", got, tt.wantText)
			}
			s := e.Selection().Get()
			if s == nil || s.Start != tt.wantCaret || !s.Collapsed {
				t.Errorf("Selection = %+v, want collapsed at %d", s, tt.wantCaret)
			}
		})
	}
}

func TestDeleteKey(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end int
		wantText   string
		wantCaret  int
	}{
		{"deletes next rune", "abc", 1, 1, "ac", 1},
		{"at end is a no-op", "abc", 3, 3, "abc", 3},
		{"deletes range", "hello world", 0, 6, "world", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e, _, container := setup(t)
			e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: tt.text})
			e.SetupInputHandler()
			e.SetSelection("b1", tt.start, tt.end)

			h.DispatchKey(host.KeyEvent{Key: "Delete"})

			if got := h.TextContent(container); got != tt.wantText {
				t.Errorf("TextContent = %q, want %q", got, tt.wantText)
			}
			if s := e.Selection().Get(); s == nil || s.Start != tt.wantCaret {
				t.Errorf("Selection = %+v, want caret at %d", s, tt.wantCaret)
			}
		})
	}
}

func TestArrowKeys(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		start, end int
		wantCaret  int
	}{
		{"left moves back", "ArrowLeft", 2, 2, 1},
		{"left clamps at start", "ArrowLeft", 0, 0, 0},
		{"left collapses range to start", "ArrowLeft", 1, 3, 1},
		{"right moves forward", "ArrowRight", 2, 2, 3},
		{"right clamps at end", "ArrowRight", 5, 5, 5},
		{"right collapses range to end", "ArrowRight", 1, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, e, _, _ := setup(t)
			e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "hello"})
			e.SetupInputHandler()
			e.SetSelection("b1", tt.start, tt.end)

			h.DispatchKey(host.KeyEvent{Key: tt.key})

			s := e.Selection().Get()
			if s == nil || s.Start != tt.wantCaret || !s.Collapsed {
				t.Errorf("Selection = %+v, want collapsed at %d", s, tt.wantCaret)
			}
		})
	}
}

func TestEnterReportsToHandler(t *testing.T) {
	h := hostmem.New()
	container := h.CreateElement("div")
	h.InsertChild(h.Root(), -1, container)

	var gotBlock string
	var gotOffset int
	e, err := New(h, container, nil, WithEnterHandler(func(blockID string, offset int) {
		gotBlock, gotOffset = blockID, offset
	}))
	if err != nil {
		t.Fatal(err)
	}
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "hello"})
	e.SetupInputHandler()
	e.SetSelection("b1", 3, 3)

	h.DispatchKey(host.KeyEvent{Key: "Enter"})

	if gotBlock != "b1" || gotOffset != 3 {
		t.Errorf("Enter reported (%q, %d), want (b1, 3)", gotBlock, gotOffset)
	}
}

func TestClickPlacesCaret(t *testing.T) {
	h, e, _, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "hello"})
	e.SetupInputHandler()

	blockRef := h.Children(container)[0]
	if !h.DispatchClick(host.ClickEvent{Ref: blockRef, Offset: 4}) {
		t.Fatal("Click on a rendered block not handled")
	}

	s := e.Selection().Get()
	if s == nil || s.BlockID != "b1" || s.Start != 4 || !s.Collapsed {
		t.Errorf("Selection = %+v, want collapsed at b1:4", s)
	}
}

func TestClickClampsOffset(t *testing.T) {
	h, e, _, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "ab"})
	e.SetupInputHandler()

	blockRef := h.Children(container)[0]
	h.DispatchClick(host.ClickEvent{Ref: blockRef, Offset: 50})

	if s := e.Selection().Get(); s == nil || s.Start != 2 {
		t.Errorf("Selection = %+v, want clamped to 2", s)
	}
}

func TestClickOutsideBlocksUnhandled(t *testing.T) {
	h, e, _, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "ab"})
	e.SetupInputHandler()

	if h.DispatchClick(host.ClickEvent{Ref: container, Offset: 0}) {
		t.Errorf("Click on the container itself was handled")
	}
}

func TestTypingWithoutSelectionIsIgnored(t *testing.T) {
	h, e, store, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "ab"})
	e.SetupInputHandler()

	h.DispatchKey(host.KeyEvent{Key: "x"})

	if got := h.TextContent(container); got != "ab" {
		t.Errorf("TextContent = %q, want ab unchanged", got)
	}
	if len(store.updates) != 0 {
		t.Errorf("Store updates = %v, want none", store.updates)
	}
}

func TestCollapsedSelectionShowsCaret(t *testing.T) {
	h, e, _, _ := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "hello"})

	e.SetSelection("b1", 2, 2)
	h.PumpFrames(2)

	if !e.Caret().Visible() {
		t.Errorf("Caret hidden for a collapsed selection")
	}
}

func TestRangeSelectionHidesCaret(t *testing.T) {
	h, e, _, _ := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "hello"})

	e.SetSelection("b1", 2, 2)
	h.PumpFrames(2)
	e.SetSelection("b1", 1, 4)
	h.Settle()

	if e.Caret().Visible() {
		t.Errorf("Caret visible for a range selection")
	}
}

func TestStoreErrorDoesNotBlockEditing(t *testing.T) {
	h, e, store, container := setup(t)
	store.err = errors.New("backend down")
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "a"})
	e.SetupInputHandler()
	e.SetSelection("b1", 1, 1)

	h.DispatchKey(host.KeyEvent{Key: "b"})

	if got := h.TextContent(container); got != "ab" {
		t.Errorf("TextContent = %q, want ab despite store failure", got)
	}
}

func TestDestroy(t *testing.T) {
	h, e, _, container := setup(t)
	e.RenderBlock(Block{ID: "b1", Type: "paragraph", Text: "hello"})
	e.SetupInputHandler()
	e.SetSelection("b1", 1, 1)

	e.Destroy()
	h.Settle()

	if n := len(h.Children(container)); n != 0 {
		t.Errorf("Container has %d children after Destroy, want 0", n)
	}
	if h.DispatchKey(host.KeyEvent{Key: "x"}) {
		t.Errorf("Input still consumed after Destroy")
	}
	if e.Caret().Visible() {
		t.Errorf("Caret still visible after Destroy")
	}
}
