package caret

import (
	"errors"
	"testing"
	"time"

	"github.com/inkwell-ui/inkwell/pkg/host"
	"github.com/inkwell-ui/inkwell/pkg/host/hostmem"
	"github.com/inkwell-ui/inkwell/pkg/textmodel"
)

type fakeSource struct {
	frags   map[string]*textmodel.Fragment
	anchors map[string]host.NodeRef
}

func (s *fakeSource) Fragment(blockID string) *textmodel.Fragment {
	return s.frags[blockID]
}

func (s *fakeSource) Anchor(blockID string) host.NodeRef {
	return s.anchors[blockID]
}

// setup builds a host with a container div and one text block "b1"
// holding the given text, plus a presenter over it.
func setup(t *testing.T, text string) (*hostmem.Host, *Presenter, *fakeSource, host.NodeRef) {
	t.Helper()
	h := hostmem.New()

	container := h.CreateElement("div")
	if err := h.InsertChild(h.Root(), -1, container); err != nil {
		t.Fatal(err)
	}

	block := h.CreateElement("div")
	txt := h.CreateText(text)
	h.InsertChild(block, -1, txt)
	h.InsertChild(container, -1, block)

	src := &fakeSource{
		frags:   map[string]*textmodel.Fragment{"b1": textmodel.New("b1", text)},
		anchors: map[string]host.NodeRef{"b1": block},
	}

	p, err := NewPresenter(h, container, src, nil)
	if err != nil {
		t.Fatal(err)
	}
	return h, p, src, container
}

// overlayRef finds the caret overlay node under the container.
func overlayRef(h *hostmem.Host, container host.NodeRef) host.NodeRef {
	for _, c := range h.Children(container) {
		if class, ok := h.Attr(c, "class"); ok && class == "inkwell-caret" {
			return c
		}
	}
	return host.None
}

func style(t *testing.T, h *hostmem.Host, ref host.NodeRef, prop string) string {
	t.Helper()
	v, err := h.Style(ref, prop)
	if err != nil {
		t.Fatalf("Style(%s): %v", prop, err)
	}
	return v
}

func TestNewPresenterRequiresAttachedContainer(t *testing.T) {
	h := hostmem.New()
	detached := h.CreateElement("div") // never inserted

	_, err := NewPresenter(h, detached, &fakeSource{}, nil)
	if !errors.Is(err, ErrNoContainer) {
		t.Errorf("err = %v, want ErrNoContainer", err)
	}
}

func TestNewPresenterForcesContainerPositioning(t *testing.T) {
	h, _, _, container := setup(t, "x")
	if got := style(t, h, container, "position"); got != "relative" {
		t.Errorf("position = %q, want relative", got)
	}
}

func TestNewPresenterKeepsExplicitPositioning(t *testing.T) {
	h := hostmem.New()
	container := h.CreateElement("div")
	h.InsertChild(h.Root(), -1, container)
	h.SetStyle(container, "position", "absolute")

	if _, err := NewPresenter(h, container, &fakeSource{}, nil); err != nil {
		t.Fatal(err)
	}
	if got := style(t, h, container, "position"); got != "absolute" {
		t.Errorf("position = %q, want absolute preserved", got)
	}
}

func TestNewPresenterInstallsStyleRule(t *testing.T) {
	h, _, _, _ := setup(t, "x")
	if _, ok := h.Rule("inkwell-caret", ".inkwell-caret"); !ok {
		t.Errorf("Caret style rule not installed")
	}
}

func TestMoveToDefersTwoFrames(t *testing.T) {
	h, p, _, container := setup(t, "hello")

	p.MoveTo("b1", 5)
	if p.Visible() {
		t.Fatal("Visible before any frame")
	}
	h.PumpFrame()
	if p.Visible() {
		t.Fatal("Visible after one frame; measurement defers two")
	}
	h.PumpFrame()

	if !p.Visible() {
		t.Fatal("Not visible after two frames")
	}
	overlay := overlayRef(h, container)
	if !overlay.IsValid() {
		t.Fatal("No overlay node under container")
	}
	// GlyphWidth 8 * offset 5.
	if got := style(t, h, overlay, "left"); got != "40.0px" {
		t.Errorf("left = %q, want 40.0px", got)
	}
	if got := style(t, h, overlay, "height"); got != "16.0px" {
		t.Errorf("height = %q, want 16.0px", got)
	}
	if got := style(t, h, overlay, "visibility"); got != "visible" {
		t.Errorf("visibility = %q, want visible", got)
	}
}

func TestMoveToClampsOffsetPastFragmentEnd(t *testing.T) {
	h, p, _, container := setup(t, "hi")

	p.MoveTo("b1", 99)
	h.PumpFrames(2)

	overlay := overlayRef(h, container)
	if got := style(t, h, overlay, "left"); got != "16.0px" {
		t.Errorf("left = %q, want 16.0px (clamped to 2 runes)", got)
	}
}

func TestMeasureFailureRetriesAfterDelay(t *testing.T) {
	h, p, _, _ := setup(t, "hello")
	h.FailNext = 1

	p.MoveTo("b1", 3)
	h.PumpFrames(2)
	if p.Visible() {
		t.Fatal("Visible despite failed measurement")
	}

	h.Advance(40 * time.Millisecond)
	if !p.Visible() {
		t.Fatal("Not visible after retry succeeded")
	}
	if got := len(h.MeasureLog); got != 2 {
		t.Errorf("Measured %d times, want 2", got)
	}
}

func TestMeasureSucceedsOnLastRetry(t *testing.T) {
	h, p, _, _ := setup(t, "hello")
	h.FailNext = 3

	p.MoveTo("b1", 1)
	h.PumpFrames(2)
	for i := 0; i < 3; i++ {
		h.Advance(40 * time.Millisecond)
	}

	if !p.Visible() {
		t.Fatal("Not visible; fourth attempt should have succeeded")
	}
	if got := len(h.MeasureLog); got != 4 {
		t.Errorf("Measured %d times, want 4", got)
	}
}

func TestMeasureHidesAfterRetriesExhausted(t *testing.T) {
	h, p, _, _ := setup(t, "hello")
	h.FailNext = 10

	p.MoveTo("b1", 1)
	h.PumpFrames(2)
	for i := 0; i < 5; i++ {
		h.Advance(40 * time.Millisecond)
	}

	if p.Visible() {
		t.Fatal("Visible despite every measurement failing")
	}
	// One initial attempt plus three retries, then give up.
	if got := len(h.MeasureLog); got != 4 {
		t.Errorf("Measured %d times, want 4", got)
	}
}

func TestDegenerateGeometryTreatedAsFailure(t *testing.T) {
	h, p, _, _ := setup(t, "hello")
	h.DegenerateNext = 10

	p.MoveTo("b1", 1)
	h.PumpFrames(2)
	for i := 0; i < 5; i++ {
		h.Advance(40 * time.Millisecond)
	}

	if p.Visible() {
		t.Fatal("Visible despite all-zero geometry")
	}
}

func TestStaleMeasurementIsDropped(t *testing.T) {
	h, p, src, _ := setup(t, "hello")

	p.MoveTo("b1", 2)
	delete(src.frags, "b1") // block removed before the deferred task runs
	h.PumpFrames(2)

	if p.Visible() {
		t.Fatal("Visible for a vanished fragment")
	}
	if got := len(h.MeasureLog); got != 0 {
		t.Errorf("Measured %d times for a vanished fragment, want 0", got)
	}
}

func TestNewerMoveToInvalidatesOlder(t *testing.T) {
	h, p, _, container := setup(t, "hello")

	p.MoveTo("b1", 1)
	p.MoveTo("b1", 3)
	h.PumpFrames(2)

	overlay := overlayRef(h, container)
	if got := style(t, h, overlay, "left"); got != "24.0px" {
		t.Errorf("left = %q, want 24.0px from the newer move", got)
	}
	if got := len(h.MeasureLog); got != 1 {
		t.Errorf("Measured %d times, want 1 (stale task dropped)", got)
	}
}

func TestHide(t *testing.T) {
	h, p, _, container := setup(t, "hello")

	p.MoveTo("b1", 1)
	h.PumpFrames(2)
	p.Hide()

	if p.Visible() {
		t.Fatal("Visible after Hide")
	}
	overlay := overlayRef(h, container)
	if got := style(t, h, overlay, "visibility"); got != "hidden" {
		t.Errorf("visibility = %q, want hidden", got)
	}
}

func TestDestroyRemovesOverlayAndScope(t *testing.T) {
	h, p, _, container := setup(t, "hello")

	p.MoveTo("b1", 1)
	h.PumpFrames(2)
	p.Destroy()

	if overlayRef(h, container).IsValid() {
		t.Errorf("Overlay still attached after Destroy")
	}
	if _, ok := h.Rule("inkwell-caret", ".inkwell-caret"); ok {
		t.Errorf("Style scope still installed after Destroy")
	}
}

func TestDestroyStalesPendingMeasurements(t *testing.T) {
	h, p, _, _ := setup(t, "hello")

	p.MoveTo("b1", 1)
	p.Destroy()
	h.PumpFrames(2)

	if p.Visible() {
		t.Fatal("Visible after Destroy")
	}
	if got := len(h.MeasureLog); got != 0 {
		t.Errorf("Measured %d times after Destroy, want 0", got)
	}
}
