// Package caret renders the caret overlay: it resolves a (block,
// offset) position to screen geometry through the host measurer and
// positions an absolutely-placed overlay node inside the editor
// container.
//
// Measurement can only succeed after the host has committed the render
// pass that produced the text being measured, so every move is
// deferred through a two-stage after-frame schedule. A deferred
// measurement whose target fragment has disappeared by the time it
// runs is detected by lookup and dropped as a no-op, never reported as
// an error.
package caret

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/inkwell-ui/inkwell/pkg/host"
	"github.com/inkwell-ui/inkwell/pkg/textmodel"
)

// ErrNoContainer is returned by NewPresenter when the container handle
// is not attached to the host tree. This is a hard failure: a
// presenter cannot exist without its container.
var ErrNoContainer = errors.New("caret: container not attached")

const (
	// maxRetries bounds how many times a failed measurement is
	// retried before the caret is hidden.
	maxRetries = 3

	// retryDelay is the fixed delay between measurement retries.
	retryDelay = 40 * time.Millisecond

	// maxCoordinate guards against stale or unattached measurement
	// artifacts: geometry beyond this magnitude in either axis is
	// treated as a failed measurement.
	maxCoordinate = 10000
)

// FragmentSource resolves blocks to their fragments and host anchors.
// A nil fragment or invalid anchor means the block no longer exists.
type FragmentSource interface {
	Fragment(blockID string) *textmodel.Fragment
	Anchor(blockID string) host.NodeRef
}

// Presenter owns the caret overlay for one editor container.
type Presenter struct {
	host      host.Host
	container host.NodeRef
	frags     FragmentSource
	log       *slog.Logger

	overlay host.NodeRef
	scope   host.StyleScope
	visible bool

	// gen invalidates in-flight deferred measurements: each MoveTo
	// bumps it, and a task scheduled under an older gen is stale.
	gen uint64
}

// NewPresenter creates a presenter over the given container. The
// container must already be attached; the presenter forces it to
// non-static positioning so the overlay can be placed absolutely
// within it.
func NewPresenter(h host.Host, container host.NodeRef, frags FragmentSource, logger *slog.Logger) (*Presenter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !h.Contains(container) {
		return nil, fmt.Errorf("%w: ref %d", ErrNoContainer, container)
	}

	if pos, err := h.Style(container, "position"); err == nil && (pos == "" || pos == "static") {
		h.SetStyle(container, "position", "relative")
	}

	scope := h.NewScope("inkwell-caret")
	scope.SetRule(".inkwell-caret",
		"position:absolute;width:2px;background:currentColor;pointer-events:none")

	return &Presenter{
		host:      h,
		container: container,
		frags:     frags,
		log:       logger,
		scope:     scope,
	}, nil
}

// MoveTo repositions the caret to the text boundary at offset within
// the block. The measurement is deferred two frames so the host has
// settled layout; offsets past the fragment end clamp to its length.
func (p *Presenter) MoveTo(blockID string, offset int) {
	p.gen++
	gen := p.gen
	p.host.AfterFrame(func() {
		p.host.AfterFrame(func() {
			p.measure(gen, blockID, offset, 0)
		})
	})
}

// measure is the deferred measurement task. Staleness checks run
// first: a newer MoveTo or a vanished fragment turns the task into a
// no-op.
func (p *Presenter) measure(gen uint64, blockID string, offset, retries int) {
	if gen != p.gen {
		return
	}
	frag := p.frags.Fragment(blockID)
	if frag == nil {
		return
	}
	if l := frag.Len(); offset > l {
		offset = l
	}
	if offset < 0 {
		offset = 0
	}

	anchor := p.frags.Anchor(blockID)
	rect, err := p.measureAnchor(anchor, offset)
	if err != nil {
		if retries >= maxRetries {
			p.log.Debug("caret: measurement failed, hiding",
				"block", blockID, "offset", offset, "error", err)
			p.Hide()
			return
		}
		p.host.AfterDelay(retryDelay, func() {
			p.measure(gen, blockID, offset, retries+1)
		})
		return
	}

	p.Show(rect.X, rect.Y, rect.Height)
}

func (p *Presenter) measureAnchor(anchor host.NodeRef, offset int) (host.Rect, error) {
	if !anchor.IsValid() {
		return host.Rect{}, fmt.Errorf("%w: no anchor", host.ErrMeasure)
	}
	rect, err := p.host.Measure(anchor, offset)
	if err != nil {
		return host.Rect{}, err
	}
	if degenerate(rect) {
		return host.Rect{}, fmt.Errorf("%w: degenerate geometry (%v)", host.ErrMeasure, rect)
	}
	return rect, nil
}

// degenerate reports geometry that cannot be a real caret position:
// fully zero, or implausibly far away in either axis.
func degenerate(r host.Rect) bool {
	if r.X == 0 && r.Y == 0 && r.Width == 0 && r.Height == 0 {
		return true
	}
	return math.Abs(r.X) > maxCoordinate || math.Abs(r.Y) > maxCoordinate
}

// Show positions the overlay at container-relative coordinates and
// makes it visible, creating the overlay node on first use.
func (p *Presenter) Show(x, y, height float64) {
	if !p.overlay.IsValid() || !p.host.Contains(p.overlay) {
		p.overlay = p.host.CreateElement("div")
		p.host.SetAttr(p.overlay, "class", "inkwell-caret")
		if err := p.host.InsertChild(p.container, -1, p.overlay); err != nil {
			p.log.Warn("caret: overlay insert failed", "error", err)
			p.overlay = host.None
			return
		}
	}
	p.host.SetStyle(p.overlay, "left", fmt.Sprintf("%.1fpx", x))
	p.host.SetStyle(p.overlay, "top", fmt.Sprintf("%.1fpx", y))
	p.host.SetStyle(p.overlay, "height", fmt.Sprintf("%.1fpx", height))
	p.host.SetStyle(p.overlay, "visibility", "visible")
	p.visible = true
}

// Hide disables the overlay without destroying it.
func (p *Presenter) Hide() {
	if p.overlay.IsValid() && p.host.Contains(p.overlay) {
		p.host.SetStyle(p.overlay, "visibility", "hidden")
	}
	p.visible = false
}

// Visible reports whether the caret overlay is currently shown.
func (p *Presenter) Visible() bool {
	return p.visible
}

// Destroy removes the overlay and releases the presenter's style
// scope. Pending deferred measurements become stale no-ops.
func (p *Presenter) Destroy() {
	p.gen++
	if p.overlay.IsValid() && p.host.Contains(p.overlay) {
		p.host.RemoveNode(p.overlay)
	}
	p.overlay = host.None
	p.visible = false
	p.scope.Release()
}
