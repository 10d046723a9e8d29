// Package input classifies raw host keyboard, composition, and paste
// events into normalized edit intents. The fragment/selection model is
// the single source of truth for text: every intercepted event reports
// back to the host that its default editing behavior must be
// suppressed, otherwise edits would apply twice.
package input

import (
	"unicode/utf8"

	"github.com/inkwell-ui/inkwell/pkg/host"
)

// State is the interceptor state machine.
type State uint8

const (
	// StateIdle classifies every key individually.
	StateIdle State = iota

	// StateComposing suppresses per-keystroke interception while the
	// IME assembles text; the composed result arrives atomically on
	// composition end.
	StateComposing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateComposing:
		return "Composing"
	default:
		return "Unknown"
	}
}

// controlKeys is the whitelist of non-printable keys forwarded as
// keydown intents.
var controlKeys = map[string]bool{
	"Backspace":  true,
	"Delete":     true,
	"Enter":      true,
	"ArrowLeft":  true,
	"ArrowRight": true,
	"ArrowUp":    true,
	"ArrowDown":  true,
}

// Callbacks receive normalized edit intents.
type Callbacks struct {
	// OnInput delivers text to insert at the current selection: a
	// single typed character, a full composed IME string, or a paste
	// payload.
	OnInput func(text string)

	// OnKeyDown delivers a whitelisted control key together with the
	// caret offset current at classification time.
	OnKeyDown func(ev host.KeyEvent, offset int)

	// OnClick delivers pointer presses already resolved by the host
	// to a node and offset. Returns whether the click was handled.
	OnClick func(ev host.ClickEvent) bool
}

// Interceptor is the input state machine. It subscribes to the host
// event stream and stays registered until Close.
type Interceptor struct {
	state  State
	cb     Callbacks
	offset func() int
	unsub  func()
}

// New creates an interceptor and subscribes it to the host events.
// offsetFn supplies the current caret offset for keydown intents.
func New(events host.Events, offsetFn func() int, cb Callbacks) *Interceptor {
	in := &Interceptor{
		state:  StateIdle,
		cb:     cb,
		offset: offsetFn,
	}
	in.unsub = events.Subscribe(in)
	return in
}

// State returns the current state, for tests and diagnostics.
func (in *Interceptor) State() State {
	return in.state
}

// Close unsubscribes from the host event stream.
func (in *Interceptor) Close() {
	if in.unsub != nil {
		in.unsub()
		in.unsub = nil
	}
}

// HandleKey classifies one keyboard event. The return value tells the
// host whether its default behavior must be suppressed.
func (in *Interceptor) HandleKey(ev host.KeyEvent) bool {
	if in.state == StateComposing {
		// The IME owns the keystroke stream until composition ends.
		return false
	}

	if ev.Modifiers.Has(host.ModCtrl) || ev.Modifiers.Has(host.ModMeta) || ev.Modifiers.Has(host.ModAlt) {
		// Whitelisted shortcuts (copy/cut/paste/select-all) and any
		// unknown chord both fall through to the host; paste comes
		// back as a paste event.
		return false
	}

	if controlKeys[ev.Key] {
		if in.cb.OnKeyDown != nil {
			in.cb.OnKeyDown(ev, in.offset())
		}
		return true
	}

	if printable(ev.Key) {
		if in.cb.OnInput != nil {
			in.cb.OnInput(ev.Key)
		}
		return true
	}

	return false
}

// HandleComposition drives the composing window. Interim events pass
// through untouched; the end event delivers the whole composed text as
// one input intent.
func (in *Interceptor) HandleComposition(ev host.CompositionEvent) bool {
	switch ev.Phase {
	case host.CompositionStart:
		in.state = StateComposing
		return false

	case host.CompositionUpdate:
		return false

	case host.CompositionEnd:
		in.state = StateIdle
		if ev.Data != "" && in.cb.OnInput != nil {
			in.cb.OnInput(ev.Data)
		}
		return true
	}
	return false
}

// HandlePaste intercepts paste in any state: the plain-text payload is
// forwarded as a single input intent and the host default insertion is
// suppressed.
func (in *Interceptor) HandlePaste(ev host.PasteEvent) bool {
	if ev.Text != "" && in.cb.OnInput != nil {
		in.cb.OnInput(ev.Text)
	}
	return true
}

// HandleClick forwards pointer presses; selection placement is the
// engine's concern.
func (in *Interceptor) HandleClick(ev host.ClickEvent) bool {
	if in.cb.OnClick != nil {
		return in.cb.OnClick(ev)
	}
	return false
}

// printable reports whether key is a single printable character (the
// host reports special keys as multi-rune names like "Enter").
func printable(key string) bool {
	if key == "" {
		return false
	}
	r, size := utf8.DecodeRuneInString(key)
	if size != len(key) {
		return false
	}
	return r != utf8.RuneError && r >= ' '
}
