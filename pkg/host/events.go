package host

// Modifiers is a bitmask of active modifier keys.
type Modifiers uint8

const (
	ModCtrl Modifiers = 1 << iota
	ModShift
	ModAlt
	ModMeta
)

// Has returns true if the mask contains the given modifier.
func (m Modifiers) Has(mod Modifiers) bool {
	return m&mod != 0
}

// KeyEvent is a raw keyboard event from the host.
type KeyEvent struct {
	Key       string // Logical key value ("a", "Enter", "Backspace")
	Code      string // Physical key code ("KeyA", "Enter")
	Modifiers Modifiers
	Repeat    bool
}

// CompositionPhase identifies the stage of an IME composition.
type CompositionPhase uint8

const (
	CompositionStart CompositionPhase = iota
	CompositionUpdate
	CompositionEnd
)

// String returns the string representation of the phase.
func (p CompositionPhase) String() string {
	switch p {
	case CompositionStart:
		return "Start"
	case CompositionUpdate:
		return "Update"
	case CompositionEnd:
		return "End"
	default:
		return "Unknown"
	}
}

// CompositionEvent is a raw IME composition event. Data carries the
// text composed so far; on CompositionEnd it is the final text.
type CompositionEvent struct {
	Phase CompositionPhase
	Data  string
}

// PasteEvent carries the plain-text payload of a paste. Rich formats
// are discarded by the host adapter before the event reaches the core.
type PasteEvent struct {
	Text string
}

// ClickEvent is a pointer press resolved by the host to a node and,
// when the node carries text, a rune offset within it.
type ClickEvent struct {
	Ref    NodeRef
	X, Y   float64
	Offset int
}

// EventHandler receives raw host events. Each method returns true when
// the event was intercepted and the host must suppress its default
// behavior for it.
type EventHandler interface {
	HandleKey(ev KeyEvent) bool
	HandleComposition(ev CompositionEvent) bool
	HandlePaste(ev PasteEvent) bool
	HandleClick(ev ClickEvent) bool
}
