// Package selection tracks the single logical cursor/selection of the
// editor and notifies observers when it moves.
package selection

// Selection is a host-independent cursor or range over one block's
// text. Start and End are rune offsets, always normalized Start <= End.
type Selection struct {
	BlockID   string
	Start     int
	End       int
	Collapsed bool
}

type listener struct {
	id uint64
	fn func(*Selection)
}

// Manager owns the current selection. Listeners fire synchronously in
// registration order on every Set and Clear; mutating the manager from
// inside a listener has undefined ordering and must be avoided.
type Manager struct {
	cur       *Selection
	nextID    uint64
	listeners []listener
}

// NewManager creates an empty selection manager.
func NewManager() *Manager {
	return &Manager{}
}

// Set replaces the selection. Offsets may arrive in either order; they
// normalize to (min, max), and Collapsed derives from their equality.
func (m *Manager) Set(blockID string, start, end int) {
	if end < start {
		start, end = end, start
	}
	m.cur = &Selection{
		BlockID:   blockID,
		Start:     start,
		End:       end,
		Collapsed: start == end,
	}
	m.notify()
}

// SetCaret collapses the selection to a single offset.
func (m *Manager) SetCaret(blockID string, offset int) {
	m.Set(blockID, offset, offset)
}

// Get returns a copy of the current selection, or nil if unset.
func (m *Manager) Get() *Selection {
	if m.cur == nil {
		return nil
	}
	cp := *m.cur
	return &cp
}

// Clear unsets the selection.
func (m *Manager) Clear() {
	m.cur = nil
	m.notify()
}

// OnChange registers a listener and returns its unsubscribe function.
// The listener receives a copy of the new selection, or nil on Clear.
func (m *Manager) OnChange(fn func(*Selection)) func() {
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) notify() {
	for _, l := range m.listeners {
		l.fn(m.Get())
	}
}
