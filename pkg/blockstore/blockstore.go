// Package blockstore is the reference block record store: ordered CRUD
// over typed block records. The editor core depends only on the narrow
// editor.Store port; this implementation exists for the demo server
// and for tests.
package blockstore

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned for operations against an unknown block id.
var ErrNotFound = errors.New("blockstore: block not found")

// Record is one block: an id, a type tag, the block's plain text, and
// type-specific properties.
type Record struct {
	ID    string
	Type  string
	Text  string
	Props map[string]any
}

// Store holds an ordered list of block records. Like the editor core
// it is single-goroutine: callers own the event thread.
type Store struct {
	order []string
	byID  map[string]*Record
}

// New creates an empty store.
func New() *Store {
	return &Store{byID: make(map[string]*Record)}
}

// List returns the records in order.
func (s *Store) List() []Record {
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Get returns a copy of one record.
func (s *Store) Get(id string) (Record, bool) {
	r, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Add appends a new block of the given type and returns its record.
func (s *Store) Add(blockType, text string) Record {
	r := &Record{
		ID:    "blk-" + uuid.NewString(),
		Type:  blockType,
		Text:  text,
		Props: make(map[string]any),
	}
	s.byID[r.ID] = r
	s.order = append(s.order, r.ID)
	return *r
}

// Insert places a new block at the given position in the order.
func (s *Store) Insert(index int, blockType, text string) Record {
	r := s.Add(blockType, text)
	if index < 0 || index >= len(s.order)-1 {
		return r
	}
	last := len(s.order) - 1
	id := s.order[last]
	copy(s.order[index+1:], s.order[index:last])
	s.order[index] = id
	return r
}

// Update applies field updates to a record. Recognized fields: "text"
// (string) and "type" (string); anything else lands in Props.
func (s *Store) Update(blockID string, fields map[string]any) error {
	r, ok := s.byID[blockID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, blockID)
	}
	for k, v := range fields {
		switch k {
		case "text":
			if t, ok := v.(string); ok {
				r.Text = t
			}
		case "type":
			if t, ok := v.(string); ok {
				r.Type = t
			}
		default:
			r.Props[k] = v
		}
	}
	return nil
}

// Remove deletes a record.
func (s *Store) Remove(blockID string) error {
	if _, ok := s.byID[blockID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, blockID)
	}
	delete(s.byID, blockID)
	for i, id := range s.order {
		if id == blockID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
