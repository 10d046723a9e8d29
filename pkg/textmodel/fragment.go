// Package textmodel stores one block's text as an ordered list of runs
// and implements offset-based editing over it. Offsets are rune
// offsets: composed (IME) input and any other multi-byte text must
// never be split mid-sequence by offset arithmetic.
package textmodel

import (
	"strings"

	"github.com/google/uuid"
)

// StyleFlags mark the formatting of a run.
type StyleFlags uint8

const (
	StyleBold StyleFlags = 1 << iota
	StyleItalic
	StyleCode
)

// Run is a contiguous span of text with uniform styling.
type Run struct {
	ID    string
	Text  string
	Flags StyleFlags
}

// Fragment is one block's text: an ordered list of runs. A fragment
// always holds at least one run, even for empty text, so the host tree
// always has an anchor node to measure against.
//
// Fragments persist for the block's lifetime and are mutated in place;
// they are never rebuilt per keystroke.
type Fragment struct {
	blockID string
	runs    []Run
}

// New creates a fragment for a block with its initial text.
func New(blockID, text string) *Fragment {
	f := &Fragment{blockID: blockID}
	f.reset(text)
	return f
}

// BlockID returns the owning block's id.
func (f *Fragment) BlockID() string {
	return f.blockID
}

// Text returns the concatenation of all run texts.
func (f *Fragment) Text() string {
	if len(f.runs) == 1 {
		return f.runs[0].Text
	}
	var sb strings.Builder
	for i := range f.runs {
		sb.WriteString(f.runs[i].Text)
	}
	return sb.String()
}

// Len returns the text length in runes.
func (f *Fragment) Len() int {
	n := 0
	for i := range f.runs {
		n += len([]rune(f.runs[i].Text))
	}
	return n
}

// Runs returns a copy of the run list.
func (f *Fragment) Runs() []Run {
	out := make([]Run, len(f.runs))
	copy(out, f.runs)
	return out
}

// SetText destructively resets the fragment to a single run holding s.
// An empty s leaves the sentinel empty run.
func (f *Fragment) SetText(s string) {
	f.reset(s)
}

// InsertText inserts s at the given rune offset. An offset outside
// [0, Len()] is a precondition violation and a silent no-op.
func (f *Fragment) InsertText(offset int, s string) {
	runes := []rune(f.Text())
	if offset < 0 || offset > len(runes) {
		return
	}
	if s == "" {
		return
	}
	before := string(runes[:offset])
	after := string(runes[offset:])
	f.rebuild(before, s, after)
}

// DeleteText removes the rune range [start, end). Out-of-range or
// inverted bounds are a precondition violation and a silent no-op.
func (f *Fragment) DeleteText(start, end int) {
	runes := []rune(f.Text())
	if start < 0 || end < start || end > len(runes) {
		return
	}
	if start == end {
		return
	}
	f.rebuild(string(runes[:start]), "", string(runes[end:]))
}

// reset replaces all runs with a single run (or the empty sentinel).
func (f *Fragment) reset(text string) {
	f.runs = []Run{{ID: newRunID(), Text: text}}
}

// rebuild reassembles the run list from the non-empty pieces, keeping
// the at-least-one-run invariant. Run ids regenerate wholesale on
// every mutation; there is no structural reuse across edits.
func (f *Fragment) rebuild(pieces ...string) {
	var runs []Run
	for _, p := range pieces {
		if p == "" {
			continue
		}
		runs = append(runs, Run{ID: newRunID(), Text: p})
	}
	if len(runs) == 0 {
		runs = []Run{{ID: newRunID(), Text: ""}}
	}
	f.runs = runs
}

func newRunID() string {
	return "run-" + uuid.NewString()
}
