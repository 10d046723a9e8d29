package textmodel

import "github.com/inkwell-ui/inkwell/pkg/vdom"

// Render builds the declarative subtree for the run list: one span per
// run carrying the run id, each holding a single text node. Run ids
// regenerate on every mutation, so each edit shows up in the diff as
// id prop edits and text updates across the whole run list.
func (f *Fragment) Render() []*vdom.VNode {
	children := make([]*vdom.VNode, len(f.runs))
	for i := range f.runs {
		run := &f.runs[i]
		props := vdom.Props{"data-run-id": run.ID}
		if style := run.Flags.styleValue(); len(style) > 0 {
			props["style"] = style
		}
		children[i] = vdom.El("span", props, vdom.Text(run.Text))
	}
	return children
}

func (s StyleFlags) styleValue() vdom.Style {
	style := vdom.Style{}
	if s&StyleBold != 0 {
		style["font-weight"] = "bold"
	}
	if s&StyleItalic != 0 {
		style["font-style"] = "italic"
	}
	if s&StyleCode != 0 {
		style["font-family"] = "monospace"
	}
	return style
}
