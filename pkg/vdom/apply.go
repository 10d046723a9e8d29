package vdom

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/inkwell-ui/inkwell/pkg/host"
)

// Applier applies patch sets against a host tree.
type Applier struct {
	host host.Tree
	log  *slog.Logger
}

// NewApplier creates an applier over the given host tree. A nil logger
// falls back to slog.Default.
func NewApplier(h host.Tree, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{host: h, log: logger}
}

// Apply executes the patches under parent and returns the host handle
// of the resulting root node (None when the root was deleted).
//
// Application is not transactional: every patch is applied
// independently, in order. A patch that targets a handle no longer
// attached to the host tree is skipped with a warning and the
// remaining patches proceed; nothing is retried or rolled back.
func (a *Applier) Apply(parent host.NodeRef, patches []Patch) host.NodeRef {
	root := host.None
	for i := range patches {
		if ref := a.applyPatch(parent, &patches[i]); ref.IsValid() {
			root = ref
		}
	}
	return root
}

func (a *Applier) applyPatch(parent host.NodeRef, p *Patch) host.NodeRef {
	switch p.Kind {
	case PatchCreate:
		a.mount(parent, p.Index, p.New)
		return p.New.Ref

	case PatchUpdate:
		if !a.attached(p) {
			return host.None
		}
		a.applyUpdate(p)
		return p.New.Ref

	case PatchDelete:
		if !a.attached(p) {
			return host.None
		}
		if err := a.host.RemoveNode(p.Old.Ref); err != nil {
			a.warn("remove failed", p, err)
		}
		return host.None

	case PatchReplace:
		if !a.attached(p) {
			return host.None
		}
		if err := a.host.RemoveNode(p.Old.Ref); err != nil {
			a.warn("remove failed", p, err)
		}
		a.mount(parent, p.Index, p.New)
		return p.New.Ref
	}
	return host.None
}

// applyUpdate mutates a matched node in place: attribute edits, text
// sync for text nodes, then child patches under the carried-over ref.
func (a *Applier) applyUpdate(p *Patch) {
	ref := p.Old.Ref
	p.New.Ref = ref

	for _, edit := range p.Props {
		if edit.Key == "style" {
			a.applyStyleEdit(ref, p, edit)
			continue
		}
		if err := a.applyPropEdit(ref, edit); err != nil {
			a.warn("prop edit failed", p, err)
		}
	}

	if p.Old.Kind == KindText && p.Old.Text != p.New.Text {
		if err := a.host.SetText(ref, p.New.Text); err != nil {
			a.warn("set text failed", p, err)
		}
	}

	for i := range p.Child {
		a.applyPatch(ref, &p.Child[i])
	}
}

// applyStyleEdit syncs inline styles to the new style map. Properties
// the previous render set that the new map no longer carries are
// cleared on the host; a removed style prop clears all of them.
func (a *Applier) applyStyleEdit(ref host.NodeRef, p *Patch, edit PropEdit) {
	old, _ := p.Old.Props["style"].(Style)
	next, _ := edit.Value.(Style) // nil when the prop was removed
	for prop := range old {
		if _, keep := next[prop]; keep {
			continue
		}
		if err := a.host.SetStyle(ref, prop, ""); err != nil {
			a.warn("style clear failed", p, err)
		}
	}
	for prop, val := range next {
		if err := a.host.SetStyle(ref, prop, val); err != nil {
			a.warn("prop edit failed", p, err)
		}
	}
}

func (a *Applier) applyPropEdit(ref host.NodeRef, edit PropEdit) error {
	if edit.Remove {
		return a.host.RemoveAttr(ref, edit.Key)
	}
	return a.host.SetAttr(ref, edit.Key, propToString(edit.Value))
}

// mount creates the host subtree for a node depth-first and inserts it
// under parent at index. Refs are recorded on the VNodes as they are
// created.
func (a *Applier) mount(parent host.NodeRef, index int, node *VNode) {
	if node == nil {
		return
	}

	if node.Kind == KindText {
		node.Ref = a.host.CreateText(node.Text)
	} else {
		node.Ref = a.host.CreateElement(node.Tag)
		for key, val := range node.Props {
			if key == "key" {
				continue
			}
			if key == "style" {
				style, _ := val.(Style)
				for prop, sv := range style {
					a.host.SetStyle(node.Ref, prop, sv)
				}
				continue
			}
			a.host.SetAttr(node.Ref, key, propToString(val))
		}
	}

	for i, child := range node.Children {
		a.mount(node.Ref, i, child)
	}

	if parent.IsValid() {
		if err := a.host.InsertChild(parent, index, node.Ref); err != nil {
			a.log.Warn("vdom: insert failed", "parent", parent, "error", err)
		}
	}
}

// attached checks the patch target is still in the host tree.
func (a *Applier) attached(p *Patch) bool {
	if p.Old == nil || !p.Old.Ref.IsValid() || !a.host.Contains(p.Old.Ref) {
		a.log.Warn("vdom: patch target detached, skipping",
			"kind", p.Kind.String(), "index", p.Index)
		return false
	}
	return true
}

func (a *Applier) warn(msg string, p *Patch, err error) {
	a.log.Warn("vdom: "+msg, "kind", p.Kind.String(), "error", err)
}

// propToString converts a prop value to its attribute string.
func propToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
