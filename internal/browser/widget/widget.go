// internal/browser/widget/widget.go
package widget

import (
	"context"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

// Widget is a structural pattern found in a form plus the behaviour that
// fills it the way the application's own scripts would.
type Widget interface {
	// Name identifies the widget kind ("sequence", "datagrid", ...).
	Name() string
	// Node is the element the widget was matched on.
	Node() *dom.Node
	// FieldName is the form field the widget submits as.
	FieldName() string
	// Label is the normalized text of the field label, if any.
	Label() string
	Fill(ctx context.Context, value any) error
}

// Spec pairs a shape predicate with the constructor for matching nodes.
type Spec struct {
	Name  string
	Match func(*dom.Node) bool
	New   func(*dom.Node) (Widget, error)
}

// Registry is an ordered list of specs. Later specs take priority over
// earlier ones. A registry is not modified after construction.
type Registry struct {
	specs []Spec
}

// NewRegistry builds a registry; specs are given lowest priority first.
func NewRegistry(specs ...Spec) *Registry {
	return &Registry{specs: append([]Spec(nil), specs...)}
}

// Default returns the registry for the widgets this package knows.
func Default() *Registry {
	return NewRegistry(
		RichTextSpec,
		FileUploadSpec,
		SequenceSpec,
		DateSpec,
		DateTimeSpec,
		DualListSpec,
		AjaxSelectSpec,
		DataGridSpec,
	)
}

// Names lists the registered specs, lowest priority first.
func (r *Registry) Names() []string {
	out := make([]string, len(r.specs))
	for i, s := range r.specs {
		out[i] = s.Name
	}
	return out
}

// Lookup returns the highest priority spec matching n.
func (r *Registry) Lookup(n *dom.Node) (Spec, bool) {
	for i := len(r.specs) - 1; i >= 0; i-- {
		if r.specs[i].Match(n) {
			return r.specs[i], true
		}
	}
	return Spec{}, false
}

// Claim walks from control up to, but excluding, boundary and returns the
// widget of the first node that matches. It returns nil when no widget
// claims the control.
func (r *Registry) Claim(control, boundary *dom.Node) (Widget, error) {
	for cur := control; cur != nil; cur = cur.Parent() {
		if boundary != nil && cur.Equal(boundary) {
			break
		}
		if spec, ok := r.Lookup(cur); ok {
			return spec.New(cur)
		}
	}
	return nil, nil
}

// Widgets returns the outermost widgets below root in document order.
func (r *Registry) Widgets(root *dom.Node) ([]Widget, error) {
	var out []Widget
	var claimed []*dom.Node
	for _, n := range root.Descendants() {
		if within(n, claimed) {
			continue
		}
		spec, ok := r.Lookup(n)
		if !ok {
			continue
		}
		w, err := spec.New(n)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, n)
		out = append(out, w)
	}
	return out, nil
}

// Find returns the widget below root whose label or field name is q, or
// nil when there is none.
func (r *Registry) Find(root *dom.Node, q string) (Widget, error) {
	widgets, err := r.Widgets(root)
	if err != nil {
		return nil, err
	}
	q = dom.NormalizeSpace(q)
	for _, w := range widgets {
		if w.Label() == q || w.FieldName() == q {
			return w, nil
		}
	}
	return nil, nil
}

func within(n *dom.Node, roots []*dom.Node) bool {
	for _, r := range roots {
		if n.Within(r) {
			return true
		}
	}
	return false
}
