// internal/browser/form/form.go
package form

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/widget"
)

// Values maps labels or control names to the values to fill in.
type Values map[string]any

// Form is a <form> element together with the widget registry used to
// fill it.
type Form struct {
	node     *dom.Node
	registry *widget.Registry
}

// Option configures a Form.
type Option func(*Form)

// WithRegistry replaces the default widget registry.
func WithRegistry(r *widget.Registry) Option {
	return func(f *Form) {
		if r != nil {
			f.registry = r
		}
	}
}

// New wraps a <form> node.
func New(node *dom.Node, opts ...Option) (*Form, error) {
	if node == nil || node.Tag() != "form" {
		return nil, ErrNotAForm
	}
	f := &Form{node: node, registry: widget.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// FindAll returns every form of the document in document order.
func FindAll(doc *dom.Document, opts ...Option) []*Form {
	var out []*Form
	for _, n := range doc.Forms() {
		if f, err := New(n, opts...); err == nil {
			out = append(out, f)
		}
	}
	return out
}

func (f *Form) Node() *dom.Node { return f.node }
func (f *Form) Name() string    { return f.node.Attr("name") }
func (f *Form) ID() string      { return f.node.ID() }

// Method is the upper-cased submission method, GET unless POST is given.
func (f *Form) Method() string {
	if strings.EqualFold(strings.TrimSpace(f.node.Attr("method")), http.MethodPost) {
		return http.MethodPost
	}
	return http.MethodGet
}

// Enctype is the encoding used for POST bodies.
func (f *Form) Enctype() string {
	if strings.EqualFold(strings.TrimSpace(f.node.Attr("enctype")), "multipart/form-data") {
		return "multipart/form-data"
	}
	return "application/x-www-form-urlencoded"
}

// Action is the absolute submission URL. An empty action submits to the
// document itself.
func (f *Form) Action() (*url.URL, error) {
	return f.node.Document().ResolveURL(f.node.Attr("action"))
}

// String names the form for messages.
func (f *Form) String() string {
	switch {
	case f.ID() != "":
		return "#" + f.ID()
	case f.Name() != "":
		return f.Name()
	case f.node.Attr("action") != "":
		return f.node.Attr("action")
	}
	return f.node.Path()
}

func isControl(n *dom.Node) bool {
	switch n.Tag() {
	case "input", "select", "textarea", "button":
		return true
	}
	return false
}

func isButton(n *dom.Node) bool {
	_, ok := n.AsButton()
	return ok
}

// Controls returns the controls owned by the form in document order,
// including those outside it that name it in their form attribute.
func (f *Form) Controls() []*dom.Node {
	var out []*dom.Node
	for _, n := range f.node.Document().Root().Descendants() {
		if !isControl(n) {
			continue
		}
		if owner := dom.OwningForm(n); owner != nil && owner.Equal(f.node) {
			out = append(out, n)
		}
	}
	return out
}

// Buttons returns the controls that submit the form.
func (f *Form) Buttons() []*dom.Button {
	var out []*dom.Button
	for _, c := range f.Controls() {
		if b, ok := c.AsButton(); ok {
			t := strings.ToLower(c.Attr("type"))
			if t == "reset" || (c.Tag() == "input" && t == "button") || (c.Tag() == "button" && t == "button") {
				continue
			}
			out = append(out, b)
		}
	}
	return out
}

// labelFor returns the normalized text of the label bound to a control.
func labelFor(control *dom.Node) string {
	if id := control.ID(); id != "" {
		l := control.Document().Root().FindFirst(func(n *dom.Node) bool {
			return n.Tag() == "label" && n.Attr("for") == id
		})
		if l != nil {
			return l.Text()
		}
	}
	if l := control.Closest(func(n *dom.Node) bool { return n.Tag() == "label" }); l != nil {
		return l.Text()
	}
	return ""
}

// FindField returns the first control whose name or label is q, or nil.
func (f *Form) FindField(q string) *dom.Node {
	q = dom.NormalizeSpace(q)
	for _, c := range f.Controls() {
		if isButton(c) {
			continue
		}
		if c.Attr("name") == q || labelFor(c) == q {
			return c
		}
	}
	return nil
}

// LabelIndex maps label texts to control names.
func (f *Form) LabelIndex() map[string]string {
	index := make(map[string]string)
	for _, c := range f.Controls() {
		if isButton(c) || c.Attr("name") == "" {
			continue
		}
		if l := labelFor(c); l != "" {
			if _, seen := index[l]; !seen {
				index[l] = c.Attr("name")
			}
		}
	}
	return index
}

// FindWidget returns the widget whose label or field name is q, or nil.
func (f *Form) FindWidget(q string) (widget.Widget, error) {
	return f.registry.Find(f.node, q)
}

// has reports whether q names a field or widget of the form.
func (f *Form) has(q string) (bool, error) {
	if f.FindField(q) != nil {
		return true, nil
	}
	w, err := f.FindWidget(q)
	if err != nil {
		return false, err
	}
	return w != nil, nil
}

// fieldNames lists what a caller could have meant, for error messages.
func (f *Form) fieldNames() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if widgets, err := f.registry.Widgets(f.node); err == nil {
		for _, w := range widgets {
			add(w.Label())
		}
	}
	for _, c := range f.Controls() {
		if isButton(c) || controlType(c) == "hidden" {
			continue
		}
		if l := labelFor(c); l != "" {
			add(l)
		} else {
			add(c.Attr("name"))
		}
	}
	return out
}

// FindFormByField returns the form holding a field or widget named or
// labelled q, or nil. A q found in more than one form is an
// AmbiguousFormFieldsError.
func FindFormByField(doc *dom.Document, q string, opts ...Option) (*Form, error) {
	var found []*Form
	for _, f := range FindAll(doc, opts...) {
		ok, err := f.has(q)
		if err != nil {
			return nil, err
		}
		if ok {
			found = append(found, f)
		}
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	forms := make([]string, len(found))
	for i, f := range found {
		forms[i] = f.String()
	}
	return nil, &AmbiguousFormFieldsError{Queries: []string{q}, Forms: forms}
}

// FindFormByLabelsOrNames returns the single form holding every queried
// field.
func FindFormByLabelsOrNames(doc *dom.Document, queries []string, opts ...Option) (*Form, error) {
	var found *Form
	var first string
	for _, q := range queries {
		f, err := FindFormByField(doc, q, opts...)
		if err != nil {
			return nil, err
		}
		if f == nil {
			var available []string
			for _, other := range FindAll(doc, opts...) {
				available = append(available, other.fieldNames()...)
			}
			return nil, &FieldNotFoundError{Query: q, Available: available}
		}
		if found == nil {
			found, first = f, q
			continue
		}
		if !found.node.Equal(f.node) {
			return nil, &AmbiguousFormFieldsError{
				Queries: []string{first, q},
				Forms:   []string{found.String(), f.String()},
			}
		}
	}
	return found, nil
}

// Fill assigns every value, keys in sorted order. Keys naming a widget
// are filled by the widget; other keys are resolved to a control, which
// an enclosing widget may still claim.
func (f *Form) Fill(ctx context.Context, values Values) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := f.fillOne(ctx, key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

func (f *Form) fillOne(ctx context.Context, key string, value any) error {
	w, err := f.FindWidget(key)
	if err != nil {
		return err
	}
	if w != nil {
		return w.Fill(ctx, value)
	}

	control := f.FindField(key)
	if control == nil {
		return &FieldNotFoundError{Query: key, Available: f.fieldNames()}
	}
	claimed, err := f.registry.Claim(control, f.node)
	if err != nil {
		return err
	}
	if claimed != nil && claims(claimed, control) {
		return claimed.Fill(ctx, value)
	}
	if err := widget.FillControl(ctx, control, value); err != nil {
		return fmt.Errorf("cannot fill %q: %w", key, err)
	}
	return nil
}

// claims reports whether a widget submits as the given control, as
// opposed to merely containing it.
func claims(w widget.Widget, control *dom.Node) bool {
	if w.Node().Equal(control) {
		return true
	}
	return strings.TrimSuffix(control.Attr("name"), ":list") == w.FieldName()
}

func controlType(n *dom.Node) string {
	t := strings.ToLower(n.Attr("type"))
	if t == "" {
		return "text"
	}
	return t
}

// FindButton returns the submit button whose label, name or value is q.
func (f *Form) FindButton(q string) (*dom.Button, error) {
	q = dom.NormalizeSpace(q)
	var available []string
	for _, b := range f.Buttons() {
		if b.Label() == q || b.Name() == q || b.Value() == q || b.ID() == q {
			return b, nil
		}
		available = append(available, b.Label())
	}
	return nil, &ButtonNotFoundError{Query: q, Available: available}
}

// Submit submits the form without a submitter, as a script would.
func (f *Form) Submit(ctx context.Context) error {
	return f.SubmitWith(ctx, nil)
}

// SubmitWith submits the form as if submitter had been clicked.
func (f *Form) SubmitWith(ctx context.Context, submitter *dom.Node) error {
	session := f.node.Document().Session()
	if session == nil {
		return dom.ErrNoSession
	}
	req, err := f.Request(submitter)
	if err != nil {
		return err
	}
	return session.Navigate(ctx, req)
}

// ClickButton submits the form with the button labelled or named q.
func (f *Form) ClickButton(ctx context.Context, q string) error {
	b, err := f.FindButton(q)
	if err != nil {
		return err
	}
	return f.SubmitWith(ctx, b.Node)
}
