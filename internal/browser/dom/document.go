// internal/browser/dom/document.go
package dom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/testbrowser/internal/browser/driver"
)

// ParseMode selects the grammar used to build a document.
type ParseMode int

const (
	ModeHTML ParseMode = iota
	ModeXML
)

func (m ParseMode) String() string {
	if m == ModeXML {
		return "xml"
	}
	return "html"
}

// ParseModeFromString maps a config value onto a ParseMode.
func ParseModeFromString(s string) (ParseMode, error) {
	switch strings.ToLower(s) {
	case "", "html":
		return ModeHTML, nil
	case "xml":
		return ModeXML, nil
	}
	return ModeHTML, fmt.Errorf("unknown parse mode %q", s)
}

// Session is the navigation surface a document calls back into when a
// link is followed or a form is submitted.
type Session interface {
	Navigate(ctx context.Context, req driver.Request) error
	Submit(ctx context.Context, form *Node, submitter *Node) error
}

// Upload is a file staged on a file input.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Document is a parsed page plus the state node wrappers share.
type Document struct {
	root     *html.Node
	mode     ParseMode
	url      *url.URL
	session  Session
	wrappers map[*html.Node]*Node
	uploads  map[*html.Node]Upload
}

// Option configures a Document.
type Option func(*Document)

// WithURL records the address the document was loaded from.
func WithURL(u *url.URL) Option {
	return func(d *Document) { d.url = u }
}

// WithSession attaches the browser that owns the document.
func WithSession(s Session) Option {
	return func(d *Document) { d.session = s }
}

// Parse reads r with the given grammar.
func Parse(r io.Reader, mode ParseMode, opts ...Option) (*Document, error) {
	var (
		root *html.Node
		err  error
	)
	switch mode {
	case ModeXML:
		root, err = parseXMLTree(r)
	default:
		root, err = htmlquery.Parse(r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s document: %w", mode, err)
	}
	return NewDocument(root, mode, opts...), nil
}

// ParseHTML parses leniently; malformed markup never fails.
func ParseHTML(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), ModeHTML, opts...)
}

// ParseXML parses strictly and fails on malformed input.
func ParseXML(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), ModeXML, opts...)
}

// NewDocument wraps an existing tree.
func NewDocument(root *html.Node, mode ParseMode, opts ...Option) *Document {
	d := &Document{
		root:     root,
		mode:     mode,
		wrappers: make(map[*html.Node]*Node),
		uploads:  make(map[*html.Node]Upload),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Document) Mode() ParseMode  { return d.mode }
func (d *Document) URL() *url.URL    { return d.url }
func (d *Document) Session() Session { return d.session }

// Root is the wrapped document node.
func (d *Document) Root() *Node { return d.Wrap(d.root) }

// Wrap returns the wrapper for h, creating it on first use. The variant is
// re-evaluated on every call since widgets mutate the tree in place.
func (d *Document) Wrap(h *html.Node) *Node {
	if h == nil {
		return nil
	}
	n, ok := d.wrappers[h]
	if !ok {
		n = &Node{raw: h, doc: d}
		d.wrappers[h] = n
	}
	n.kind = classify(h)
	return n
}

// Body returns the <body> element, or nil for documents without one.
func (d *Document) Body() *Node {
	return d.Root().FindFirst(func(n *Node) bool { return n.Tag() == "body" })
}

// Title returns the normalized <title> text.
func (d *Document) Title() string {
	t := d.Root().FindFirst(func(n *Node) bool { return n.Tag() == "title" })
	if t == nil {
		return ""
	}
	return t.Text()
}

// CSS queries the whole document.
func (d *Document) CSS(selector string) (*ResultSet, error) {
	return d.Root().CSS(selector)
}

// XPath queries the whole document.
func (d *Document) XPath(expr string) (*ResultSet, error) {
	return d.Root().XPath(expr)
}

// ElementByID returns the first element with the given id.
func (d *Document) ElementByID(id string) *Node {
	return d.Root().FindFirst(func(n *Node) bool { return n.raw.Type == html.ElementNode && n.ID() == id })
}

// Forms lists the <form> elements in document order.
func (d *Document) Forms() []*Node {
	var out []*Node
	for _, n := range d.Root().Descendants() {
		if n.kind == KindForm {
			out = append(out, n)
		}
	}
	return out
}

// CreateElement builds a detached element. attrs are key, value pairs.
func (d *Document) CreateElement(tag string, attrs ...string) *Node {
	h := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		h.Attr = append(h.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return d.Wrap(h)
}

// SetUpload stages a file on a file input.
func (d *Document) SetUpload(input *Node, up Upload) {
	d.uploads[input.raw] = up
}

// Upload returns the file staged on input, if any.
func (d *Document) Upload(input *Node) (Upload, bool) {
	up, ok := d.uploads[input.raw]
	return up, ok
}

// ResolveURL resolves ref against <base href> and the document URL.
func (d *Document) ResolveURL(ref string) (*url.URL, error) {
	target, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", ref, err)
	}
	base := d.url
	if b := d.Root().FindFirst(func(n *Node) bool { return n.Tag() == "base" && n.HasAttr("href") }); b != nil {
		if bu, err := url.Parse(b.Attr("href")); err == nil {
			if base != nil {
				bu = base.ResolveReference(bu)
			}
			base = bu
		}
	}
	if base == nil {
		return target, nil
	}
	return base.ResolveReference(target), nil
}

// HTML renders the current tree, including mutations made by widgets.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}
