// internal/browser/dom/node.go
package dom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// Node wraps one node of a parsed document. Wrapping is idempotent: a
// document hands out the same *Node for the same underlying node, so two
// wrappers are equal exactly when they are the same pointer.
type Node struct {
	raw  *html.Node
	doc  *Document
	kind Kind
}

// Raw exposes the underlying parse tree node.
func (n *Node) Raw() *html.Node     { return n.raw }
func (n *Node) Document() *Document { return n.doc }

// Kind is the variant chosen for the node when it was last wrapped.
func (n *Node) Kind() Kind { return n.kind }

// Equal reports whether both wrappers refer to the same underlying node.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.raw == other.raw
}

// Tag is the element name, empty for non-element nodes.
func (n *Node) Tag() string {
	if n.raw.Type != html.ElementNode {
		return ""
	}
	return n.raw.Data
}

// LookupAttr returns the value of name and whether it is present.
func (n *Node) LookupAttr(name string) (string, bool) {
	for _, a := range n.raw.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) Attr(name string) string {
	v, _ := n.LookupAttr(name)
	return v
}

func (n *Node) HasAttr(name string) bool {
	_, ok := n.LookupAttr(name)
	return ok
}

// Attrs returns a copy of the attributes in document order.
func (n *Node) Attrs() []html.Attribute {
	return append([]html.Attribute(nil), n.raw.Attr...)
}

func (n *Node) ID() string        { return n.Attr("id") }
func (n *Node) Classes() []string { return strings.Fields(n.Attr("class")) }

func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

// Text is the whitespace normalized text content.
func (n *Node) Text() string { return NormalizeSpace(textContent(n.raw)) }

// RawText is the text content exactly as it appears in the document.
func (n *Node) RawText() string { return rawText(n.raw) }

// InnerHTML renders the children of the node.
func (n *Node) InnerHTML() string {
	var buf bytes.Buffer
	for c := n.raw.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML renders the node itself.
func (n *Node) OuterHTML() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n.raw)
	return buf.String()
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.raw.Type != html.ElementNode {
		return fmt.Sprintf("<%s node>", n.kind)
	}
	var b strings.Builder
	b.WriteString("<" + n.raw.Data)
	for _, a := range n.raw.Attr {
		fmt.Fprintf(&b, " %s=%q", a.Key, a.Val)
	}
	b.WriteString(">")
	return b.String()
}

// Path returns an XPath expression selecting this node.
func (n *Node) Path() string { return GenerateUniqueXPath(n.raw) }

// --- navigation ---

// Parent returns the element parent, nil at the top of the tree.
func (n *Node) Parent() *Node {
	if p := n.raw.Parent; p != nil && p.Type == html.ElementNode {
		return n.doc.Wrap(p)
	}
	return nil
}

// Children returns the element children.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.raw.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, n.doc.Wrap(c))
		}
	}
	return out
}

func (n *Node) NextSibling() *Node {
	for s := n.raw.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return n.doc.Wrap(s)
		}
	}
	return nil
}

func (n *Node) PreviousSibling() *Node {
	for s := n.raw.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return n.doc.Wrap(s)
		}
	}
	return nil
}

// Siblings returns the other element children of the parent.
func (n *Node) Siblings() []*Node {
	if n.raw.Parent == nil {
		return nil
	}
	var out []*Node
	for c := n.raw.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c != n.raw {
			out = append(out, n.doc.Wrap(c))
		}
	}
	return out
}

// Ancestors returns the element ancestors, closest first.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	return out
}

// Descendants returns the element descendants in document order.
func (n *Node) Descendants() []*Node {
	var out []*Node
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, n.doc.Wrap(c))
			}
			walk(c)
		}
	}
	walk(n.raw)
	return out
}

// Closest returns the node itself or its nearest ancestor matching pred.
func (n *Node) Closest(pred func(*Node) bool) *Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if pred(cur) {
			return cur
		}
	}
	return nil
}

// FindFirst returns the first descendant matching pred in document order.
func (n *Node) FindFirst(pred func(*Node) bool) *Node {
	for _, d := range n.Descendants() {
		if pred(d) {
			return d
		}
	}
	return nil
}

// Within reports whether n is other or one of its descendants.
func (n *Node) Within(other *Node) bool {
	if other == nil {
		return false
	}
	for h := n.raw; h != nil; h = h.Parent {
		if h == other.raw {
			return true
		}
	}
	return false
}

// --- queries ---

func compileCSS(selector string) (goquery.Matcher, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid css selector %q: %w", selector, err)
	}
	return sel, nil
}

func compileXPath(expr string) (*xpath.Expr, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath expression %q: %w", expr, err)
	}
	return compiled, nil
}

func (n *Node) matchCSS(m goquery.Matcher) []*Node {
	found := goquery.NewDocumentFromNode(n.raw).FindMatcher(m).Nodes
	out := make([]*Node, len(found))
	for i, f := range found {
		out[i] = n.doc.Wrap(f)
	}
	return out
}

func (n *Node) matchXPath(expr *xpath.Expr) []*Node {
	found := htmlquery.QuerySelectorAll(n.raw, expr)
	out := make([]*Node, len(found))
	for i, f := range found {
		out[i] = n.doc.Wrap(f)
	}
	return out
}

// CSS returns the descendants matching selector in document order.
func (n *Node) CSS(selector string) (*ResultSet, error) {
	return NewResultSet([]*Node{n}, nil).CSS(selector)
}

// XPath evaluates expr with n as the context node. Absolute expressions
// ("//a") search the whole document; use ".//a" for the subtree.
func (n *Node) XPath(expr string) (*ResultSet, error) {
	return NewResultSet([]*Node{n}, nil).XPath(expr)
}

// --- mutation ---

// SetAttr sets or replaces an attribute.
func (n *Node) SetAttr(name, value string) {
	for i, a := range n.raw.Attr {
		if a.Key == name {
			n.raw.Attr[i].Val = value
			return
		}
	}
	n.raw.Attr = append(n.raw.Attr, html.Attribute{Key: name, Val: value})
}

func (n *Node) RemoveAttr(name string) {
	attrs := n.raw.Attr[:0]
	for _, a := range n.raw.Attr {
		if a.Key != name {
			attrs = append(attrs, a)
		}
	}
	n.raw.Attr = attrs
}

// SetText replaces all children with a single text node.
func (n *Node) SetText(text string) {
	for c := n.raw.FirstChild; c != nil; {
		next := c.NextSibling
		n.raw.RemoveChild(c)
		c = next
	}
	n.raw.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// AppendChild moves child to the end of n's children.
func (n *Node) AppendChild(child *Node) {
	child.Remove()
	n.raw.AppendChild(child.raw)
}

// InsertBefore moves child in front of ref, which must be a child of n.
func (n *Node) InsertBefore(child, ref *Node) {
	child.Remove()
	n.raw.InsertBefore(child.raw, ref.raw)
}

// Remove detaches the node from its parent.
func (n *Node) Remove() {
	if p := n.raw.Parent; p != nil {
		p.RemoveChild(n.raw)
	}
}

// Clone returns a detached deep copy owned by the same document.
func (n *Node) Clone() *Node {
	return n.doc.Wrap(deepCopy(n.raw))
}

func deepCopy(h *html.Node) *html.Node {
	c := &html.Node{
		Type:      h.Type,
		DataAtom:  h.DataAtom,
		Data:      h.Data,
		Namespace: h.Namespace,
		Attr:      append([]html.Attribute(nil), h.Attr...),
	}
	for child := h.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(deepCopy(child))
	}
	return c
}
