// internal/browser/dom/kind.go
package dom

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/testbrowser/internal/browser/driver"
)

// Kind is the specialized variant a node is presented as.
type Kind int

const (
	KindPlain Kind = iota
	KindLink
	KindButton
	KindForm
	KindControl
	KindTable
	KindRow
	KindCell
)

func (k Kind) String() string {
	switch k {
	case KindLink:
		return "link"
	case KindButton:
		return "button"
	case KindForm:
		return "form"
	case KindControl:
		return "control"
	case KindTable:
		return "table"
	case KindRow:
		return "row"
	case KindCell:
		return "cell"
	}
	return "plain"
}

func attrOf(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func inputType(n *html.Node) string {
	t, _ := attrOf(n, "type")
	if t == "" {
		return "text"
	}
	return strings.ToLower(t)
}

func isElement(n *html.Node, tags ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

// IsButtonType reports whether an input type submits or resets a form.
func IsButtonType(t string) bool {
	switch strings.ToLower(t) {
	case "submit", "image", "button", "reset":
		return true
	}
	return false
}

// variants is consulted in order; the first matching predicate decides the kind.
var variants = []struct {
	kind  Kind
	match func(*html.Node) bool
}{
	{KindLink, func(n *html.Node) bool {
		_, ok := attrOf(n, "href")
		return isElement(n, "a") && ok
	}},
	{KindButton, func(n *html.Node) bool {
		return isElement(n, "button") || (isElement(n, "input") && IsButtonType(inputType(n)))
	}},
	{KindForm, func(n *html.Node) bool { return isElement(n, "form") }},
	{KindControl, func(n *html.Node) bool { return isElement(n, "input", "select", "textarea") }},
	{KindTable, func(n *html.Node) bool { return isElement(n, "table") }},
	{KindRow, func(n *html.Node) bool { return isElement(n, "tr") }},
	{KindCell, func(n *html.Node) bool { return isElement(n, "td", "th") }},
}

func classify(n *html.Node) Kind {
	for _, v := range variants {
		if v.match(n) {
			return v.kind
		}
	}
	return KindPlain
}

// --- links ---

// Link is the hyperlink view of a node.
type Link struct{ *Node }

// AsLink returns the link view when the node is an anchor with an href.
func (n *Node) AsLink() (*Link, bool) {
	if n.kind != KindLink {
		return nil, false
	}
	return &Link{n}, true
}

func (l *Link) Href() string { return l.Attr("href") }

// URL resolves the href against the document.
func (l *Link) URL() (*url.URL, error) {
	return l.doc.ResolveURL(l.Href())
}

// Click follows the link through the owning session.
func (l *Link) Click(ctx context.Context) error {
	if l.doc.session == nil {
		return ErrNoSession
	}
	target, err := l.URL()
	if err != nil {
		return fmt.Errorf("cannot follow link %s: %w", l.Node, err)
	}
	req := driver.Request{Method: http.MethodGet, URL: target.String()}
	if base := l.doc.URL(); base != nil {
		req.Referer = base.String()
	}
	return l.doc.session.Navigate(ctx, req)
}

// --- buttons ---

// Button is the submit control view of a node.
type Button struct{ *Node }

func (n *Node) AsButton() (*Button, bool) {
	if n.kind != KindButton {
		return nil, false
	}
	return &Button{n}, true
}

func (b *Button) Name() string  { return b.Attr("name") }
func (b *Button) Value() string { return b.Attr("value") }

// Label is what a user reads on the button.
func (b *Button) Label() string {
	if b.Tag() == "button" {
		if text := b.Text(); text != "" {
			return text
		}
	}
	return b.Value()
}

// Form returns the form the button submits, honouring the form attribute.
func (b *Button) Form() *Node {
	return OwningForm(b.Node)
}

// Click submits the owning form with the button as submitter.
func (b *Button) Click(ctx context.Context) error {
	if b.doc.session == nil {
		return ErrNoSession
	}
	form := b.Form()
	if form == nil {
		return fmt.Errorf("button %q is not inside a form", b.Label())
	}
	return b.doc.session.Submit(ctx, form, b.Node)
}

// OwningForm returns the form a control belongs to: the one named by its
// form attribute, otherwise the closest enclosing form.
func OwningForm(control *Node) *Node {
	if id := control.Attr("form"); id != "" {
		if f := control.doc.ElementByID(id); f != nil && f.Tag() == "form" {
			return f
		}
	}
	return control.Closest(func(n *Node) bool { return n.Tag() == "form" })
}
