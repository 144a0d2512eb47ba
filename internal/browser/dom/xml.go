// internal/browser/dom/xml.go
package dom

import (
	"fmt"
	"io"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
)

// parseXMLTree reads a well-formed XML document and converts it into the
// html.Node tree the query layer works on. Namespace prefixes are kept in
// element and attribute names ("dc:title").
func parseXMLTree(r io.Reader) (*html.Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = false
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("malformed xml: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("malformed xml: document has no root element")
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, tok := range doc.Child {
		if n := convertXMLToken(tok); n != nil {
			root.AppendChild(n)
		}
	}
	return root, nil
}

func convertXMLToken(tok etree.Token) *html.Node {
	switch t := tok.(type) {
	case *etree.Element:
		n := &html.Node{Type: html.ElementNode, Data: t.FullTag()}
		for _, a := range t.Attr {
			n.Attr = append(n.Attr, html.Attribute{Key: a.FullKey(), Val: a.Value})
		}
		for _, child := range t.Child {
			if c := convertXMLToken(child); c != nil {
				n.AppendChild(c)
			}
		}
		return n
	case *etree.CharData:
		return &html.Node{Type: html.TextNode, Data: t.Data}
	case *etree.Comment:
		return &html.Node{Type: html.CommentNode, Data: t.Data}
	}
	// Processing instructions and directives carry no queryable content.
	return nil
}
