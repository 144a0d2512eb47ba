// internal/browser/dom/xpath.go
package dom

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// GenerateUniqueXPath returns an absolute XPath selecting exactly node,
// anchored at the closest ancestor carrying an id.
func GenerateUniqueXPath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var path []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode || n.Data == "" {
			continue
		}
		if id := htmlquery.SelectAttr(n, "id"); id != "" {
			path = append(path, "//*[@id="+xpathLiteral(id)+"]")
			break
		}

		index := 1
		for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && prev.Data == n.Data {
				index++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", n.Data, index))
	}

	if len(path) == 0 {
		return "/"
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	xpath := strings.Join(path, "/")
	if !strings.HasPrefix(xpath, "//") {
		xpath = "/" + xpath
	}
	return xpath
}

// xpathLiteral quotes s for use in an XPath 1.0 expression. XPath has no
// escapes, so strings holding both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
