// internal/browser/widget/richtext.go
package widget

import (
	"context"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

// RichTextSpec matches textareas an editor script turns into a rich text
// editor. The submitted value is the textarea's content.
var RichTextSpec = Spec{
	Name:  "richtext",
	Match: matchRichText,
	New:   func(n *dom.Node) (Widget, error) { return &RichText{node: n}, nil },
}

func matchRichText(n *dom.Node) bool {
	if n.Tag() != "textarea" {
		return false
	}
	return n.HasClass("mce_editable") || n.HasClass("pat-tinymce") || n.HasClass("pat-richtext")
}

// RichText holds HTML markup.
type RichText struct {
	node *dom.Node
}

func (r *RichText) Name() string      { return "richtext" }
func (r *RichText) Node() *dom.Node   { return r.node }
func (r *RichText) Label() string     { return inputLabel(r.node) }
func (r *RichText) FieldName() string { return r.node.Attr("name") }

// Fill stores the markup as is.
func (r *RichText) Fill(_ context.Context, value any) error {
	s, err := scalarString(r.FieldName(), value)
	if err != nil {
		return err
	}
	r.node.SetText(s)
	return nil
}

// Value returns the current markup.
func (r *RichText) Value() string { return r.node.RawText() }
