// internal/browser/widget/file.go
package widget

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

// FileUploadSpec matches a field holding a file input, optionally with
// the keep/replace/remove radios shown when a file is already stored.
var FileUploadSpec = Spec{
	Name:  "file",
	Match: matchFileUpload,
	New:   newFileUpload,
}

var isFileInput = inputOfType("file")

func matchFileUpload(n *dom.Node) bool {
	return isField(n) && n.FindFirst(func(c *dom.Node) bool { return isFileInput(c) && ownedBy(n, c) }) != nil
}

// FileUpload stages a file on the input of its field.
type FileUpload struct {
	node  *dom.Node
	input *dom.Node
}

func newFileUpload(n *dom.Node) (Widget, error) {
	input := n.FindFirst(isFileInput)
	if input == nil {
		return nil, fmt.Errorf("no file input below %s", n)
	}
	return &FileUpload{node: n, input: input}, nil
}

func (f *FileUpload) Name() string      { return "file" }
func (f *FileUpload) Node() *dom.Node   { return f.node }
func (f *FileUpload) Label() string     { return fieldLabel(f.node) }
func (f *FileUpload) FieldName() string { return f.input.Attr("name") }

// Fill takes a dom.Upload or a path to read from disk.
func (f *FileUpload) Fill(_ context.Context, value any) error {
	if err := fillFile(f.input, f.FieldName(), value); err != nil {
		return err
	}
	replace := f.node.FindFirst(func(n *dom.Node) bool {
		return n.Tag() == "input" && controlType(n) == "radio" && n.Attr("value") == "replace"
	})
	if replace != nil {
		for _, r := range sameNameGroup(replace, "radio") {
			setChecked(r, r.Equal(replace))
		}
	}
	return nil
}
