// internal/browser/widget/control.go
package widget

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

// FillControl assigns value to a plain form control.
func FillControl(ctx context.Context, control *dom.Node, value any) error {
	name := control.Attr("name")
	switch control.Tag() {
	case "textarea":
		s, err := scalarString(name, value)
		if err != nil {
			return err
		}
		control.SetText(s)
		return nil
	case "select":
		return fillSelect(control, name, value)
	case "input":
	default:
		return &UnsupportedControlError{Field: name, Tag: control.Tag()}
	}

	switch t := controlType(control); t {
	case "checkbox":
		return fillCheckbox(control, name, value)
	case "radio":
		return fillRadioGroup(control, name, value)
	case "file":
		return fillFile(control, name, value)
	case "submit", "image", "button", "reset":
		return &UnsupportedControlError{Field: name, Tag: "input", Type: t}
	default:
		s, err := scalarString(name, value)
		if err != nil {
			return err
		}
		control.SetAttr("value", s)
		return nil
	}
}

func selectChoices(sel *dom.Node) ([]*dom.Node, []Choice) {
	options := findAll(sel, byTag("option"))
	choices := make([]Choice, len(options))
	for i, o := range options {
		choices[i] = Choice{Token: optionValue(o), Label: o.Text()}
	}
	return options, choices
}

func fillSelect(sel *dom.Node, name string, value any) error {
	wanted, err := stringsOf(name, value)
	if err != nil {
		return err
	}
	if !sel.HasAttr("multiple") && len(wanted) > 1 {
		return &OnlyOneValueAllowedError{Field: name, Values: wanted}
	}
	options, choices := selectChoices(sel)
	idx, err := resolveChoices(name, wanted, choices)
	if err != nil {
		return err
	}
	for _, o := range options {
		setSelected(o, false)
	}
	for _, i := range idx {
		setSelected(options[i], true)
	}
	return nil
}

// fillCheckbox toggles a lone checkbox. A checkbox that shares its name
// with others is filled by value, like a group.
func fillCheckbox(box *dom.Node, name string, value any) error {
	group := sameNameGroup(box, "checkbox")
	if len(group) > 1 {
		wanted, err := stringsOf(name, value)
		if err != nil {
			return err
		}
		return checkGroup(name, group, wanted, true)
	}
	on, err := truthy(name, value)
	if err != nil {
		return err
	}
	setChecked(box, on)
	return nil
}

func fillRadioGroup(radio *dom.Node, name string, value any) error {
	wanted, err := stringsOf(name, value)
	if err != nil {
		return err
	}
	if len(wanted) > 1 {
		return &OnlyOneValueAllowedError{Field: name, Values: wanted}
	}
	return checkGroup(name, sameNameGroup(radio, "radio"), wanted, false)
}

func checkGroup(name string, group []*dom.Node, wanted []string, multiple bool) error {
	choices := make([]Choice, len(group))
	for i, in := range group {
		choices[i] = Choice{Token: in.Attr("value"), Label: inputLabel(in)}
	}
	idx, err := resolveChoices(name, wanted, choices)
	if err != nil {
		return err
	}
	if !multiple && len(idx) > 1 {
		return &OnlyOneValueAllowedError{Field: name, Values: wanted}
	}
	for _, in := range group {
		setChecked(in, false)
	}
	for _, i := range idx {
		setChecked(group[i], true)
	}
	return nil
}

// sameNameGroup returns the inputs of the given type that share the
// control's name inside its form, in document order.
func sameNameGroup(control *dom.Node, typ string) []*dom.Node {
	scope := dom.OwningForm(control)
	if scope == nil {
		scope = control.Document().Root()
	}
	name := control.Attr("name")
	return findAll(scope, func(n *dom.Node) bool {
		return n.Tag() == "input" && controlType(n) == typ && n.Attr("name") == name
	})
}

// inputLabel is the text of the label bound to an input, by for= or by
// nesting. It falls back to the value.
func inputLabel(in *dom.Node) string {
	if wrapping := in.Closest(byTag("label")); wrapping != nil {
		if text := wrapping.Text(); text != "" {
			return text
		}
	}
	if id := in.ID(); id != "" {
		root := in.Document().Root()
		if l := root.FindFirst(func(n *dom.Node) bool { return n.Tag() == "label" && n.Attr("for") == id }); l != nil {
			return l.Text()
		}
	}
	return in.Attr("value")
}

// fillFile stages an upload. value is a dom.Upload or a path on disk.
func fillFile(input *dom.Node, name string, value any) error {
	up, err := uploadOf(name, value)
	if err != nil {
		return err
	}
	input.Document().SetUpload(input, up)
	return nil
}

func uploadOf(name string, value any) (dom.Upload, error) {
	switch v := value.(type) {
	case dom.Upload:
		return v, nil
	case *dom.Upload:
		return *v, nil
	case string:
		data, err := os.ReadFile(v)
		if err != nil {
			return dom.Upload{}, fmt.Errorf("cannot read upload for field %q: %w", name, err)
		}
		ct := mime.TypeByExtension(filepath.Ext(v))
		if ct == "" {
			ct = "application/octet-stream"
		}
		return dom.Upload{Filename: filepath.Base(v), ContentType: ct, Data: data}, nil
	}
	return dom.Upload{}, &InvalidValueError{Field: name, Value: value, Expected: "a dom.Upload or a file path"}
}
