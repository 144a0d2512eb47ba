// internal/browser/widget/values.go
package widget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

// Choice is one selectable entry of a widget, as submitted and as shown.
type Choice struct {
	Token string
	Label string
}

// stringsOf accepts a single value or a list of values.
func stringsOf(field string, v any) ([]string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{x}, nil
	case []string:
		return x, nil
	case Choice:
		return []string{x.Token}, nil
	case []Choice:
		out := make([]string, len(x))
		for i, c := range x {
			out[i] = c.Token
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, err := scalarString(field, item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	s, err := scalarString(field, v)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func scalarString(field string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x), nil
	}
	return "", &InvalidValueError{Field: field, Value: v, Expected: "a string or a list of strings"}
}

// truthy interprets the value of a single checkbox.
func truthy(field string, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "0", "false", "off", "no":
			return false, nil
		}
		return true, nil
	}
	return false, &InvalidValueError{Field: field, Value: v, Expected: "a bool"}
}

// fieldLabel is the text of the first label of a field container that is
// not the label of one of its options.
func fieldLabel(n *dom.Node) string {
	l := n.FindFirst(func(c *dom.Node) bool {
		return c.Tag() == "label" && c.Closest(isOptionSpan) == nil
	})
	if l == nil {
		return ""
	}
	return l.Text()
}

func isField(n *dom.Node) bool {
	return n.Tag() == "div" && n.HasClass("field")
}

// ownedBy reports whether c sits in field itself rather than in a field
// nested below it.
func ownedBy(field, c *dom.Node) bool {
	owner := c.Closest(isField)
	return owner != nil && owner.Equal(field)
}

func isOptionSpan(n *dom.Node) bool {
	return n.Tag() == "span" && n.HasClass("option")
}

func findAll(root *dom.Node, pred func(*dom.Node) bool) []*dom.Node {
	var out []*dom.Node
	for _, d := range root.Descendants() {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out
}

func byTag(tags ...string) func(*dom.Node) bool {
	return func(n *dom.Node) bool {
		for _, t := range tags {
			if n.Tag() == t {
				return true
			}
		}
		return false
	}
}

func inputOfType(types ...string) func(*dom.Node) bool {
	return func(n *dom.Node) bool {
		if n.Tag() != "input" {
			return false
		}
		t := controlType(n)
		for _, want := range types {
			if t == want {
				return true
			}
		}
		return false
	}
}

// controlType is the lower-cased input type, "text" when absent.
func controlType(n *dom.Node) string {
	t := strings.ToLower(n.Attr("type"))
	if t == "" {
		return "text"
	}
	return t
}

func setChecked(n *dom.Node, on bool) {
	if on {
		n.SetAttr("checked", "checked")
	} else {
		n.RemoveAttr("checked")
	}
}

func setSelected(n *dom.Node, on bool) {
	if on {
		n.SetAttr("selected", "selected")
	} else {
		n.RemoveAttr("selected")
	}
}

// optionValue is the submitted value of an <option>.
func optionValue(o *dom.Node) string {
	if v, ok := o.LookupAttr("value"); ok {
		return v
	}
	return o.Text()
}

func labelsOf(choices []Choice) []string {
	out := make([]string, len(choices))
	for i, c := range choices {
		out[i] = c.Label
	}
	return out
}

// resolveChoices maps each wanted value onto the choice whose label or
// token equals it, in the order requested.
func resolveChoices(field string, wanted []string, available []Choice) ([]int, error) {
	var idx []int
	var missing []string
	for _, w := range wanted {
		w = dom.NormalizeSpace(w)
		found := -1
		for i, c := range available {
			if c.Label == w {
				found = i
				break
			}
		}
		if found < 0 {
			for i, c := range available {
				if c.Token == w {
					found = i
					break
				}
			}
		}
		if found < 0 {
			missing = append(missing, w)
			continue
		}
		idx = append(idx, found)
	}
	if len(missing) > 0 {
		return nil, &OptionsNotFoundError{Field: field, Missing: missing, Available: labelsOf(available)}
	}
	return idx, nil
}
