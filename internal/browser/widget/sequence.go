// internal/browser/widget/sequence.go
package widget

import (
	"context"
	"strings"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

// SequenceSpec matches a field rendered as a group of option spans that
// all hold radio buttons or all hold checkboxes.
var SequenceSpec = Spec{
	Name:  "sequence",
	Match: matchSequence,
	New:   func(n *dom.Node) (Widget, error) { return NewSequence(n), nil },
}

func matchSequence(n *dom.Node) bool {
	if !isField(n) {
		return false
	}
	inputs := sequenceInputs(n)
	if len(inputs) == 0 || !ownedBy(n, inputs[0]) {
		return false
	}
	first := controlType(inputs[0])
	if first != "radio" && first != "checkbox" {
		return false
	}
	for _, in := range inputs[1:] {
		if controlType(in) != first {
			return false
		}
	}
	return true
}

func sequenceInputs(n *dom.Node) []*dom.Node {
	var out []*dom.Node
	for _, span := range findAll(n, isOptionSpan) {
		out = append(out, findAll(span, byTag("input"))...)
	}
	return out
}

// Sequence is a radio or checkbox group.
type Sequence struct {
	node   *dom.Node
	inputs []*dom.Node
}

func NewSequence(n *dom.Node) *Sequence {
	return &Sequence{node: n, inputs: sequenceInputs(n)}
}

func (s *Sequence) Name() string    { return "sequence" }
func (s *Sequence) Node() *dom.Node { return s.node }
func (s *Sequence) Label() string   { return fieldLabel(s.node) }

func (s *Sequence) FieldName() string {
	if name := s.node.Attr("data-fieldname"); name != "" {
		return name
	}
	if len(s.inputs) == 0 {
		return ""
	}
	return strings.TrimSuffix(s.inputs[0].Attr("name"), ":list")
}

// Multiple reports whether several options may be selected.
func (s *Sequence) Multiple() bool {
	for _, in := range s.inputs {
		if controlType(in) == "checkbox" {
			return true
		}
	}
	return false
}

// Options returns every option, in document order.
func (s *Sequence) Options() []Choice {
	out := make([]Choice, len(s.inputs))
	for i, in := range s.inputs {
		out[i] = Choice{Token: in.Attr("value"), Label: optionLabel(in)}
	}
	return out
}

// SelectedLabels returns the labels of the checked options.
func (s *Sequence) SelectedLabels() []string {
	var out []string
	for _, in := range s.inputs {
		if in.HasAttr("checked") {
			out = append(out, optionLabel(in))
		}
	}
	return out
}

// Fill checks exactly the options named by value, by label or token.
func (s *Sequence) Fill(_ context.Context, value any) error {
	field := s.FieldName()
	wanted, err := stringsOf(field, value)
	if err != nil {
		return err
	}
	if !s.Multiple() && len(wanted) > 1 {
		return &OnlyOneValueAllowedError{Field: field, Values: wanted}
	}
	idx, err := resolveChoices(field, wanted, s.Options())
	if err != nil {
		return err
	}
	for _, in := range s.inputs {
		setChecked(in, false)
	}
	for _, i := range idx {
		setChecked(s.inputs[i], true)
	}
	return nil
}

// optionLabel is the text shown next to an option input.
func optionLabel(in *dom.Node) string {
	span := in.Closest(isOptionSpan)
	if span != nil {
		if l := span.FindFirst(byTag("label")); l != nil && l.Text() != "" {
			return l.Text()
		}
		if text := span.Text(); text != "" {
			return text
		}
	}
	return inputLabel(in)
}
