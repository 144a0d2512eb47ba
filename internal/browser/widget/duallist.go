// internal/browser/widget/duallist.go
package widget

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

// DualListSpec matches an ordered chooser made of a "from" list of
// available options and a "to" list of chosen ones.
var DualListSpec = Spec{
	Name:  "duallist",
	Match: matchDualList,
	New:   newDualList,
}

// listSelect finds the select of n's own field whose name ends in suffix.
func listSelect(n *dom.Node, suffix string) *dom.Node {
	return n.FindFirst(func(c *dom.Node) bool {
		return c.Tag() == "select" && strings.HasSuffix(c.Attr("name"), suffix) && ownedBy(n, c)
	})
}

func matchDualList(n *dom.Node) bool {
	if !isField(n) {
		return false
	}
	from, to := listSelect(n, ".from"), listSelect(n, ".to")
	if from == nil || to == nil {
		return false
	}
	return strings.TrimSuffix(from.Attr("name"), ".from") == strings.TrimSuffix(to.Attr("name"), ".to")
}

// DualList moves options between its two lists and mirrors the chosen
// ones into hidden inputs, which is what the application reads.
type DualList struct {
	node *dom.Node
	from *dom.Node
	to   *dom.Node
}

func newDualList(n *dom.Node) (Widget, error) {
	from, to := listSelect(n, ".from"), listSelect(n, ".to")
	if from == nil || to == nil {
		return nil, fmt.Errorf("dual list %s lacks its from or to list", n)
	}
	return &DualList{node: n, from: from, to: to}, nil
}

func (d *DualList) Name() string    { return "duallist" }
func (d *DualList) Node() *dom.Node { return d.node }
func (d *DualList) Label() string   { return fieldLabel(d.node) }

func (d *DualList) FieldName() string {
	return strings.TrimSuffix(d.from.Attr("name"), ".from")
}

// container holds the hidden inputs; the "to" list's parent when the
// page has no dedicated element.
func (d *DualList) container() *dom.Node {
	if c := d.node.FindFirst(func(n *dom.Node) bool { return strings.HasSuffix(n.ID(), "-toDataContainer") }); c != nil {
		return c
	}
	return d.to.Parent()
}

// SelectedLabels returns the chosen labels in their order.
func (d *DualList) SelectedLabels() []string {
	_, choices := selectChoices(d.to)
	return labelsOf(choices)
}

// Available returns every option of both lists.
func (d *DualList) Available() []Choice {
	_, from := selectChoices(d.from)
	_, to := selectChoices(d.to)
	return append(from, to...)
}

// Fill makes the "to" list hold exactly the named options, in the order
// given.
func (d *DualList) Fill(_ context.Context, value any) error {
	field := d.FieldName()
	wanted, err := stringsOf(field, value)
	if err != nil {
		return err
	}

	fromOpts, fromChoices := selectChoices(d.from)
	toOpts, toChoices := selectChoices(d.to)
	options := append(fromOpts, toOpts...)
	choices := append(fromChoices, toChoices...)
	idx, err := resolveChoices(field, wanted, choices)
	if err != nil {
		return err
	}
	for _, o := range toOpts {
		d.from.AppendChild(o)
	}

	container := d.container()
	for _, old := range findAll(container, func(n *dom.Node) bool {
		return n.Tag() == "input" && n.Attr("name") == field+":list"
	}) {
		old.Remove()
	}
	for _, o := range options {
		setSelected(o, false)
	}
	doc := d.node.Document()
	seen := make(map[int]bool, len(idx))
	for _, i := range idx {
		if seen[i] {
			continue
		}
		seen[i] = true
		d.to.AppendChild(options[i])
		container.AppendChild(doc.CreateElement("input",
			"type", "hidden",
			"name", field+":list",
			"value", choices[i].Token,
		))
	}
	return nil
}
