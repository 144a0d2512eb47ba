// internal/browser/widget/datagrid.go
package widget

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

// DataGridSpec matches a repeating-row grid with a hidden template row.
var DataGridSpec = Spec{
	Name:  "datagrid",
	Match: matchDataGrid,
	New:   newDataGrid,
}

func isGridTable(n *dom.Node) bool {
	return n.Tag() == "table" && n.HasClass("datagridwidget-table-view")
}

func matchDataGrid(n *dom.Node) bool {
	return isField(n) && n.FindFirst(func(c *dom.Node) bool { return isGridTable(c) && ownedBy(n, c) }) != nil
}

const templateToken = "TT"

// DataGrid fills one table row per value, cloned from the template row.
type DataGrid struct {
	node     *dom.Node
	table    *dom.Table
	template *dom.Node
}

func newDataGrid(n *dom.Node) (Widget, error) {
	tn := n.FindFirst(isGridTable)
	table, ok := tn.AsTable()
	if !ok {
		return nil, fmt.Errorf("data grid %s has no table", n)
	}
	template := tn.FindFirst(func(r *dom.Node) bool {
		return r.Tag() == "tr" && r.HasClass("datagridwidget-empty-row")
	})
	if template == nil {
		return nil, fmt.Errorf("data grid %s has no template row", n)
	}
	return &DataGrid{node: n, table: table, template: template}, nil
}

func (g *DataGrid) Name() string    { return "datagrid" }
func (g *DataGrid) Node() *dom.Node { return g.node }
func (g *DataGrid) Label() string   { return fieldLabel(g.node) }

func (g *DataGrid) FieldName() string {
	if name := g.node.Attr("data-fieldname"); name != "" {
		return name
	}
	if c := g.counter(); c != nil {
		return strings.TrimSuffix(c.Attr("name"), ".count")
	}
	return ""
}

func (g *DataGrid) counter() *dom.Node {
	return g.node.FindFirst(func(n *dom.Node) bool {
		return n.Tag() == "input" && strings.HasSuffix(n.Attr("name"), ".count")
	})
}

// Rows returns the filled rows, without the template.
func (g *DataGrid) Rows() []*dom.Row {
	var out []*dom.Row
	for _, r := range g.table.Rows() {
		if r.HasClass("datagridwidget-row") {
			out = append(out, r)
		}
	}
	return out
}

// Columns returns the column titles, blank for the control columns.
func (g *DataGrid) Columns() []string {
	return g.table.Header()
}

// Fill replaces every row. value is a list of rows keyed by column title.
func (g *DataGrid) Fill(ctx context.Context, value any) error {
	rows, err := gridRows(g.FieldName(), value)
	if err != nil {
		return err
	}
	columns := g.Columns()

	for _, r := range g.Rows() {
		r.Remove()
	}
	for i, values := range rows {
		row := g.template.Clone()
		renumber(row, i)
		row.RemoveAttr("style")
		row.SetAttr("class", strings.TrimSpace(strings.Replace(row.Attr("class"), "datagridwidget-empty-row", "datagridwidget-row", 1)))
		g.template.Parent().InsertBefore(row, g.template)

		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, column := range keys {
			idx := indexOfColumn(columns, column)
			if idx < 0 {
				return &ColumnError{Column: column, Reason: fmt.Sprintf("no such column; columns are %s", quoteAll(nonBlank(columns)))}
			}
			cell := cellAt(row, idx)
			if cell == nil {
				return &ColumnError{Column: column, Reason: fmt.Sprintf("row %d has no cell for it", i)}
			}
			if err := fillCell(ctx, column, cell, values[column]); err != nil {
				return err
			}
		}
	}
	if c := g.counter(); c != nil {
		c.SetAttr("value", strconv.Itoa(len(rows)))
	}
	return nil
}

func gridRows(field string, value any) ([]map[string]any, error) {
	switch v := value.(type) {
	case []map[string]any:
		return v, nil
	case []map[string]string:
		out := make([]map[string]any, len(v))
		for i, row := range v {
			m := make(map[string]any, len(row))
			for k, val := range row {
				m[k] = val
			}
			out[i] = m
		}
		return out, nil
	}
	return nil, &InvalidValueError{Field: field, Value: value, Expected: "a list of rows keyed by column title"}
}

// renumber rewrites the template token in the names, ids and label
// targets of a cloned row.
func renumber(row *dom.Node, index int) {
	n := strconv.Itoa(index)
	replacer := strings.NewReplacer(
		"."+templateToken+".", "."+n+".",
		"-"+templateToken+"-", "-"+n+"-",
	)
	for _, el := range append([]*dom.Node{row}, row.Descendants()...) {
		for _, attr := range []string{"name", "id", "for"} {
			if v, ok := el.LookupAttr(attr); ok {
				el.SetAttr(attr, replacer.Replace(v))
			}
		}
	}
}

func cellAt(row *dom.Node, column int) *dom.Node {
	r, ok := row.AsRow()
	if !ok {
		return nil
	}
	for _, c := range r.Cells() {
		if c.ColumnIndex() == column {
			return c.Node
		}
	}
	return nil
}

func indexOfColumn(columns []string, title string) int {
	title = dom.NormalizeSpace(title)
	for i, c := range columns {
		if c == title && c != "" {
			return i
		}
	}
	return -1
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// cellHandlers are tried in order on the cell of each column.
var cellHandlers = []struct {
	name  string
	match func(cell *dom.Node) *dom.Node
	fill  func(ctx context.Context, target *dom.Node, value any) error
}{
	{
		name: "autocomplete",
		match: func(cell *dom.Node) *dom.Node {
			if matchAjaxSelect(cell) {
				return cell
			}
			return cell.FindFirst(isSelect2Input)
		},
		fill: func(ctx context.Context, target *dom.Node, value any) error {
			return NewAjaxSelect(target).Fill(ctx, value)
		},
	},
	{name: "select", match: firstControl(byTag("select")), fill: FillControl},
	{name: "checkbox", match: firstControl(inputOfType("checkbox")), fill: FillControl},
	{name: "textarea", match: firstControl(byTag("textarea")), fill: FillControl},
	{
		name:  "text",
		match: firstControl(inputOfType("text", "email", "number", "url", "tel", "password", "date", "search")),
		fill:  FillControl,
	},
}

func firstControl(pred func(*dom.Node) bool) func(*dom.Node) *dom.Node {
	return func(cell *dom.Node) *dom.Node { return cell.FindFirst(pred) }
}

func fillCell(ctx context.Context, column string, cell *dom.Node, value any) error {
	for _, h := range cellHandlers {
		if target := h.match(cell); target != nil {
			if err := h.fill(ctx, target, value); err != nil {
				return fmt.Errorf("data grid column %q: %w", column, err)
			}
			return nil
		}
	}
	return &ColumnError{Column: column, Reason: "unsupported cell content"}
}
