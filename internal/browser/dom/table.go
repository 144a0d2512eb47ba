// internal/browser/dom/table.go
package dom

import (
	"strconv"
)

// Table is the tabular view of a <table> node.
type Table struct{ *Node }

// Row is the view of a <tr> node.
type Row struct{ *Node }

// Cell is the view of a <td> or <th> node.
type Cell struct{ *Node }

func (n *Node) AsTable() (*Table, bool) {
	if n.kind != KindTable {
		return nil, false
	}
	return &Table{n}, true
}

func (n *Node) AsRow() (*Row, bool) {
	if n.kind != KindRow {
		return nil, false
	}
	return &Row{n}, true
}

func (n *Node) AsCell() (*Cell, bool) {
	if n.kind != KindCell {
		return nil, false
	}
	return &Cell{n}, true
}

type section int

const (
	sectionBody section = iota
	sectionHead
	sectionFoot
)

type sectionedRow struct {
	row     *Row
	section section
}

// rows lists the rows that belong to this table, not to nested ones.
func (t *Table) rows() []sectionedRow {
	var out []sectionedRow
	for _, child := range t.Children() {
		switch child.Tag() {
		case "tr":
			out = append(out, sectionedRow{&Row{child}, sectionBody})
		case "thead", "tbody", "tfoot":
			sec := sectionBody
			if child.Tag() == "thead" {
				sec = sectionHead
			} else if child.Tag() == "tfoot" {
				sec = sectionFoot
			}
			for _, tr := range child.Children() {
				if tr.Tag() == "tr" {
					out = append(out, sectionedRow{&Row{tr}, sec})
				}
			}
		}
	}

	// Without a thead, a leading row made only of th cells is the head.
	hasHead := false
	for _, r := range out {
		if r.section == sectionHead {
			hasHead = true
			break
		}
	}
	if !hasHead && len(out) > 0 && out[0].section == sectionBody {
		cells := out[0].row.Cells()
		allTH := len(cells) > 0
		for _, c := range cells {
			if c.Tag() != "th" {
				allTH = false
				break
			}
		}
		if allTH {
			out[0].section = sectionHead
		}
	}
	return out
}

func (t *Table) rowsIn(sec section) []*Row {
	var out []*Row
	for _, r := range t.rows() {
		if r.section == sec {
			out = append(out, r.row)
		}
	}
	return out
}

// Rows returns every row in document order.
func (t *Table) Rows() []*Row {
	var out []*Row
	for _, r := range t.rows() {
		out = append(out, r.row)
	}
	return out
}

func (t *Table) HeadRows() []*Row { return t.rowsIn(sectionHead) }
func (t *Table) BodyRows() []*Row { return t.rowsIn(sectionBody) }
func (t *Table) FootRows() []*Row { return t.rowsIn(sectionFoot) }

// Lists returns the cell texts of every row.
func (t *Table) Lists() [][]string {
	var out [][]string
	for _, r := range t.Rows() {
		out = append(out, r.Texts())
	}
	return out
}

// Header returns the column titles: the last head row, or the first row
// when the table has no head.
func (t *Table) Header() []string {
	if head := t.HeadRows(); len(head) > 0 {
		return head[len(head)-1].columns()
	}
	if rows := t.Rows(); len(rows) > 0 {
		return rows[0].columns()
	}
	return nil
}

// dataRows are the rows described by Header.
func (t *Table) dataRows() []*Row {
	if len(t.HeadRows()) > 0 {
		return t.BodyRows()
	}
	body := t.BodyRows()
	if len(body) > 0 {
		return body[1:]
	}
	return nil
}

// Dicts maps every data row onto the header titles.
func (t *Table) Dicts() []map[string]string {
	header := t.Header()
	var out []map[string]string
	for _, r := range t.dataRows() {
		out = append(out, zipRow(header, r.columns()))
	}
	return out
}

// Column returns the texts of the data rows below the column titled title.
func (t *Table) Column(title string) []string {
	idx := indexOf(t.Header(), title)
	if idx < 0 {
		return nil
	}
	var out []string
	for _, r := range t.dataRows() {
		cols := r.columns()
		if idx < len(cols) {
			out = append(out, cols[idx])
		} else {
			out = append(out, "")
		}
	}
	return out
}

// Cell returns the cell at row and col (zero based, over all rows).
func (t *Table) Cell(row, col int) *Cell {
	rows := t.Rows()
	if row < 0 || row >= len(rows) {
		return nil
	}
	cells := rows[row].Cells()
	if col < 0 || col >= len(cells) {
		return nil
	}
	return cells[col]
}

// Cells returns the td and th children.
func (r *Row) Cells() []*Cell {
	var out []*Cell
	for _, c := range r.Children() {
		if c.Tag() == "td" || c.Tag() == "th" {
			out = append(out, &Cell{c})
		}
	}
	return out
}

// Texts returns the normalized text of each cell.
func (r *Row) Texts() []string {
	cells := r.Cells()
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.Text()
	}
	return out
}

// columns expands colspans so every column position has a text.
func (r *Row) columns() []string {
	var out []string
	for _, c := range r.Cells() {
		text := c.Text()
		for i := 0; i < c.span(); i++ {
			out = append(out, text)
		}
	}
	return out
}

// Table returns the table the row belongs to.
func (r *Row) Table() *Table {
	if t := r.Closest(func(n *Node) bool { return n.Tag() == "table" }); t != nil {
		return &Table{t}
	}
	return nil
}

// Dict maps the row onto the table header.
func (r *Row) Dict() map[string]string {
	t := r.Table()
	if t == nil {
		return nil
	}
	return zipRow(t.Header(), r.columns())
}

func (c *Cell) span() int {
	if n, err := strconv.Atoi(c.Attr("colspan")); err == nil && n > 1 {
		return n
	}
	return 1
}

func (c *Cell) Row() *Row {
	if p := c.Parent(); p != nil && p.Tag() == "tr" {
		return &Row{p}
	}
	return nil
}

func (c *Cell) Table() *Table {
	if r := c.Row(); r != nil {
		return r.Table()
	}
	return nil
}

// ColumnIndex is the zero based column position, counting colspans.
func (c *Cell) ColumnIndex() int {
	r := c.Row()
	if r == nil {
		return -1
	}
	idx := 0
	for _, sib := range r.Cells() {
		if sib.Equal(c.Node) {
			return idx
		}
		idx += sib.span()
	}
	return -1
}

// Header returns the title of the cell's column.
func (c *Cell) Header() string {
	t := c.Table()
	if t == nil {
		return ""
	}
	header := t.Header()
	if idx := c.ColumnIndex(); idx >= 0 && idx < len(header) {
		return header[idx]
	}
	return ""
}

func zipRow(header, values []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(values) {
			m[h] = values[i]
		} else {
			m[h] = ""
		}
	}
	return m
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
