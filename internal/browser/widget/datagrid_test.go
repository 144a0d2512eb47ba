package widget_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/widget"
)

const peopleField = `<form><div class="field" data-fieldname="form.widgets.people">
<label>People</label>
<table class="datagridwidget-table-view">
<thead><tr><th class="header"></th><th>Name</th><th>Role</th><th>Active</th><th>Notes</th><th class="header"></th></tr></thead>
<tbody class="datagridwidget-body">
<tr class="datagridwidget-row">
  <td></td>
  <td class="datagridwidget-cell"><input name="form.widgets.people.0.widgets.name" value="Old"></td>
  <td class="datagridwidget-cell"><select name="form.widgets.people.0.widgets.role"><option>Editor</option><option>Reader</option></select></td>
  <td class="datagridwidget-cell"><input type="checkbox" name="form.widgets.people.0.widgets.active"></td>
  <td class="datagridwidget-cell"><textarea name="form.widgets.people.0.widgets.notes"></textarea></td>
  <td></td>
</tr>
<tr class="datagridwidget-empty-row" style="display: none">
  <td></td>
  <td class="datagridwidget-cell"><input id="form-widgets-people-TT-widgets-name" name="form.widgets.people.TT.widgets.name"></td>
  <td class="datagridwidget-cell"><select name="form.widgets.people.TT.widgets.role"><option>Editor</option><option>Reader</option></select></td>
  <td class="datagridwidget-cell"><input type="checkbox" name="form.widgets.people.TT.widgets.active"></td>
  <td class="datagridwidget-cell"><textarea name="form.widgets.people.TT.widgets.notes"></textarea></td>
  <td><span class="unknown">x</span></td>
</tr>
</tbody></table>
<input type="hidden" name="form.widgets.people.count" value="1">
</div></form>`

func peopleGrid(t *testing.T) (*widget.DataGrid, func(string) string) {
	t.Helper()
	doc := parse(t, peopleField)
	w, err := widget.Default().Find(one(t, doc, "form"), "People")
	require.NoError(t, err)
	require.NotNil(t, w)
	grid, ok := w.(*widget.DataGrid)
	require.True(t, ok, "got %T", w)
	value := func(name string) string {
		rs, err := doc.CSS(`[name="` + name + `"]`)
		require.NoError(t, err)
		n, err := rs.Only()
		require.NoError(t, err, name)
		return n.Attr("value")
	}
	return grid, value
}

func TestDataGrid_Fill(t *testing.T) {
	grid, value := peopleGrid(t)
	assert.Equal(t, "form.widgets.people", grid.FieldName())
	assert.Len(t, grid.Rows(), 1)

	err := grid.Fill(context.Background(), []map[string]any{
		{"Name": "Ann", "Role": "Reader", "Active": true, "Notes": "first"},
		{"Name": "Bob"},
	})
	require.NoError(t, err)

	rows := grid.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "2", value("form.widgets.people.count"))
	assert.Equal(t, "Ann", value("form.widgets.people.0.widgets.name"))
	assert.Equal(t, "Bob", value("form.widgets.people.1.widgets.name"))

	first := rows[0]
	assert.Empty(t, first.Attr("style"))
	assert.Equal(t, "Reader", first.Cells()[2].FindFirst(func(n *dom.Node) bool { return n.HasAttr("selected") }).Text())
	assert.True(t, first.Cells()[3].FindFirst(func(n *dom.Node) bool { return n.Tag() == "input" }).HasAttr("checked"))
	assert.Equal(t, "first", first.Cells()[4].Text())
	assert.NotNil(t, first.FindFirst(func(n *dom.Node) bool { return n.ID() == "form-widgets-people-0-widgets-name" }))

	// The template row survives for the next fill.
	assert.Equal(t, "", value("form.widgets.people.TT.widgets.name"))
}

func TestDataGrid_Errors(t *testing.T) {
	grid, _ := peopleGrid(t)

	err := grid.Fill(context.Background(), []map[string]any{{"Age": "3"}})
	var colErr *widget.ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Equal(t, "Age", colErr.Column)
	assert.Contains(t, err.Error(), `"Name"`)

	err = grid.Fill(context.Background(), []map[string]any{{"Role": "Owner"}})
	var notFound *widget.OptionsNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), `column "Role"`)

	err = grid.Fill(context.Background(), "not rows")
	var invalid *widget.InvalidValueError
	assert.ErrorAs(t, err, &invalid)
}
