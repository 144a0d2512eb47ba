package widget_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/testbrowser/internal/browser/widget"
)

const colorsField = `<form><div class="field" id="formfield-form-widgets-colors">
<label for="form-widgets-colors-from">Colors</label>
<table><tr>
 <td><select id="form-widgets-colors-from" name="form.widgets.colors.from" multiple>
   <option value="red">Red</option><option value="green">Green</option><option value="blue">Blue</option>
 </select></td>
 <td><button name="from2toButton" type="button">&rarr;</button></td>
 <td><select id="form-widgets-colors-to" name="form.widgets.colors.to" multiple>
   <option value="black" selected>Black</option>
 </select>
 <span id="form-widgets-colors-toDataContainer"><input type="hidden" name="form.widgets.colors:list" value="black"></span></td>
</tr></table>
<input name="form.widgets.colors-empty-marker" type="hidden" value="1">
</div></form>`

func TestDualList_FillKeepsOrder(t *testing.T) {
	doc := parse(t, colorsField)
	w, err := widget.Default().Find(one(t, doc, "form"), "Colors")
	require.NoError(t, err)
	require.NotNil(t, w)
	dl, ok := w.(*widget.DualList)
	require.True(t, ok)
	assert.Equal(t, "form.widgets.colors", dl.FieldName())
	assert.Equal(t, []string{"Black"}, dl.SelectedLabels())

	require.NoError(t, dl.Fill(context.Background(), []string{"Blue", "red"}))
	assert.Equal(t, []string{"Blue", "Red"}, dl.SelectedLabels())

	rs, err := doc.CSS(`#form-widgets-colors-toDataContainer input`)
	require.NoError(t, err)
	var values []string
	for _, n := range rs.Nodes() {
		assert.Equal(t, "form.widgets.colors:list", n.Attr("name"))
		values = append(values, n.Attr("value"))
	}
	assert.Equal(t, []string{"blue", "red"}, values)

	// Black went back to the available list and nothing stays selected.
	from, err := doc.CSS(`#form-widgets-colors-from option`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Green", "Black"}, from.TextContent())
	selected, err := doc.CSS(`option[selected]`)
	require.NoError(t, err)
	assert.Equal(t, 0, selected.Len())
}

func TestDualList_UnknownLeavesStateAlone(t *testing.T) {
	doc := parse(t, colorsField)
	w, err := widget.Default().Find(one(t, doc, "form"), "form.widgets.colors")
	require.NoError(t, err)
	require.NotNil(t, w)

	err = w.Fill(context.Background(), []string{"Red", "Purple"})
	var notFound *widget.OptionsNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"Purple"}, notFound.Missing)
	assert.Equal(t, []string{"Red", "Green", "Blue", "Black"}, notFound.Available)
	assert.Equal(t, []string{"Black"}, w.(*widget.DualList).SelectedLabels())
}

const fruitsField = `<div class="field" id="formfield-form-widgets-fruits">
<label for="form-widgets-fruits-from">Fruits</label>
<select id="form-widgets-fruits-from" name="form.widgets.fruits.from" multiple>
  <option value="apple">Apple</option><option value="pear">Pear</option>
</select>
<select id="form-widgets-fruits-to" name="form.widgets.fruits.to" multiple></select>
</div>`

func TestDualList_WrapperHoldsSeveralFields(t *testing.T) {
	wrappers := map[string]string{
		"plain div": `<form><div id="content-core">%s%s</div></form>`,
		"field div": `<form><div class="field" id="fieldset-default">%s%s</div></form>`,
	}
	bag := strings.TrimSuffix(strings.TrimPrefix(bagField, `<form id="order">`), `<input type="submit" name="form.buttons.save" value="Save"></form>`)

	for name, wrapper := range wrappers {
		t.Run(name, func(t *testing.T) {
			doc := parse(t, fmt.Sprintf(wrapper, bag, fruitsField))
			form := one(t, doc, "form")
			reg := widget.Default()

			widgets, err := reg.Widgets(form)
			require.NoError(t, err)
			var names []string
			for _, w := range widgets {
				names = append(names, w.Name()+":"+w.Label())
			}
			assert.Equal(t, []string{"sequence:Bag", "sequence:Extras", "duallist:Fruits"}, names)

			bagWidget, err := reg.Find(form, "Bag")
			require.NoError(t, err)
			require.IsType(t, &widget.Sequence{}, bagWidget)
			require.NoError(t, bagWidget.Fill(context.Background(), "paper bag"))
			assert.Equal(t, []string{"paper bag"}, checkedValues(t, doc, `[name=bag]`))

			fruits, err := reg.Find(form, "Fruits")
			require.NoError(t, err)
			require.IsType(t, &widget.DualList{}, fruits)
			require.NoError(t, fruits.Fill(context.Background(), []string{"Pear"}))
			assert.Equal(t, []string{"Pear"}, fruits.(*widget.DualList).SelectedLabels())

			w, err := reg.Claim(one(t, doc, "#form-widgets-fruits-to"), form)
			require.NoError(t, err)
			assert.Same(t, fruits.Node().Raw(), w.Node().Raw())
		})
	}
}

func TestDualList_MismatchedListsAreNotAWidget(t *testing.T) {
	doc := parse(t, `<form><div class="field">
<select name="form.widgets.a.from" multiple></select>
<select name="form.widgets.b.to" multiple></select>
</div></form>`)
	_, ok := widget.Default().Lookup(one(t, doc, "div.field"))
	assert.False(t, ok)
}

func TestDualList_FillIgnoresRepeatedValues(t *testing.T) {
	doc := parse(t, colorsField)
	w, err := widget.Default().Find(one(t, doc, "form"), "Colors")
	require.NoError(t, err)
	require.NotNil(t, w)

	require.NoError(t, w.Fill(context.Background(), []string{"Green", "green", "Green"}))
	assert.Equal(t, []string{"Green"}, w.(*widget.DualList).SelectedLabels())

	rs, err := doc.CSS(`input[name="form.widgets.colors:list"]`)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	assert.Equal(t, "green", rs.Nodes()[0].Attr("value"))
}
