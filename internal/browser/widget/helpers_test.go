package widget_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/driver"
)

// mockSession stands in for the browser: navigation plus side requests.
type mockSession struct {
	mock.Mock
}

func (m *mockSession) Navigate(ctx context.Context, req driver.Request) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockSession) Submit(ctx context.Context, form, submitter *dom.Node) error {
	return m.Called(ctx, form, submitter).Error(0)
}

func (m *mockSession) Fetch(ctx context.Context, target string) ([]byte, error) {
	args := m.Called(ctx, target)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

func parse(t *testing.T, src string, opts ...dom.Option) *dom.Document {
	t.Helper()
	base, err := url.Parse("http://nohost/plone/edit")
	require.NoError(t, err)
	doc, err := dom.ParseHTML(src, append([]dom.Option{dom.WithURL(base)}, opts...)...)
	require.NoError(t, err)
	return doc
}

func one(t *testing.T, doc *dom.Document, selector string) *dom.Node {
	t.Helper()
	rs, err := doc.CSS(selector)
	require.NoError(t, err)
	n, err := rs.Only()
	require.NoError(t, err)
	return n
}

func checkedValues(t *testing.T, doc *dom.Document, selector string) []string {
	t.Helper()
	rs, err := doc.CSS(selector + "[checked]")
	require.NoError(t, err)
	var out []string
	for _, n := range rs.Nodes() {
		out = append(out, n.Attr("value"))
	}
	return out
}

const bagField = `<form id="order"><div class="field" id="formfield-form-widgets-bag" data-fieldname="form.widgets.bag">
  <label for="form-widgets-bag" class="horizontal">Bag <span class="required" title="Required">&nbsp;</span></label>
  <span class="option"><input type="radio" id="form-widgets-bag-0" name="bag" value="plastic bag"><label for="form-widgets-bag-0"><span class="label">plastic bag</span></label></span>
  <span class="option"><input type="radio" id="form-widgets-bag-1" name="bag" value="paper bag"><label for="form-widgets-bag-1"><span class="label">paper bag</span></label></span>
  <span class="option"><input type="radio" id="form-widgets-bag-2" name="bag" value="none"><label for="form-widgets-bag-2"><span class="label">No bag</span></label></span>
</div>
<div class="field" data-fieldname="form.widgets.extras">
  <label>Extras</label>
  <span class="option"><label><input type="checkbox" name="form.widgets.extras:list" value="napkins"> Napkins</label></span>
  <span class="option"><label><input type="checkbox" name="form.widgets.extras:list" value="straws" checked> Straws</label></span>
  <span class="option"><label><input type="checkbox" name="form.widgets.extras:list" value="sauce"> Sauce</label></span>
</div>
<input type="submit" name="form.buttons.save" value="Save"></form>`
