package widget_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/widget"
)

const subjectsField = `<form><div class="field" id="subjects" data-fieldname="form.widgets.subjects">
<label for="form-widgets-subjects-widgets-query">Subjects</label>
<div class="autocompleteInputWidget" id="form-widgets-subjects-autocomplete">
  <span class="option"><label><input type="checkbox" name="form.widgets.subjects:list" value="news" checked><span class="label">News</span></label></span>
</div>
<input type="text" id="form-widgets-subjects-widgets-query" name="form.widgets.subjects.widgets.query">
<script type="text/javascript">
(function($) {
  $().ready(function() {
    $('#form-widgets-subjects-widgets-query').autocomplete('++widget++form.widgets.subjects/@@autocomplete-search', {
      autoFill: true, minChars: 2, max: 10
    }).result(function(event, data, formatted) {});
  });
})(jQuery);
</script>
<input name="form.widgets.subjects-empty-marker" type="hidden" value="1">
</div></form>`

const tagsField = `<form><label for="tags">Tags</label>
<input type="text" id="tags" class="pat-select2" name="form.widgets.tags" value="a;b"
  data-pat-select2='{"separator": ";", "vocabularyUrl": "http://nohost/plone/@@getVocabulary?name=tags"}'>
</form>`

func subjectsWidget(t *testing.T, session dom.Session) (*widget.AjaxSelect, *dom.Document) {
	t.Helper()
	var opts []dom.Option
	if session != nil {
		opts = append(opts, dom.WithSession(session))
	}
	doc := parse(t, subjectsField, opts...)
	w, err := widget.Default().Find(one(t, doc, "form"), "Subjects")
	require.NoError(t, err)
	require.NotNil(t, w)
	ajax, ok := w.(*widget.AjaxSelect)
	require.True(t, ok, "got %T", w)
	return ajax, doc
}

func TestAjaxSelect_Shape(t *testing.T) {
	ajax, _ := subjectsWidget(t, nil)
	assert.Equal(t, "form.widgets.subjects", ajax.FieldName())
	assert.True(t, ajax.Multiple())
	assert.Equal(t, []widget.Choice{{Token: "news", Label: "News"}}, ajax.Selected())

	endpoint, err := ajax.Endpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://nohost/plone/++widget++form.widgets.subjects/@@autocomplete-search", endpoint.String())
}

func TestAjaxSelect_QueryUsesSideSession(t *testing.T) {
	session := &mockSession{}
	session.On("Fetch", mock.Anything,
		"http://nohost/plone/++widget++form.widgets.subjects/@@autocomplete-search?q=sp").
		Return([]byte("sports|Sports\nspace|Outer Space\n"), nil).Once()
	ajax, _ := subjectsWidget(t, session)

	choices, err := ajax.Query(context.Background(), "sp")
	require.NoError(t, err)
	assert.Equal(t, []widget.Choice{{Token: "sports", Label: "Sports"}, {Token: "space", Label: "Outer Space"}}, choices)
	session.AssertExpectations(t)
}

func TestAjaxSelect_QueryWithoutSession(t *testing.T) {
	ajax, _ := subjectsWidget(t, nil)
	_, err := ajax.Query(context.Background(), "x")
	assert.ErrorIs(t, err, widget.ErrNoSideSession)
}

func TestAjaxSelect_FillSynthesizesOptions(t *testing.T) {
	session := &mockSession{}
	session.On("Fetch", mock.Anything, mock.MatchedBy(func(u string) bool { return true })).
		Return([]byte("sports|Sports\nspace|Outer Space"), nil)
	ajax, doc := subjectsWidget(t, session)

	// "News" is already selected and needs no lookup.
	require.NoError(t, ajax.Fill(context.Background(), []string{"News", "Outer Space"}))
	assert.Equal(t, []widget.Choice{{Token: "news", Label: "News"}, {Token: "space", Label: "Outer Space"}}, ajax.Selected())
	session.AssertNumberOfCalls(t, "Fetch", 1)

	rs, err := doc.CSS(`#form-widgets-subjects-autocomplete input[type=hidden]`)
	require.NoError(t, err)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, "form.widgets.subjects:list", rs.At(1).Attr("name"))
	assert.Equal(t, "space", rs.At(1).Attr("value"))

	err = ajax.Fill(context.Background(), "Nothing")
	var notFound *widget.OptionsNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, []string{"Sports", "Outer Space"}, notFound.Available)
}

func TestAjaxSelect_Select2(t *testing.T) {
	session := &mockSession{}
	session.On("Fetch", mock.Anything, "http://nohost/plone/@@getVocabulary?name=tags&query=c").
		Return([]byte(`{"results": [{"id": "c", "text": "Cats"}, {"id": 7, "text": "Seven"}], "total": 2}`), nil)
	doc := parse(t, tagsField, dom.WithSession(session))

	w, err := widget.Default().Find(one(t, doc, "form"), "Tags")
	require.NoError(t, err)
	require.NotNil(t, w)
	ajax := w.(*widget.AjaxSelect)
	assert.Equal(t, "form.widgets.tags", ajax.FieldName())
	assert.Equal(t, []widget.Choice{{Token: "a", Label: "a"}, {Token: "b", Label: "b"}}, ajax.Selected())

	choices, err := ajax.Query(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, []widget.Choice{{Token: "c", Label: "Cats"}, {Token: "7", Label: "Seven"}}, choices)

	require.NoError(t, ajax.Fill(context.Background(), []any{"b", widget.Choice{Token: "c", Label: "Cats"}.Token}))
	assert.Equal(t, "b;c", one(t, doc, `#tags`).Attr("value"))
}

func TestAjaxSelect_SingleValued(t *testing.T) {
	doc := parse(t, `<form><div class="field" id="owner">
<label>Owner</label>
<div class="autocompleteInputWidget"><span class="option"><input type="radio" name="form.widgets.owner:list" value="ann" checked> Ann</span></div>
<input name="form.widgets.owner-empty-marker" type="hidden" value="1">
</div></form>`)
	w, err := widget.Default().Find(one(t, doc, "form"), "Owner")
	require.NoError(t, err)
	require.NotNil(t, w)
	ajax := w.(*widget.AjaxSelect)
	assert.False(t, ajax.Multiple())

	err = ajax.Fill(context.Background(), []widget.Choice{{Token: "a"}, {Token: "b"}})
	var tooMany *widget.OnlyOneValueAllowedError
	assert.ErrorAs(t, err, &tooMany)
}
