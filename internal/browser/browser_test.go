package browser_test

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/testbrowser/internal/browser"
	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/driver"
	"github.com/xkilldash9x/testbrowser/internal/browser/form"
	"github.com/xkilldash9x/testbrowser/internal/config"
)

func contents(t *testing.T, b *browser.Browser) string {
	t.Helper()
	c, err := b.Contents()
	require.NoError(t, err)
	return c
}

func TestBrowser_BlankPage(t *testing.T) {
	b, _ := newTestBrowser(t, nil)

	_, err := b.Contents()
	assert.ErrorIs(t, err, driver.ErrBlankPage)
	_, err = b.Document()
	assert.ErrorIs(t, err, driver.ErrBlankPage)
	assert.ErrorIs(t, b.Reload(context.Background()), driver.ErrBlankPage)
	assert.Equal(t, "", b.URL())
	assert.Equal(t, 0, b.Status())
	assert.Empty(t, b.Headers())
	assert.Empty(t, b.Cookies())
}

func TestBrowser_OpenResolvesAgainstBaseURL(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)

	require.NoError(t, b.Open(ctx, "echo", browser.WithData(url.Values{"q": {"plone"}})))
	assert.Equal(t, "GET /plone/echo?q=plone referer= body= custom= suppress=1 auth=", contents(t, b))
	assert.Equal(t, "http://nohost/plone/echo?q=plone", b.URL())
	assert.Equal(t, http.StatusOK, b.Status())
	assert.Equal(t, "OK", b.Reason())
	assert.Equal(t, "text/plain", b.Headers().Get("Content-Type"))

	// Relative to the current page now.
	require.NoError(t, b.Open(ctx, "news"))
	assert.Equal(t, "http://nohost/plone/news", b.URL())
}

func TestBrowser_ReloadReplaysRequest(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)

	require.NoError(t, b.Open(ctx, "echo",
		browser.WithMethod("post"),
		browser.WithData(url.Values{"a": {"1"}}),
		browser.WithReferer("http://nohost/plone/start"),
		browser.WithHeaders(http.Header{"X-Custom": {"yes"}})))
	want := "POST /plone/echo referer=http://nohost/plone/start body=a=1 custom=yes suppress=1 auth="
	assert.Equal(t, want, contents(t, b))

	require.NoError(t, b.Reload(ctx))
	assert.Equal(t, want, contents(t, b))
}

func TestBrowser_RawBody(t *testing.T) {
	b, _ := newTestBrowser(t, nil)

	require.NoError(t, b.Open(context.Background(), "echo",
		browser.WithMethod(http.MethodPut),
		browser.WithBody([]byte(`{"title": "x"}`), "application/json")))
	assert.Equal(t, `PUT /plone/echo referer= body={"title": "x"} custom= suppress=1 auth=`, contents(t, b))
}

func TestBrowser_SuppressResourcesHeader(t *testing.T) {
	ctx := context.Background()

	t.Run("sent by default and kept across Reset", func(t *testing.T) {
		b, _ := newTestBrowser(t, nil)
		require.NoError(t, b.Reset())
		require.NoError(t, b.Open(ctx, "echo"))
		assert.Contains(t, contents(t, b), "suppress=1")
	})

	t.Run("disabled by configuration", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Browser.SuppressResources = false
		b, _ := newTestBrowser(t, cfg)
		require.NoError(t, b.Open(ctx, "echo"))
		assert.Contains(t, contents(t, b), "suppress= ")
	})
}

func TestBrowser_ClickOn(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)
	require.NoError(t, b.Open(ctx, "http://nohost/plone/"))

	title, err := b.Title()
	require.NoError(t, err)
	assert.Equal(t, "Plone site", title)

	link, err := b.Find("Upcoming events")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.Equal(t, "Events", link.Text())

	missing, err := b.Find("Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = b.ClickOn(ctx, "Nope")
	var notFound *dom.NoElementFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, err.Error(), `click_on("Nope")`)
	assert.Contains(t, err.Error(), `"Log in"`)

	require.NoError(t, b.ClickOn(ctx, "News"))
	assert.Equal(t, "http://nohost/plone/news", b.URL())
	title, err = b.Title()
	require.NoError(t, err)
	assert.Equal(t, "News", title)
}

func TestBrowser_FillAndSubmitLoginForm(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)
	require.NoError(t, b.Open(ctx, "http://nohost/plone/"))

	forms, err := b.Forms()
	require.NoError(t, err)
	assert.Len(t, forms, 2)

	f, err := b.Fill(ctx, form.Values{"Login Name": "admin", "Password": "secret"})
	require.NoError(t, err)
	assert.Equal(t, "login_form", f.ID())
	require.NoError(t, f.ClickButton(ctx, "Log in"))

	assert.Equal(t, "http://nohost/plone/", b.URL())
	require.Contains(t, b.Cookies(), "__ac")
	assert.Equal(t, "admin", b.Cookies()["__ac"].Value)

	_, err = b.Fill(ctx, form.Values{"Login Name": "admin", "Search Site": "news"})
	var ambiguous *form.AmbiguousFormFieldsError
	assert.ErrorAs(t, err, &ambiguous)
}

func TestBrowser_HTTPErrors(t *testing.T) {
	ctx := context.Background()
	b, diagnostics := newTestBrowser(t, nil)

	err := b.Open(ctx, "missing")
	var clientErr *browser.HTTPClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusNotFound, clientErr.StatusCode())
	assert.Equal(t, "HTTP Error 404: Not Found (GET http://nohost/plone/missing)", err.Error())
	assert.Equal(t, http.StatusNotFound, b.Status())
	assert.NotContains(t, diagnostics.String(), "reproduce with")

	err = b.Open(ctx, "fail")
	var serverErr *browser.HTTPServerError
	require.ErrorAs(t, err, &serverErr)
	var httpErr browser.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "Internal Server Error", httpErr.ReasonPhrase())

	report := diagnostics.String()
	assert.Contains(t, report, "500 Internal Server Error: GET http://nohost/plone/fail")
	assert.Contains(t, report, "database on fire")
	assert.Contains(t, report, "reproduce with: curl -i -X GET http://nohost/plone/fail")
	assert.Contains(t, report, "saved to")
}

func TestBrowser_DumpsRemovedOnClose(t *testing.T) {
	b, _ := newTestBrowser(t, nil)
	require.Error(t, b.Open(context.Background(), "fail"))

	dumps := b.Dumps()
	require.Len(t, dumps, 1)
	data, err := os.ReadFile(dumps[0])
	require.NoError(t, err)
	assert.Equal(t, "database on fire\n", string(data))

	require.NoError(t, b.Close(context.Background()))
	_, err = os.Stat(dumps[0])
	assert.True(t, os.IsNotExist(err))
}

func TestBrowser_KeepDumps(t *testing.T) {
	cfg := testConfig(t)
	cfg.Browser.KeepDumps = true
	b, _ := newTestBrowser(t, cfg)
	require.Error(t, b.Open(context.Background(), "fail"))

	dumps := b.Dumps()
	require.Len(t, dumps, 1)
	require.NoError(t, b.Close(context.Background()))
	_, err := os.Stat(dumps[0])
	assert.NoError(t, err)
}

func TestBrowser_RaiseHTTPErrorsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Browser.RaiseHTTPErrors = false
	b, _ := newTestBrowser(t, cfg)

	require.NoError(t, b.Open(context.Background(), "missing"))
	assert.Equal(t, http.StatusNotFound, b.Status())
	assert.Empty(t, b.Dumps())
}

func TestBrowser_ExpectHTTPError(t *testing.T) {
	ctx := context.Background()
	b, diagnostics := newTestBrowser(t, nil)
	open := func(target string) func(context.Context) error {
		return func(ctx context.Context) error { return b.Open(ctx, target) }
	}

	t.Run("matching error passes quietly", func(t *testing.T) {
		require.NoError(t, b.ExpectHTTPError(ctx, 500, "Internal Server Error", open("fail")))
		assert.Empty(t, diagnostics.String())
		assert.Empty(t, b.Dumps())
	})

	t.Run("zero code matches any error", func(t *testing.T) {
		assert.NoError(t, b.ExpectHTTPError(ctx, 0, "", open("missing")))
	})

	t.Run("wrong status", func(t *testing.T) {
		err := b.ExpectHTTPError(ctx, 404, "", open("fail"))
		var expectation *browser.ExpectationError
		require.ErrorAs(t, err, &expectation)
		assert.Equal(t, "expected HTTP error 404, but got HTTP error 500 Internal Server Error", err.Error())
	})

	t.Run("no error", func(t *testing.T) {
		err := b.ExpectHTTPError(ctx, 0, "", open("news"))
		var expectation *browser.ExpectationError
		require.ErrorAs(t, err, &expectation)
		assert.Equal(t, "expected an HTTP error, but the request succeeded with 200 OK", err.Error())
	})

	t.Run("transport errors pass through", func(t *testing.T) {
		err := b.ExpectHTTPError(ctx, 0, "", open("loop"))
		var loop *driver.RedirectLoopError
		assert.ErrorAs(t, err, &loop)
	})

	t.Run("errors outside the scope are reported again", func(t *testing.T) {
		require.Error(t, b.Open(ctx, "fail"))
		assert.Contains(t, diagnostics.String(), "database on fire")
	})
}

func TestBrowser_ExpectUnauthorized(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)
	open := func(target string) func(context.Context) error {
		return func(ctx context.Context) error { return b.Open(ctx, target) }
	}

	assert.NoError(t, b.ExpectUnauthorized(ctx, open("forbidden")))
	assert.NoError(t, b.ExpectUnauthorized(ctx, open("private")))
	assert.Equal(t, "http://nohost/plone/require_login?came_from=private", b.URL())

	var expectation *browser.ExpectationError
	assert.ErrorAs(t, b.ExpectUnauthorized(ctx, open("news")), &expectation)
	assert.ErrorAs(t, b.ExpectUnauthorized(ctx, open("fail")), &expectation)
}

func TestBrowser_BasicAuth(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)

	require.NoError(t, b.Login("admin", "secret"))
	require.NoError(t, b.Open(ctx, "echo"))
	assert.Contains(t, contents(t, b), "auth=Basic YWRtaW46c2VjcmV0")

	// A second login replaces the credentials rather than conflicting.
	require.NoError(t, b.Login("bob", "x"))
	require.NoError(t, b.Logout())
	require.NoError(t, b.Reload(ctx))
	assert.Contains(t, contents(t, b), "auth=")
	assert.NotContains(t, contents(t, b), "Basic")
}

func TestBrowser_HeaderConflict(t *testing.T) {
	b, _ := newTestBrowser(t, nil)

	require.NoError(t, b.AppendRequestHeader("X-Custom", "a"))
	err := b.AppendRequestHeader("X-Custom", "b")
	var conflict *driver.HeaderConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "X-Custom", conflict.Name)

	require.NoError(t, b.ClearRequestHeader("X-Custom"))
	assert.NoError(t, b.AppendRequestHeader("X-Custom", "b"))
}

func TestBrowser_OpenHTML(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)

	require.NoError(t, b.OpenHTML(`<html><head><title>Static</title></head><body><a href="news">News</a></body></html>`))
	assert.Equal(t, "http://nohost/plone/", b.URL())
	assert.Equal(t, http.StatusOK, b.Status())
	title, err := b.Title()
	require.NoError(t, err)
	assert.Equal(t, "Static", title)
	require.NoError(t, b.Reload(ctx))

	require.NoError(t, b.ClickOn(ctx, "News"))
	assert.Equal(t, "http://nohost/plone/news", b.URL())
}

func TestBrowser_ParseAs(t *testing.T) {
	b, _ := newTestBrowser(t, nil)
	require.NoError(t, b.Open(context.Background(), "feed"))

	doc, err := b.ParseAs(dom.ModeXML)
	require.NoError(t, err)
	assert.Equal(t, dom.ModeXML, doc.Mode())

	titles, err := b.XPath("//item/title")
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second"}, titles.TextContent())

	same, err := b.Document()
	require.NoError(t, err)
	assert.Same(t, doc, same)
}

func TestBrowser_WidgetSideSession(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)

	require.NoError(t, b.Open(ctx, "login", browser.WithMethod(http.MethodPost),
		browser.WithData(url.Values{"__ac_name": {"admin"}, "__ac_password": {"secret"}})))
	require.NoError(t, b.Open(ctx, "tags"))

	f, err := b.Fill(ctx, form.Values{"Tags": "Cats"})
	require.NoError(t, err)

	// The lookup ran on a cloned driver.
	assert.Equal(t, "http://nohost/plone/tags", b.URL())
	assert.NotContains(t, b.Cookies(), "vocabulary")

	require.NoError(t, f.ClickButton(ctx, "Save"))
	assert.Contains(t, contents(t, b), "body=form.widgets.tags=c&form.buttons.save=Save")
}

func TestBrowser_FetchErrors(t *testing.T) {
	b, _ := newTestBrowser(t, nil)

	_, err := b.Fetch(context.Background(), "@@getVocabulary?query=x")
	var httpErr browser.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode())
	assert.Equal(t, "", b.URL())
}

func TestBrowser_ClonedSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)
	require.NoError(t, b.Open(ctx, "set-cookie?v=one"))

	clone, err := b.Cloned(ctx)
	require.NoError(t, err)
	defer clone.Close(ctx)
	assert.NotEqual(t, b.ID(), clone.ID())
	assert.Equal(t, "", clone.URL())
	assert.Equal(t, "one", clone.Cookies()["session"].Value)

	require.NoError(t, clone.Open(ctx, "set-cookie?v=two"))
	assert.Equal(t, "two", clone.Cookies()["session"].Value)
	assert.Equal(t, "one", b.Cookies()["session"].Value)

	require.NoError(t, b.Open(ctx, "cookies"))
	assert.Equal(t, "session=one;", contents(t, b))
}

func TestBrowser_Reset(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)
	require.NoError(t, b.Open(ctx, "set-cookie?v=one"))

	require.NoError(t, b.Reset())
	assert.Empty(t, b.Cookies())
	assert.Equal(t, "", b.URL())
	assert.ErrorIs(t, b.Reload(ctx), driver.ErrBlankPage)
}

func TestBrowser_Closed(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBrowser(t, nil)
	require.NoError(t, b.Open(ctx, "http://nohost/plone/"))
	forms, err := b.CSS("#searchform")
	require.NoError(t, err)
	formNode, err := forms.Only()
	require.NoError(t, err)

	require.NoError(t, b.Close(ctx))
	require.NoError(t, b.Close(ctx))

	noop := func(context.Context) error { return nil }
	operations := map[string]func() error{
		"Open":                func() error { return b.Open(ctx, "news") },
		"OpenHTML":            func() error { return b.OpenHTML("<p>x</p>") },
		"Navigate":            func() error { return b.Navigate(ctx, driver.Request{Method: http.MethodGet, URL: "news"}) },
		"Submit":              func() error { return b.Submit(ctx, formNode, nil) },
		"Reload":              func() error { return b.Reload(ctx) },
		"Reset":               func() error { return b.Reset() },
		"AppendRequestHeader": func() error { return b.AppendRequestHeader("X-Custom", "a") },
		"ClearRequestHeader":  func() error { return b.ClearRequestHeader("X-Custom") },
		"Login":               func() error { return b.Login("admin", "secret") },
		"Logout":              func() error { return b.Logout() },
		"ExpectHTTPError":     func() error { return b.ExpectHTTPError(ctx, 404, "", noop) },
		"ExpectUnauthorized":func() error { return b.ExpectUnauthorized(ctx, noop) },
		"ClickOn":             func() error { return b.ClickOn(ctx, "Search") },
		"Cloned":              func() error { _, err := b.Cloned(ctx); return err },
		"Fetch":               func() error { _, err := b.Fetch(ctx, "news"); return err },
		"Contents":            func() error { _, err := b.Contents(); return err },
		"Document":            func() error { _, err := b.Document(); return err },
		"ParseAs":             func() error { _, err := b.ParseAs(dom.ModeXML); return err },
		"Title":               func() error { _, err := b.Title(); return err },
		"CSS":                 func() error { _, err := b.CSS("p"); return err },
		"XPath":               func() error { _, err := b.XPath("//p"); return err },
		"Find":                func() error { _, err := b.Find("Search"); return err },
		"Forms":               func() error { _, err := b.Forms(); return err },
		"FindForm":            func() error { _, err := b.FindForm("Search Site"); return err },
		"Fill":                func() error { _, err := b.Fill(ctx, form.Values{"Search Site": "plone"}); return err },
	}
	for name, op := range operations {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), browser.ErrClosed)
		})
	}

	assert.Equal(t, "", b.URL())
	assert.Nil(t, b.Headers())
	assert.Nil(t, b.Cookies())
}

func TestNew_DriverSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("in-process without an application", func(t *testing.T) {
		_, err := browser.New(ctx, testConfig(t), zaptest.NewLogger(t))
		assert.ErrorIs(t, err, browser.ErrNoDriver)
	})

	t.Run("static driver cannot request", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Browser.Driver = config.DriverStatic
		b, err := browser.New(ctx, cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer b.Close(ctx)

		var capErr *driver.CapabilityError
		assert.ErrorAs(t, b.Open(ctx, "news"), &capErr)
		require.NoError(t, b.OpenHTML("<title>ok</title>"))
		title, err := b.Title()
		require.NoError(t, err)
		assert.Equal(t, "ok", title)
	})

	t.Run("explicit driver wins", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Browser.Driver = config.DriverHTTP
		d := driver.NewInProcessDriver(newSite(), driver.InProcessConfig{}, zaptest.NewLogger(t))
		b, err := browser.New(ctx, cfg, zaptest.NewLogger(t), browser.WithDriver(d))
		require.NoError(t, err)
		defer b.Close(ctx)
		assert.Same(t, d, b.Driver().(*driver.InProcessDriver))
		require.NoError(t, b.Open(ctx, "news"))
	})

	t.Run("invalid parse mode", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Browser.ParseMode = "json"
		_, err := browser.New(ctx, cfg, zaptest.NewLogger(t), browser.WithApplication(newSite(), nil))
		assert.Error(t, err)
	})
}
