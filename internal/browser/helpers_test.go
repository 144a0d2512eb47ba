package browser_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/testbrowser/internal/browser"
	"github.com/xkilldash9x/testbrowser/internal/config"
)

const frontPage = `<html><head><title>Plone site</title></head><body>
<a href="news">News</a>
<a href="events" title="Upcoming events">Events</a>
<form id="searchform" action="@@search">
  <label for="searchGadget">Search Site</label>
  <input id="searchGadget" name="SearchableText">
  <input type="submit" value="Search">
</form>
<form id="login_form" method="post" action="login">
  <label for="__ac_name">Login Name</label>
  <input id="__ac_name" name="__ac_name">
  <label for="__ac_password">Password</label>
  <input id="__ac_password" name="__ac_password" type="password">
  <input type="submit" name="submit" value="Log in">
</form>
</body></html>`

const tagsPage = `<html><head><title>Edit</title></head><body>
<form method="post" action="echo">
  <label for="tags">Tags</label>
  <input type="text" id="tags" class="pat-select2" name="form.widgets.tags" value="a"
    data-pat-select2='{"separator": ";", "vocabularyUrl": "@@getVocabulary?name=tags"}'>
  <input type="submit" name="form.buttons.save" value="Save">
</form>
</body></html>`

const feed = `<?xml version="1.0"?>
<rss><channel><title>Feed</title>
<item><title>First</title></item>
<item><title>Second</title></item>
</channel></rss>`

// newSite returns a small stand-in for the application under test, rooted
// at /plone.
func newSite() http.Handler {
	mux := http.NewServeMux()
	page := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, body)
		})
	}
	page("/plone/{$}", frontPage)
	page("/plone/news", `<html><head><title>News</title></head><body><h1>News</h1></body></html>`)
	page("/plone/tags", tagsPage)
	page("/plone/require_login", `<html><head><title>Log in</title></head><body>Please log in</body></html>`)

	mux.HandleFunc("/plone/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "%s %s referer=%s body=%s custom=%s suppress=%s auth=%s",
			r.Method, r.URL.RequestURI(), r.Referer(), body,
			r.Header.Get("X-Custom"), r.Header.Get(browser.SuppressResourcesHeader), r.Header.Get("Authorization"))
	})
	mux.HandleFunc("/plone/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, feed)
	})
	mux.HandleFunc("/plone/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.FormValue("__ac_password") != "secret" {
			http.Error(w, "Login failed", http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "__ac", Value: r.FormValue("__ac_name"), Path: "/"})
		http.Redirect(w, r, "/plone/", http.StatusFound)
	})
	mux.HandleFunc("/plone/set-cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: r.URL.Query().Get("v"), Path: "/"})
		io.WriteString(w, "ok")
	})
	mux.HandleFunc("/plone/cookies", func(w http.ResponseWriter, r *http.Request) {
		for _, c := range r.Cookies() {
			fmt.Fprintf(w, "%s=%s;", c.Name, c.Value)
		}
	})
	mux.HandleFunc("/plone/@@getVocabulary", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("__ac"); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "vocabulary", Value: "seen", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		var results []string
		for _, tag := range [][2]string{{"a", "Apples"}, {"c", "Cats"}, {"d", "Dogs"}} {
			if strings.Contains(strings.ToLower(tag[1]), strings.ToLower(r.URL.Query().Get("query"))) {
				results = append(results, fmt.Sprintf(`{"id": %q, "text": %q}`, tag[0], tag[1]))
			}
		}
		fmt.Fprintf(w, `{"results": [%s]}`, strings.Join(results, ", "))
	})
	mux.HandleFunc("/plone/private", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/plone/require_login?came_from=private", http.StatusFound)
	})
	mux.HandleFunc("/plone/forbidden", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
	mux.HandleFunc("/plone/fail", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database on fire", http.StatusInternalServerError)
	})
	mux.HandleFunc("/plone/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/plone/loop", http.StatusFound)
	})
	return mux
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Browser.Driver = config.DriverInProcess
	cfg.Browser.BaseURL = "http://nohost/plone/"
	cfg.Browser.DumpDir = t.TempDir()
	return cfg
}

// newTestBrowser opens an in-process session on newSite. Diagnostics are
// collected in the returned buffer.
func newTestBrowser(t *testing.T, cfg *config.Config) (*browser.Browser, *bytes.Buffer) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig(t)
	}
	var diagnostics bytes.Buffer
	b, err := browser.New(t.Context(), cfg, zaptest.NewLogger(t),
		browser.WithApplication(newSite(), nil),
		browser.WithDiagnosticsWriter(&diagnostics))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b, &diagnostics
}
