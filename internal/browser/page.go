// internal/browser/page.go
package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/driver"
	"github.com/xkilldash9x/testbrowser/internal/browser/form"
)

// Contents returns the raw body of the current page.
func (b *Browser) Contents() (string, error) {
	if err := b.checkOpen(); err != nil {
		return "", err
	}
	body, err := b.source().ResponseBody()
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// URL is the final URL of the current page, empty on a blank page or a
// closed browser.
func (b *Browser) URL() string {
	if b.closed {
		return ""
	}
	return b.source().URL()
}

// Status is the status code of the last response, 0 on a blank page or
// after a transport error.
func (b *Browser) Status() int { return b.status }

// Reason is the reason phrase of the last response.
func (b *Browser) Reason() string { return b.reason }

// Headers returns the response headers of the current page, nil once
// closed.
func (b *Browser) Headers() http.Header {
	if b.closed {
		return nil
	}
	return b.source().ResponseHeaders()
}

// Cookies returns the cookies the session holds, by name; nil once closed.
func (b *Browser) Cookies() map[string]driver.Cookie {
	if b.closed {
		return nil
	}
	return b.driver.ResponseCookies()
}

// Document parses the current page on first use. Widgets mutate the
// returned document; the parse is kept until the next navigation.
func (b *Browser) Document() (*dom.Document, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if b.doc != nil {
		return b.doc, nil
	}
	body, err := b.source().ResponseBody()
	if err != nil {
		return nil, err
	}
	opts := []dom.Option{dom.WithSession(b)}
	if current := b.URL(); current != "" {
		if u, err := url.Parse(current); err == nil {
			opts = append(opts, dom.WithURL(u))
		}
	}
	doc, err := dom.Parse(bytes.NewReader(body), b.mode, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s as %s: %w", b.URL(), b.mode, err)
	}
	b.doc = doc
	return doc, nil
}

// ParseAs reparses the current body under another grammar. The mode sticks
// for following pages.
func (b *Browser) ParseAs(mode dom.ParseMode) (*dom.Document, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	b.mode = mode
	b.doc = nil
	return b.Document()
}

// Title returns the <title> of the current page.
func (b *Browser) Title() (string, error) {
	doc, err := b.Document()
	if err != nil {
		return "", err
	}
	return doc.Title(), nil
}

// CSS queries the current page.
func (b *Browser) CSS(selector string) (*dom.ResultSet, error) {
	doc, err := b.Document()
	if err != nil {
		return nil, err
	}
	return doc.CSS(selector)
}

// XPath queries the current page.
func (b *Browser) XPath(expr string) (*dom.ResultSet, error) {
	doc, err := b.Document()
	if err != nil {
		return nil, err
	}
	return doc.XPath(expr)
}

// clickable reports the texts a link or button answers to.
func clickable(n *dom.Node) []string {
	if l, ok := n.AsLink(); ok {
		return []string{l.Text(), l.ID(), l.Attr("title")}
	}
	if btn, ok := n.AsButton(); ok {
		return []string{btn.Label(), btn.Name(), btn.ID()}
	}
	return nil
}

// Find returns the first link or button whose text, label, id or title is
// text, or nil when there is none.
func (b *Browser) Find(text string) (*dom.Node, error) {
	doc, err := b.Document()
	if err != nil {
		return nil, err
	}
	text = dom.NormalizeSpace(text)
	for _, n := range doc.Root().Descendants() {
		for _, candidate := range clickable(n) {
			if candidate != "" && candidate == text {
				return n, nil
			}
		}
	}
	return nil, nil
}

// ClickOn follows the link or clicks the button found by Find.
func (b *Browser) ClickOn(ctx context.Context, text string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	n, err := b.Find(text)
	if err != nil {
		return err
	}
	if n == nil {
		trace := dom.NewTrace("click_on", text)
		if available := b.clickableTexts(); len(available) > 0 {
			trace = trace.WithHint("available links and buttons: %q", available)
		}
		return &dom.NoElementFoundError{Trace: trace}
	}
	if l, ok := n.AsLink(); ok {
		return l.Click(ctx)
	}
	btn, _ := n.AsButton()
	return btn.Click(ctx)
}

func (b *Browser) clickableTexts() []string {
	doc, err := b.Document()
	if err != nil {
		return nil
	}
	var out []string
	for _, n := range doc.Root().Descendants() {
		if texts := clickable(n); len(texts) > 0 && texts[0] != "" {
			out = append(out, texts[0])
		}
	}
	return out
}

// Forms returns the forms of the current page.
func (b *Browser) Forms() ([]*form.Form, error) {
	doc, err := b.Document()
	if err != nil {
		return nil, err
	}
	return form.FindAll(doc, form.WithRegistry(b.registry)), nil
}

// FindForm returns the single form holding every named field.
func (b *Browser) FindForm(fields ...string) (*form.Form, error) {
	doc, err := b.Document()
	if err != nil {
		return nil, err
	}
	return form.FindFormByLabelsOrNames(doc, fields, form.WithRegistry(b.registry))
}

// Fill locates the form holding every key of values and fills it.
func (b *Browser) Fill(ctx context.Context, values form.Values) (*form.Form, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f, err := b.FindForm(keys...)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("no form found for fields %q", keys)
	}
	if err := f.Fill(ctx, values); err != nil {
		return f, err
	}
	return f, nil
}
