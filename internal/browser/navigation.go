// internal/browser/navigation.go
package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/driver"
	"github.com/xkilldash9x/testbrowser/internal/browser/form"
)

// RequestOption adjusts a request issued by Open.
type RequestOption func(*driver.Request)

// WithMethod sets the HTTP method, GET by default.
func WithMethod(method string) RequestOption {
	return func(r *driver.Request) { r.Method = strings.ToUpper(method) }
}

// WithData sends fields as the query string for GET and as an urlencoded
// body otherwise. A GET with data stays a GET.
func WithData(data url.Values) RequestOption {
	return func(r *driver.Request) { r.Data = data }
}

// WithBody sends a preformatted body such as a multipart payload.
func WithBody(body []byte, contentType string) RequestOption {
	return func(r *driver.Request) {
		r.Body = body
		r.ContentType = contentType
	}
}

// WithHeaders adds headers to this request only.
func WithHeaders(h http.Header) RequestOption {
	return func(r *driver.Request) {
		if r.Headers == nil {
			r.Headers = http.Header{}
		}
		for name, values := range h {
			for _, v := range values {
				r.Headers.Add(name, v)
			}
		}
	}
}

// WithReferer sets the Referer header.
func WithReferer(referer string) RequestOption {
	return func(r *driver.Request) { r.Referer = referer }
}

// Open requests target, which may be relative to the current page or to
// browser.base_url.
func (b *Browser) Open(ctx context.Context, target string, opts ...RequestOption) error {
	req := driver.Request{Method: http.MethodGet, URL: target}
	for _, opt := range opts {
		opt(&req)
	}
	return b.Navigate(ctx, req)
}

// Navigate performs req and makes the response the current page. It is
// what links and forms of the current document call back into.
func (b *Browser) Navigate(ctx context.Context, req driver.Request) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	resolved, err := b.resolve(req.URL)
	if err != nil {
		return err
	}
	req.URL = resolved
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	remembered := req.Clone()
	b.last = &remembered
	b.onStatic = false
	b.doc = nil

	b.logger.Debug("Navigating.", zap.String("method", req.Method), zap.String("url", req.URL))
	status, reason, body, err := b.driver.MakeRequest(ctx, req)
	return b.complete(req, status, reason, body, err)
}

// Submit submits a form of the current document as if submitter had been
// clicked. submitter may be nil.
func (b *Browser) Submit(ctx context.Context, formNode, submitter *dom.Node) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	f, err := form.New(formNode, form.WithRegistry(b.registry))
	if err != nil {
		return err
	}
	return f.SubmitWith(ctx, submitter)
}

// Reload replays the last request with identical method, data, headers and
// referer.
func (b *Browser) Reload(ctx context.Context) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if b.onStatic {
		b.doc = nil
		return nil
	}
	if b.last == nil {
		return driver.ErrBlankPage
	}
	b.doc = nil
	b.logger.Debug("Reloading.", zap.String("method", b.last.Method), zap.String("url", b.last.URL))
	status, reason, body, err := b.driver.Reload(ctx)
	return b.complete(*b.last, status, reason, body, err)
}

// complete records the outcome of a request and turns failures into errors.
func (b *Browser) complete(req driver.Request, status int, reason string, body io.Reader, err error) error {
	if err != nil {
		b.status, b.reason = 0, ""
		b.failed(req, err)
		return err
	}
	if body != nil {
		// The driver keeps the body; the stream is only drained here.
		_, _ = io.Copy(io.Discard, body)
	}
	b.status, b.reason = status, reason

	if status < 400 || !b.cfg.Browser.RaiseHTTPErrors {
		return nil
	}
	target := b.driver.URL()
	if target == "" {
		target = req.URL
	}
	herr := newHTTPError(req.Method, target, status, reason)
	if status >= 500 && b.expecting == 0 {
		b.reportServerError(req, herr)
	}
	b.failed(req, herr)
	return herr
}

// OpenHTML makes html the current page without a request. The page URL is
// browser.base_url when set.
func (b *Browser) OpenHTML(html string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	target := ""
	if b.baseURL != nil {
		target = b.baseURL.String()
	}
	if err := b.static.Load(target, "", []byte(html)); err != nil {
		return err
	}
	b.onStatic = true
	b.status, b.reason = http.StatusOK, http.StatusText(http.StatusOK)
	b.doc = nil
	return nil
}

// Fetch performs a side request through a cloned driver and returns the
// body. The primary session's page, history and cookies are left alone.
func (b *Browser) Fetch(ctx context.Context, target string) ([]byte, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	resolved, err := b.resolve(target)
	if err != nil {
		return nil, err
	}
	side, err := b.driver.Cloned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s driver: %w", b.driver.Name(), err)
	}
	defer func() {
		if err := side.Close(); err != nil {
			b.logger.Debug("Failed to close side session.", zap.Error(err))
		}
	}()

	b.logger.Debug("Side request.", zap.String("url", resolved))
	status, reason, _, err := side.MakeRequest(ctx, driver.Request{Method: http.MethodGet, URL: resolved})
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, newHTTPError(http.MethodGet, resolved, status, reason)
	}
	return side.ResponseBody()
}

// resolve makes target absolute against the current page, then
// browser.base_url.
func (b *Browser) resolve(target string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", target, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if current := b.source().URL(); current != "" {
		if base, err := url.Parse(current); err == nil && base.IsAbs() {
			return base.ResolveReference(ref).String(), nil
		}
	}
	if b.baseURL != nil {
		return b.baseURL.ResolveReference(ref).String(), nil
	}
	return "", fmt.Errorf("cannot resolve relative url %q: no current page and no browser.base_url", target)
}

// source is the driver whose response is the current page.
func (b *Browser) source() driver.Driver {
	if b.onStatic {
		return b.static
	}
	return b.driver
}
