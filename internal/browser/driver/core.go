// internal/browser/driver/core.go
package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxRedirects bounds a redirect chain when no limit is configured.
const DefaultMaxRedirects = 10

// roundTripFunc performs exactly one HTTP exchange without following redirects.
type roundTripFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// response is the state kept from the last completed exchange.
type response struct {
	status int
	reason string
	header http.Header
	body   []byte
	url    *url.URL
}

// core is the request engine shared by the strategies: replay record,
// permanent headers, cookie handling, redirect policy and loop detection.
// It is not safe for concurrent use; a session drives it from one goroutine.
type core struct {
	name         string
	caps         Capability
	maxRedirects int
	userAgent    string
	defaults     http.Header
	logger       *zap.Logger
	rt           roundTripFunc

	jar     http.CookieJar
	cookies *cookieStore
	headers http.Header
	last    *Request
	resp    *response
}

func newCore(name string, caps Capability, maxRedirects int, defaults http.Header, userAgent string, logger *zap.Logger, rt roundTripFunc) *core {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}
	c := &core{
		name:         name,
		caps:         caps,
		maxRedirects: maxRedirects,
		userAgent:    userAgent,
		defaults:     defaults.Clone(),
		logger:       logger.Named("driver").With(zap.String("driver", name)),
		rt:           rt,
	}
	c.Reset()
	return c
}

func (c *core) Name() string             { return c.name }
func (c *core) Capabilities() Capability { return c.caps }

// Reset drops all session state and restores the configured default headers.
func (c *core) Reset() {
	c.jar = newJar()
	c.cookies = newCookieStore()
	c.headers = c.defaults.Clone()
	if c.headers == nil {
		c.headers = http.Header{}
	}
	c.last = nil
	c.resp = nil
}

func (c *core) checkCapabilities(method string) error {
	switch {
	case !c.caps.Has(CapRequests):
		return &CapabilityError{Driver: c.name, Operation: "making requests", Missing: CapRequests}
	case IsWebDAVMethod(method) && !c.caps.Has(CapWebDAV):
		return &CapabilityError{Driver: c.name, Operation: method + " requests", Missing: CapWebDAV}
	case method != http.MethodGet && method != http.MethodHead && !c.caps.Has(CapPost):
		return &CapabilityError{Driver: c.name, Operation: method + " requests", Missing: CapPost}
	}
	return nil
}

// MakeRequest implements Driver.
func (c *core) MakeRequest(ctx context.Context, req Request) (int, string, io.Reader, error) {
	remembered := req.Clone()
	c.last = &remembered

	method := req.method()
	if err := c.checkCapabilities(method); err != nil {
		return 0, "", nil, err
	}

	target, err := url.Parse(req.URL)
	if err != nil {
		return 0, "", nil, fmt.Errorf("invalid request url %q: %w", req.URL, err)
	}
	if !target.IsAbs() {
		return 0, "", nil, fmt.Errorf("request url %q is not absolute", req.URL)
	}

	body, contentType := req.Body, req.ContentType
	if body == nil && len(req.Data) > 0 {
		if method == http.MethodGet || method == http.MethodHead {
			q := target.Query()
			for k, vs := range req.Data {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			target.RawQuery = q.Encode()
		} else {
			body = []byte(req.Data.Encode())
			if contentType == "" {
				contentType = "application/x-www-form-urlencoded"
			}
		}
	}

	referer := req.Referer
	seen := map[string]bool{}
	var chain []string
	for hop := 0; ; hop++ {
		chain = append(chain, target.String())
		key := method + " " + target.String()
		if seen[key] || hop > c.maxRedirects {
			return 0, "", nil, &RedirectLoopError{URL: target.String(), Chain: chain}
		}
		seen[key] = true

		hreq, err := c.newHTTPRequest(ctx, method, target, body, contentType, req.Headers, referer)
		if err != nil {
			return 0, "", nil, err
		}

		c.logger.Debug("Sending request", zap.String("method", method), zap.String("url", target.String()))
		resp, err := c.rt(ctx, hreq)
		if err != nil {
			return 0, "", nil, err
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return 0, "", nil, fmt.Errorf("failed to read response body from %s: %w", target, err)
		}

		// Browser backed transports follow redirects themselves and report
		// the final location on the response.
		final := target
		if resp.Request != nil && resp.Request.URL != nil && resp.Request.URL.IsAbs() {
			final = resp.Request.URL
		}
		if cookies := resp.Cookies(); len(cookies) > 0 {
			c.jar.SetCookies(final, cookies)
			c.cookies.update(final, cookies)
		}

		if next, dropBody, ok := NextRedirect(method, resp.StatusCode); ok {
			if location := resp.Header.Get("Location"); location != "" {
				nextURL, err := target.Parse(location)
				if err != nil {
					return 0, "", nil, fmt.Errorf("invalid redirect location %q from %s: %w", location, target, err)
				}
				c.logger.Debug("Following redirect",
					zap.Int("status", resp.StatusCode),
					zap.String("from", target.String()),
					zap.String("to", nextURL.String()),
					zap.String("method", next))
				if dropBody {
					body, contentType = nil, ""
				}
				method = next
				referer = target.String()
				target = nextURL
				continue
			}
		}

		reason := reasonPhrase(resp)
		c.resp = &response{
			status: resp.StatusCode,
			reason: reason,
			header: resp.Header.Clone(),
			body:   data,
			url:    final,
		}
		return resp.StatusCode, reason, bytes.NewReader(data), nil
	}
}

func (c *core) newHTTPRequest(ctx context.Context, method string, target *url.URL, body []byte, contentType string, extra http.Header, referer string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	hreq, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", target, err)
	}

	if c.userAgent != "" {
		hreq.Header.Set("User-Agent", c.userAgent)
	}
	for name, values := range c.headers {
		hreq.Header[name] = append([]string(nil), values...)
	}
	for name, values := range extra {
		hreq.Header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	if referer != "" {
		hreq.Header.Set("Referer", referer)
	}
	if host := hreq.Header.Get("Host"); host != "" {
		hreq.Host = host
		hreq.Header.Del("Host")
	}
	for _, ck := range c.jar.Cookies(target) {
		hreq.AddCookie(ck)
	}
	return hreq, nil
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		return http.StatusText(resp.StatusCode)
	}
	return reason
}

// Reload implements Driver.
func (c *core) Reload(ctx context.Context) (int, string, io.Reader, error) {
	if c.last == nil {
		return 0, "", nil, ErrBlankPage
	}
	return c.MakeRequest(ctx, *c.last)
}

// LastRequest returns a copy of the remembered request.
func (c *core) LastRequest() (Request, bool) {
	if c.last == nil {
		return Request{}, false
	}
	return c.last.Clone(), true
}

// ResponseBody implements Driver.
func (c *core) ResponseBody() ([]byte, error) {
	if c.resp == nil {
		return nil, ErrBlankPage
	}
	return c.resp.body, nil
}

// URL implements Driver.
func (c *core) URL() string {
	if c.resp == nil || c.resp.url == nil {
		return ""
	}
	return c.resp.url.String()
}

// ResponseHeaders implements Driver.
func (c *core) ResponseHeaders() http.Header {
	if c.resp == nil {
		return http.Header{}
	}
	return c.resp.header.Clone()
}

// ResponseCookies implements Driver.
func (c *core) ResponseCookies() map[string]Cookie {
	return c.cookies.byName()
}

// AppendRequestHeader implements Driver.
func (c *core) AppendRequestHeader(name, value string) error {
	name = http.CanonicalHeaderKey(name)
	if _, exists := c.headers[name]; exists && !c.caps.Has(CapDuplicateHeaders) {
		return &HeaderConflictError{Driver: c.name, Name: name}
	}
	c.headers.Add(name, value)
	return nil
}

// ClearRequestHeader implements Driver.
func (c *core) ClearRequestHeader(name string) {
	c.headers.Del(name)
}

// copyStateTo seeds dst with copies of the cookies and permanent headers.
func (c *core) copyStateTo(dst *core) {
	dst.headers = c.headers.Clone()
	cookies := c.cookies.list()
	seedJar(dst.jar, cookies)
	for _, ck := range cookies {
		dst.cookies.put(ck)
	}
}

// setCookies replaces the session cookies. Used by drivers whose cookie
// state lives outside the core.
func (c *core) setCookies(cookies []Cookie) {
	c.jar = newJar()
	c.cookies = newCookieStore()
	seedJar(c.jar, cookies)
	for _, ck := range cookies {
		c.cookies.put(ck)
	}
}
