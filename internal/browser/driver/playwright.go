// internal/browser/driver/playwright.go
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// PlaywrightDriver renders pages through playwright. GET navigations run in
// the page; other methods go through the context's request API so they share
// its cookies.
type PlaywrightDriver struct {
	*core
	cfg    ChromeConfig
	logger *zap.Logger

	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
}

// NewPlaywrightDriver starts playwright and opens one page.
func NewPlaywrightDriver(cfg ChromeConfig, logger *zap.Logger) (*PlaywrightDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	d := &PlaywrightDriver{cfg: cfg, logger: logger, pw: pw}

	launch := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(cfg.Headless)}
	if cfg.ExecPath != "" {
		launch.ExecutablePath = playwright.String(cfg.ExecPath)
	}
	if d.browser, err = pw.Chromium.Launch(launch); err != nil {
		d.Close()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{IgnoreHttpsErrors: playwright.Bool(cfg.HTTP.IgnoreTLSErrors)}
	if cfg.HTTP.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(cfg.HTTP.UserAgent)
	}
	if d.bctx, err = d.browser.NewContext(ctxOpts); err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	if d.page, err = d.bctx.NewPage(); err != nil {
		d.Close()
		return nil, fmt.Errorf("could not open page: %w", err)
	}

	d.core = newCore("playwright", CapRequests|CapPost|CapJavaScript, cfg.HTTP.MaxRedirects, cfg.HTTP.Headers, "", logger, d.roundTrip)
	return d, nil
}

func (d *PlaywrightDriver) timeoutMillis() *float64 {
	timeout := d.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

func flattenHeaders(h http.Header) map[string]string {
	out := map[string]string{}
	for name, values := range h {
		if name == "Cookie" || name == "User-Agent" {
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func (d *PlaywrightDriver) roundTrip(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	headers := flattenHeaders(req.Header)

	if req.Method == http.MethodGet {
		referer := headers["Referer"]
		delete(headers, "Referer")
		if err := d.bctx.SetExtraHTTPHeaders(headers); err != nil {
			return nil, fmt.Errorf("could not set request headers: %w", err)
		}
		opts := playwright.PageGotoOptions{Timeout: d.timeoutMillis()}
		if referer != "" {
			opts.Referer = playwright.String(referer)
		}
		resp, err := d.page.Goto(req.URL.String(), opts)
		if err != nil {
			return nil, fmt.Errorf("playwright navigation to %s failed: %w", req.URL, err)
		}
		content, err := d.page.Content()
		if err != nil {
			return nil, fmt.Errorf("could not read page content: %w", err)
		}
		out := &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(content)),
			Request:    req,
		}
		if resp != nil {
			out.StatusCode = resp.Status()
			out.Status = fmt.Sprintf("%d %s", resp.Status(), resp.StatusText())
			for name, value := range resp.Headers() {
				out.Header.Set(name, value)
			}
			out.Header.Del("Location")
		}
		if final, err := url.Parse(d.page.URL()); err == nil {
			out.Request = req.Clone(ctx)
			out.Request.URL = final
		}
		return out, nil
	}

	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return nil, err
		}
	}
	resp, err := d.bctx.Request().Fetch(req.URL.String(), playwright.APIRequestContextFetchOptions{
		Method:       playwright.String(req.Method),
		Headers:      headers,
		Data:         body,
		MaxRedirects: playwright.Int(0),
		Timeout:      d.timeoutMillis(),
	})
	if err != nil {
		return nil, fmt.Errorf("playwright %s %s failed: %w", req.Method, req.URL, err)
	}
	defer func() { _ = resp.Dispose() }()
	data, err := resp.Body()
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	out := &http.Response{
		StatusCode: resp.Status(),
		Status:     fmt.Sprintf("%d %s", resp.Status(), resp.StatusText()),
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader(data)),
		Request:    req,
	}
	for name, value := range resp.Headers() {
		out.Header.Set(name, value)
	}
	return out, nil
}

func (d *PlaywrightDriver) contextCookies() ([]Cookie, error) {
	raw, err := d.bctx.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read playwright cookies: %w", err)
	}
	out := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		ck := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   strings.TrimPrefix(c.Domain, "."),
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if c.Expires > 0 {
			sec, frac := math.Modf(c.Expires)
			ck.Expires = time.Unix(int64(sec), int64(frac*1e9))
		}
		out = append(out, ck)
	}
	return out, nil
}

// ResponseCookies reads the cookies of the browser context.
func (d *PlaywrightDriver) ResponseCookies() map[string]Cookie {
	cookies, err := d.contextCookies()
	if err != nil {
		d.core.logger.Warn("Could not read cookies", zap.Error(err))
		return map[string]Cookie{}
	}
	out := make(map[string]Cookie, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c
	}
	return out
}

// Reset clears the context cookies and the navigation state.
func (d *PlaywrightDriver) Reset() {
	d.core.Reset()
	if d.bctx == nil {
		return
	}
	if err := d.bctx.ClearCookies(); err != nil {
		d.core.logger.Warn("Could not clear cookies", zap.Error(err))
	}
}

// Cloned returns a socket driver holding a copy of the context cookies.
func (d *PlaywrightDriver) Cloned(ctx context.Context) (Driver, error) {
	cookies, err := d.contextCookies()
	if err != nil {
		return nil, err
	}
	clone := NewHTTPDriver(d.cfg.HTTP, d.logger)
	clone.core.headers = d.core.headers.Clone()
	clone.core.setCookies(cookies)
	return clone, nil
}

// Close stops the browser and the playwright driver process.
func (d *PlaywrightDriver) Close() error {
	var errs []error
	if d.browser != nil {
		errs = append(errs, d.browser.Close())
	}
	if d.pw != nil {
		errs = append(errs, d.pw.Stop())
	}
	return errors.Join(errs...)
}
