// internal/browser/driver/chrome.go
package driver

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeConfig configures the CDP driver.
type ChromeConfig struct {
	Headless          bool
	ExecPath          string
	NavigationTimeout time.Duration
	// HTTP configures the socket driver returned by Cloned, and supplies the
	// redirect limit, default headers and user agent of the browser itself.
	HTTP HTTPConfig
}

// ChromeDriver renders pages in a real Chrome through the DevTools protocol.
// It only navigates with GET and refuses duplicate header names.
type ChromeDriver struct {
	*core
	cfg    ChromeConfig
	logger *zap.Logger

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	mu      sync.Mutex
	lastDoc *network.Response
}

// NewChromeDriver launches a browser. ctx bounds the browser lifetime.
func NewChromeDriver(ctx context.Context, cfg ChromeConfig, logger *zap.Logger) (*ChromeDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.HTTP.IgnoreTLSErrors),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.HTTP.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.HTTP.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	d := &ChromeDriver{
		cfg:         cfg,
		logger:      logger,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}
	d.core = newCore("chrome", CapRequests|CapJavaScript, cfg.HTTP.MaxRedirects, cfg.HTTP.Headers, "", logger, d.navigate)

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			d.mu.Lock()
			d.lastDoc = e.Response
			d.mu.Unlock()
		}
	})

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}
	return d, nil
}

func (d *ChromeDriver) navigate(ctx context.Context, req *http.Request) (*http.Response, error) {
	headers := network.Headers{}
	for name, values := range req.Header {
		// Chrome owns its cookie store and user agent.
		if name == "Cookie" || name == "User-Agent" {
			continue
		}
		headers[name] = strings.Join(values, ", ")
	}

	timeout := d.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	runCtx, cancel := context.WithTimeout(d.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	d.mu.Lock()
	d.lastDoc = nil
	d.mu.Unlock()

	var html string
	if err := chromedp.Run(runCtx,
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(req.URL.String()),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("chrome navigation to %s failed: %w", req.URL, err)
	}

	d.mu.Lock()
	doc := d.lastDoc
	d.mu.Unlock()

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(html)),
		Request:    req,
	}
	if doc != nil {
		resp.StatusCode = int(doc.Status)
		resp.Status = fmt.Sprintf("%d %s", doc.Status, doc.StatusText)
		for name, value := range doc.Headers {
			for _, line := range strings.Split(fmt.Sprint(value), "\n") {
				resp.Header.Add(name, line)
			}
		}
		// Chrome already followed any redirects; report where it ended up.
		if final, err := url.Parse(doc.URL); err == nil && doc.URL != "" {
			resp.Request = req.Clone(ctx)
			resp.Request.URL = final
		}
		// Chrome applied them already and they would confuse the shared engine.
		resp.Header.Del("Location")
	}
	return resp, nil
}

func (d *ChromeDriver) browserCookies() ([]Cookie, error) {
	var raw []*network.Cookie
	err := chromedp.Run(d.tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read chrome cookies: %w", err)
	}
	out := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		ck := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   strings.TrimPrefix(c.Domain, "."),
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			sec, frac := math.Modf(c.Expires)
			ck.Expires = time.Unix(int64(sec), int64(frac*1e9))
		}
		out = append(out, ck)
	}
	return out, nil
}

// ResponseCookies reads the cookie store of the browser.
func (d *ChromeDriver) ResponseCookies() map[string]Cookie {
	cookies, err := d.browserCookies()
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

// Reset clears the browser cookies and the navigation state.
func (d *ChromeDriver) Reset() {
	d.core.Reset()
	if d.tabCtx == nil {
		return
	}
	if err := chromedp.Run(d.tabCtx, network.ClearBrowserCookies(), chromedp.Navigate("about:blank")); err != nil {
		d.core.logger.Warn("Could not reset chrome", zap.Error(err))
	}
}

// Cloned returns a socket driver holding a copy of the browser cookies.
func (d *ChromeDriver) Cloned(ctx context.Context) (Driver, error) {
	cookies, err := d.browserCookies()
	if err != nil {
		return nil, err
	}
	clone := NewHTTPDriver(d.cfg.HTTP, d.logger)
	clone.core.headers = d.core.headers.Clone()
	clone.core.setCookies(cookies)
	return clone, nil
}

// Close shuts the browser down.
func (d *ChromeDriver) Close() error {
	if d.tabCancel != nil {
		d.tabCancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
	return nil
}
