// internal/browser/browser.go
package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/driver"
	"github.com/xkilldash9x/testbrowser/internal/browser/widget"
	"github.com/xkilldash9x/testbrowser/internal/config"
)

// SuppressResourcesHeader asks the application under test to skip its
// static resource viewlets.
const SuppressResourcesHeader = "X-Testbrowser-Suppress-Resources"

// Browser is one test's navigation session: a driver, the current page and
// the document parsed from it. It is not safe for concurrent use.
type Browser struct {
	id       string
	cfg      *config.Config
	logger   *zap.Logger
	driver   driver.Driver
	registry *widget.Registry
	baseURL  *url.URL
	mode     dom.ParseMode

	app         http.Handler
	transactor  driver.Transactor
	diagnostics io.Writer

	// static holds pages installed by OpenHTML; onStatic selects it over
	// the driver for content accessors.
	static   *driver.StaticDriver
	onStatic bool

	last   *driver.Request
	status int
	reason string
	doc    *dom.Document

	expecting int
	dumps     []string
	closed    bool
}

var (
	_ dom.Session        = (*Browser)(nil)
	_ widget.SideSession = (*Browser)(nil)
)

// Option configures a Browser.
type Option func(*Browser)

// WithDriver uses d instead of building one from browser.driver.
func WithDriver(d driver.Driver) Option {
	return func(b *Browser) { b.driver = d }
}

// WithApplication sets the handler the in-process driver dispatches to.
// tx may be nil.
func WithApplication(app http.Handler, tx driver.Transactor) Option {
	return func(b *Browser) {
		b.app = app
		b.transactor = tx
	}
}

// WithRegistry replaces the default widget registry.
func WithRegistry(r *widget.Registry) Option {
	return func(b *Browser) { b.registry = r }
}

// WithDiagnosticsWriter redirects server error reports, os.Stderr by default.
func WithDiagnosticsWriter(w io.Writer) Option {
	return func(b *Browser) { b.diagnostics = w }
}

// New creates a session. ctx bounds the lifetime of browser processes
// started by the chrome and playwright drivers.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Browser, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.New().String()
	b := &Browser{
		id:          id,
		cfg:         cfg,
		logger:      logger.Named("browser").With(zap.String("session_id", id)),
		diagnostics: os.Stderr,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = widget.Default()
	}

	mode, err := dom.ParseModeFromString(cfg.Browser.ParseMode)
	if err != nil {
		return nil, err
	}
	b.mode = mode

	if cfg.Browser.BaseURL != "" {
		base, err := url.Parse(cfg.Browser.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid browser.base_url: %w", err)
		}
		b.baseURL = base
	}

	if b.driver == nil {
		d, err := b.newDriver(ctx)
		if err != nil {
			return nil, err
		}
		b.driver = d
	}
	b.static = driver.NewStaticDriver(b.logger)
	if err := b.applyDefaultHeaders(); err != nil {
		_ = b.driver.Close()
		return nil, err
	}

	b.logger.Debug("Browser session created.", zap.String("driver", b.driver.Name()))
	return b, nil
}

// newDriver builds the transport named by browser.driver.
func (b *Browser) newDriver(ctx context.Context) (driver.Driver, error) {
	httpCfg, err := driver.NewHTTPConfig(b.cfg)
	if err != nil {
		return nil, err
	}

	switch b.cfg.Browser.Driver {
	case "", config.DriverHTTP:
		return driver.NewHTTPDriver(httpCfg, b.logger), nil
	case config.DriverInProcess:
		if b.app == nil {
			return nil, ErrNoDriver
		}
		return driver.NewInProcessDriver(b.app, driver.InProcessConfig{
			MaxRedirects: httpCfg.MaxRedirects,
			Headers:      httpCfg.Headers,
			UserAgent:    httpCfg.UserAgent,
			Transactor:   b.transactor,
		}, b.logger), nil
	case config.DriverStatic:
		return driver.NewStaticDriver(b.logger), nil
	case config.DriverChrome:
		return driver.NewChromeDriver(ctx, b.chromeConfig(httpCfg), b.logger)
	case config.DriverPlaywright:
		return driver.NewPlaywrightDriver(b.chromeConfig(httpCfg), b.logger)
	}
	return nil, fmt.Errorf("unknown driver %q: %w", b.cfg.Browser.Driver, ErrNoDriver)
}

func (b *Browser) chromeConfig(httpCfg driver.HTTPConfig) driver.ChromeConfig {
	return driver.ChromeConfig{
		Headless:          b.cfg.Chrome.Headless,
		ExecPath:          b.cfg.Chrome.ExecPath,
		NavigationTimeout: b.cfg.Chrome.NavigationTimeout,
		HTTP:              httpCfg,
	}
}

// applyDefaultHeaders installs the headers every session starts with.
// Drivers restore their own defaults on Reset, so this runs again there.
func (b *Browser) applyDefaultHeaders() error {
	if !b.cfg.Browser.SuppressResources {
		return nil
	}
	b.driver.ClearRequestHeader(SuppressResourcesHeader)
	if err := b.driver.AppendRequestHeader(SuppressResourcesHeader, "1"); err != nil {
		return fmt.Errorf("failed to install %s header: %w", SuppressResourcesHeader, err)
	}
	return nil
}

// ID identifies the session in logs.
func (b *Browser) ID() string { return b.id }

// Driver returns the active transport.
func (b *Browser) Driver() driver.Driver { return b.driver }

// Registry returns the widget registry forms are filled with.
func (b *Browser) Registry() *widget.Registry { return b.registry }

// Reset forgets cookies, headers and the current page.
func (b *Browser) Reset() error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.driver.Reset()
	b.static.Reset()
	b.onStatic = false
	b.last = nil
	b.status, b.reason = 0, ""
	b.doc = nil
	return b.applyDefaultHeaders()
}

// Cloned returns an independent session seeded with a copy of the cookies
// and permanent headers. Navigating either one never affects the other.
func (b *Browser) Cloned(ctx context.Context) (*Browser, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	d, err := b.driver.Cloned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s driver: %w", b.driver.Name(), err)
	}
	id := uuid.New().String()
	clone := &Browser{
		id:          id,
		cfg:         b.cfg,
		logger:      b.logger.With(zap.String("session_id", id), zap.String("parent_session_id", b.id)),
		driver:      d,
		registry:    b.registry,
		baseURL:     b.baseURL,
		mode:        b.mode,
		app:         b.app,
		transactor:  b.transactor,
		diagnostics: b.diagnostics,
		static:      driver.NewStaticDriver(b.logger),
	}
	return clone, nil
}

func (b *Browser) checkOpen() error {
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the driver and removes diagnostic dumps unless
// browser.keep_dumps is set. ctx is accepted for symmetry with the drivers
// that stop external processes.
func (b *Browser) Close(ctx context.Context) error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.removeDumps()
	if err := b.driver.Close(); err != nil {
		b.logger.Warn("Failed to close driver.", zap.Error(err))
		return fmt.Errorf("failed to close %s driver: %w", b.driver.Name(), err)
	}
	b.logger.Debug("Browser session closed.")
	return nil
}
