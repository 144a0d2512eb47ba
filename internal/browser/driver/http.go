// internal/browser/driver/http.go
package driver

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/testbrowser/internal/config"
)

const (
	DefaultDialTimeout           = 15 * time.Second
	DefaultKeepAliveInterval     = 30 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
	DefaultRequestTimeout        = 120 * time.Second
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultMaxIdleConnsPerHost   = 10
)

// HTTPConfig configures the socket based driver.
type HTTPConfig struct {
	MaxRedirects    int
	RequestTimeout  time.Duration
	IgnoreTLSErrors bool
	ProxyURL        *url.URL
	// Headers are permanent defaults restored on every Reset.
	Headers   http.Header
	UserAgent string
	// RateLimit caps requests per second, redirect hops included. Zero disables it.
	RateLimit float64
	// Transport replaces the socket transport. Compression handling still wraps it.
	Transport http.RoundTripper
}

// NewHTTPConfig derives driver settings from the application configuration.
func NewHTTPConfig(cfg *config.Config) (HTTPConfig, error) {
	hc := HTTPConfig{
		MaxRedirects:    cfg.Browser.MaxRedirects,
		RequestTimeout:  cfg.Network.RequestTimeout,
		IgnoreTLSErrors: cfg.Network.IgnoreTLSErrors,
		UserAgent:       cfg.Browser.UserAgent,
		RateLimit:       cfg.Network.RateLimit,
		Headers:         http.Header{},
	}
	for name, value := range cfg.Network.Headers {
		hc.Headers.Add(name, value)
	}
	if cfg.Network.ProxyURL != "" {
		proxy, err := url.Parse(cfg.Network.ProxyURL)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid network.proxy_url: %w", err)
		}
		hc.ProxyURL = proxy
	}
	return hc, nil
}

// HTTPDriver talks to a real server over sockets.
type HTTPDriver struct {
	*core
	cfg       HTTPConfig
	logger    *zap.Logger
	client    *http.Client
	transport *http.Transport
	limiter   *rate.Limiter
}

// NewHTTPDriver creates a socket driver. Redirects are never followed by the
// client itself; the shared engine applies the session's redirect policy.
func NewHTTPDriver(cfg HTTPConfig, logger *zap.Logger) *HTTPDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &HTTPDriver{cfg: cfg, logger: logger}
	if cfg.RateLimit > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	base := cfg.Transport
	if base == nil {
		d.transport = newHTTPTransport(cfg)
		base = d.transport
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	d.client = &http.Client{
		Transport: NewCompressionMiddleware(base),
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	caps := CapRequests | CapPost | CapWebDAV | CapDuplicateHeaders
	d.core = newCore("http", caps, cfg.MaxRedirects, cfg.Headers, cfg.UserAgent, logger, d.roundTrip)
	return d
}

func newHTTPTransport(cfg HTTPConfig) *http.Transport {
	dialer := &net.Dialer{Timeout: DefaultDialTimeout, KeepAlive: DefaultKeepAliveInterval}
	transport := &http.Transport{
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.IgnoreTLSErrors,
		},
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		// Decompression is done by CompressionMiddleware so brotli is covered too.
		DisableCompression: true,
		ForceAttemptHTTP2:  true,
	}
	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	}
	return transport
}

func (d *HTTPDriver) roundTrip(ctx context.Context, req *http.Request) (*http.Response, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}
	resp, err := d.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	return resp, nil
}

// Cloned implements Driver.
func (d *HTTPDriver) Cloned(ctx context.Context) (Driver, error) {
	clone := NewHTTPDriver(d.cfg, d.logger)
	d.core.copyStateTo(clone.core)
	return clone, nil
}

// Close releases idle connections.
func (d *HTTPDriver) Close() error {
	if d.transport != nil {
		d.transport.CloseIdleConnections()
	}
	return nil
}
