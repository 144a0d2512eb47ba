// internal/browser/driver/static.go
package driver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// StaticDriver parses content handed to it and never talks to a server.
type StaticDriver struct {
	*core
	logger *zap.Logger
}

// NewStaticDriver creates a driver without request capabilities.
func NewStaticDriver(logger *zap.Logger) *StaticDriver {
	d := &StaticDriver{logger: logger}
	d.core = newCore("static", 0, 0, nil, "", logger, nil)
	return d
}

// Load installs body as the current response for target.
func (d *StaticDriver) Load(target string, contentType string, body []byte) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", target, err)
	}
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	d.core.resp = &response{
		status: http.StatusOK,
		reason: http.StatusText(http.StatusOK),
		header: http.Header{"Content-Type": {contentType}},
		body:   append([]byte(nil), body...),
		url:    u,
	}
	return nil
}

// Cloned implements Driver.
func (d *StaticDriver) Cloned(ctx context.Context) (Driver, error) {
	clone := NewStaticDriver(d.logger)
	d.core.copyStateTo(clone.core)
	return clone, nil
}

// Close implements Driver.
func (d *StaticDriver) Close() error { return nil }
