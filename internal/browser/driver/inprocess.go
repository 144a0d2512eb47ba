// internal/browser/driver/inprocess.go
package driver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"go.uber.org/zap"
)

// Transaction is the unit of isolation an in-process request runs in.
type Transaction interface {
	Commit() error
	Abort() error
}

// Transactor starts a transaction per dispatched request.
type Transactor interface {
	Begin(ctx context.Context) (Transaction, error)
}

// InProcessConfig configures the in-process driver.
type InProcessConfig struct {
	MaxRedirects int
	Headers      http.Header
	UserAgent    string
	// Transactor is optional. Without one requests run unisolated.
	Transactor Transactor
}

// InProcessDriver dispatches requests straight into an http.Handler without
// opening sockets. Each request runs inside its own transaction when a
// Transactor is configured: it commits on success and aborts on a panic or
// a 5xx response.
type InProcessDriver struct {
	*core
	app    http.Handler
	cfg    InProcessConfig
	logger *zap.Logger
}

// NewInProcessDriver wraps app.
func NewInProcessDriver(app http.Handler, cfg InProcessConfig, logger *zap.Logger) *InProcessDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &InProcessDriver{app: app, cfg: cfg, logger: logger}
	d.core = newCore("inprocess", CapRequests|CapPost, cfg.MaxRedirects, cfg.Headers, cfg.UserAgent, logger, d.dispatch)
	return d
}

func (d *InProcessDriver) dispatch(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	req.RequestURI = req.URL.RequestURI()
	req.RemoteAddr = "192.0.2.1:1234"

	var tx Transaction
	if d.cfg.Transactor != nil {
		var err error
		if tx, err = d.cfg.Transactor.Begin(ctx); err != nil {
			return nil, fmt.Errorf("could not begin transaction for %s: %w", req.URL, err)
		}
	}

	rec := httptest.NewRecorder()
	if recovered := d.serve(rec, req); recovered != nil {
		d.core.logger.Error("Application panicked while handling request",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Any("panic", recovered))
		if tx != nil {
			if err := tx.Abort(); err != nil {
				d.core.logger.Warn("Transaction abort failed", zap.Error(err))
			}
		}
		rec = httptest.NewRecorder()
		http.Error(rec, fmt.Sprintf("Internal Server Error: %v", recovered), http.StatusInternalServerError)
	} else if tx != nil {
		if rec.Code >= http.StatusInternalServerError {
			if err := tx.Abort(); err != nil {
				d.core.logger.Warn("Transaction abort failed", zap.Error(err))
			}
		} else if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("could not commit transaction for %s: %w", req.URL, err)
		}
	}

	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

func (d *InProcessDriver) serve(w http.ResponseWriter, r *http.Request) (recovered interface{}) {
	defer func() {
		recovered = recover()
	}()
	d.app.ServeHTTP(w, r)
	return nil
}

// Cloned implements Driver.
func (d *InProcessDriver) Cloned(ctx context.Context) (Driver, error) {
	clone := NewInProcessDriver(d.app, d.cfg, d.logger)
	d.core.copyStateTo(clone.core)
	return clone, nil
}

// Close implements Driver.
func (d *InProcessDriver) Close() error { return nil }
