// internal/browser/errors.go
package browser

import (
	"errors"
	"fmt"
)

// ErrNoDriver is returned when a session cannot establish a transport, for
// example the in-process driver without an application.
var ErrNoDriver = errors.New("no driver available: configure browser.driver or pass WithDriver/WithApplication")

// ErrClosed is returned by every operation on a closed browser.
var ErrClosed = errors.New("browser is closed")

// HTTPError is implemented by the errors returned for 4xx and 5xx responses.
type HTTPError interface {
	error
	StatusCode() int
	ReasonPhrase() string
}

type httpError struct {
	Method string
	URL    string
	Status int
	Reason string
}

func (e *httpError) StatusCode() int      { return e.Status }
func (e *httpError) ReasonPhrase() string { return e.Reason }

func (e *httpError) message() string {
	return fmt.Sprintf("HTTP Error %d: %s (%s %s)", e.Status, e.Reason, e.Method, e.URL)
}

// HTTPClientError reports a 4xx response.
type HTTPClientError struct{ httpError }

func (e *HTTPClientError) Error() string { return e.message() }

// HTTPServerError reports a 5xx response.
type HTTPServerError struct{ httpError }

func (e *HTTPServerError) Error() string { return e.message() }

func newHTTPError(method, target string, status int, reason string) HTTPError {
	base := httpError{Method: method, URL: target, Status: status, Reason: reason}
	if status >= 500 {
		return &HTTPServerError{base}
	}
	return &HTTPClientError{base}
}

// ExpectationError is returned by the expect scopes when the wrapped
// operation did not fail the way the caller said it would.
type ExpectationError struct {
	Expected string
	Got      string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expected %s, but %s", e.Expected, e.Got)
}
