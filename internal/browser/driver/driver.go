// internal/browser/driver/driver.go
package driver

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Capability is a bit set describing what a transport can do.
type Capability uint8

const (
	// CapRequests means the driver can issue requests at all.
	CapRequests Capability = 1 << iota
	// CapPost means non-GET methods with bodies are supported.
	CapPost
	// CapWebDAV means WebDAV verbs reach a real server.
	CapWebDAV
	// CapJavaScript means pages are rendered by a JS engine.
	CapJavaScript
	// CapDuplicateHeaders means one request header name may carry several values.
	CapDuplicateHeaders
)

// Has reports whether every bit of want is present.
func (c Capability) Has(want Capability) bool { return c&want == want }

func (c Capability) String() string {
	var names []string
	for _, n := range []struct {
		bit  Capability
		name string
	}{
		{CapRequests, "requests"},
		{CapPost, "post"},
		{CapWebDAV, "webdav"},
		{CapJavaScript, "javascript"},
		{CapDuplicateHeaders, "duplicate-headers"},
	} {
		if c.Has(n.bit) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Request describes one navigation. URL must be absolute; the session resolves
// relative targets before handing them to a driver.
type Request struct {
	Method string
	URL    string
	// Data is sent as the query string for GET and HEAD, and as an
	// urlencoded body otherwise. Ignored when Body is set.
	Data        url.Values
	Body        []byte
	ContentType string
	Headers     http.Header
	Referer     string
}

// Clone returns a deep copy so a remembered request cannot be mutated by the caller.
func (r Request) Clone() Request {
	c := r
	if r.Data != nil {
		c.Data = make(url.Values, len(r.Data))
		for k, v := range r.Data {
			c.Data[k] = append([]string(nil), v...)
		}
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	if r.Headers != nil {
		c.Headers = r.Headers.Clone()
	}
	return c
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// Cookie is the attribute view of a cookie known to a session.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
}

// Driver is the transport contract every strategy implements.
type Driver interface {
	// Name identifies the strategy in logs and errors.
	Name() string
	Capabilities() Capability
	// Reset drops cookies, permanent headers, the replay record and the last response.
	Reset()
	// MakeRequest performs req, following redirects, and returns the final
	// status, reason phrase and body. The request is remembered for Reload
	// even when it fails.
	MakeRequest(ctx context.Context, req Request) (status int, reason string, body io.Reader, err error)
	// Reload replays the last remembered request.
	Reload(ctx context.Context) (status int, reason string, body io.Reader, err error)
	// ResponseBody returns the last body or ErrBlankPage.
	ResponseBody() ([]byte, error)
	// URL is the final URL of the last response, empty before any request.
	URL() string
	ResponseHeaders() http.Header
	ResponseCookies() map[string]Cookie
	// AppendRequestHeader adds a header sent with every following request.
	AppendRequestHeader(name, value string) error
	ClearRequestHeader(name string)
	// Cloned returns an independent driver holding a copy of the cookies and
	// permanent headers but none of the navigation state.
	Cloned(ctx context.Context) (Driver, error)
	Close() error
}

var webdavMethods = map[string]bool{
	"PROPFIND":  true,
	"PROPPATCH": true,
	"MKCOL":     true,
	"COPY":      true,
	"MOVE":      true,
	"LOCK":      true,
	"UNLOCK":    true,
}

// IsWebDAVMethod reports whether method is a WebDAV extension verb.
func IsWebDAVMethod(method string) bool { return webdavMethods[strings.ToUpper(method)] }
