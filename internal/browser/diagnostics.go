// internal/browser/diagnostics.go
package browser

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/xkilldash9x/testbrowser/internal/browser/driver"
)

const excerptLimit = 2048

// curlCommand is a shell command line reproducing a request.
type curlCommand []string

func (c *curlCommand) add(args ...string) {
	for _, a := range args {
		*c = append(*c, shellescape.Quote(a))
	}
}

func (c curlCommand) String() string { return strings.Join(c, " ") }

// reproduce renders req as a curl invocation, permanent headers excluded.
func reproduce(req driver.Request) string {
	cmd := curlCommand{"curl"}
	cmd.add("-i", "-X", req.Method)
	names := make([]string, 0, len(req.Headers))
	for name := range req.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range req.Headers[name] {
			cmd.add("-H", name+": "+v)
		}
	}
	if req.Referer != "" {
		cmd.add("-e", req.Referer)
	}
	switch {
	case req.Body != nil:
		if req.ContentType != "" {
			cmd.add("-H", "Content-Type: "+req.ContentType)
		}
		cmd.add("--data-binary", string(req.Body))
	case len(req.Data) > 0 && (req.Method == http.MethodGet || req.Method == http.MethodHead):
		cmd.add("-G", "--data", req.Data.Encode())
	case len(req.Data) > 0:
		cmd.add("--data", req.Data.Encode())
	}
	cmd.add(req.URL)
	return cmd.String()
}

// reportServerError prints a 5xx response for the developer running the
// test: status, a body excerpt and a command to replay the request.
func (b *Browser) reportServerError(req driver.Request, herr HTTPError) {
	b.logger.Error("Server error.",
		zap.Int("status", herr.StatusCode()),
		zap.String("reason", herr.ReasonPhrase()),
		zap.String("method", req.Method),
		zap.String("url", req.URL))
	if b.diagnostics == nil {
		return
	}

	red := color.New(color.FgRed, color.Bold)
	dim := color.New(color.Faint)
	cyan := color.New(color.FgCyan)

	red.Fprintf(b.diagnostics, "%d %s: %s %s\n", herr.StatusCode(), herr.ReasonPhrase(), req.Method, req.URL)
	if body, err := b.driver.ResponseBody(); err == nil && len(body) > 0 {
		excerpt := string(body)
		if len(excerpt) > excerptLimit {
			excerpt = excerpt[:excerptLimit] + "..."
		}
		dim.Fprintln(b.diagnostics, excerpt)
	}
	cyan.Fprintf(b.diagnostics, "reproduce with: %s\n", reproduce(req))
}

// failed dumps the current body for post-mortem inspection of an error
// escaping a request. Nothing is written inside an expect scope.
func (b *Browser) failed(req driver.Request, err error) {
	if b.expecting > 0 {
		return
	}
	body, berr := b.driver.ResponseBody()
	if berr != nil || len(body) == 0 {
		return
	}
	path, derr := b.dump(body)
	if derr != nil {
		b.logger.Warn("Failed to dump response body.", zap.Error(derr))
		return
	}
	b.logger.Info("Response body dumped.",
		zap.String("path", path),
		zap.String("url", req.URL),
		zap.NamedError("cause", err))
	if b.diagnostics != nil {
		fmt.Fprintf(b.diagnostics, "response body of %s %s saved to %s\n", req.Method, req.URL, path)
	}
}

func (b *Browser) dump(body []byte) (string, error) {
	f, err := os.CreateTemp(b.cfg.Browser.DumpDir, "testbrowser-*.html")
	if err != nil {
		return "", fmt.Errorf("could not create dump file: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("could not write dump file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("could not close dump file: %w", err)
	}
	b.dumps = append(b.dumps, f.Name())
	return f.Name(), nil
}

// Dumps lists the body dumps written by this session.
func (b *Browser) Dumps() []string { return append([]string(nil), b.dumps...) }

func (b *Browser) removeDumps() {
	if b.cfg.Browser.KeepDumps {
		return
	}
	for _, path := range b.dumps {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			b.logger.Debug("Failed to remove dump.", zap.String("path", path), zap.Error(err))
		}
	}
	b.dumps = nil
}
