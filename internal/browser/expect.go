// internal/browser/expect.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// unauthorizedMarkers are URL fragments of the pages an application sends
// anonymous or underprivileged users to.
var unauthorizedMarkers = []string{"require_login", "login_form", "insufficient-privileges"}

// ExpectHTTPError runs fn and succeeds only if it fails with an HTTP error
// of the given status and reason. code 0 and an empty reason match any.
// Server errors inside the scope are not reported to the diagnostics
// writer and leave no body dump.
func (b *Browser) ExpectHTTPError(ctx context.Context, code int, reason string, fn func(context.Context) error) error {
	err := b.expect(ctx, fn)
	expected := describeExpected(code, reason)
	if err == nil {
		return &ExpectationError{Expected: expected, Got: fmt.Sprintf("the request succeeded with %d %s", b.status, b.reason)}
	}

	var herr HTTPError
	if !errors.As(err, &herr) {
		return err
	}
	if (code != 0 && herr.StatusCode() != code) || (reason != "" && herr.ReasonPhrase() != reason) {
		return &ExpectationError{Expected: expected, Got: fmt.Sprintf("got HTTP error %d %s", herr.StatusCode(), herr.ReasonPhrase())}
	}
	return nil
}

// ExpectUnauthorized runs fn and succeeds if it fails with 401 or 403, or
// lands on a login or insufficient privileges page.
func (b *Browser) ExpectUnauthorized(ctx context.Context, fn func(context.Context) error) error {
	err := b.expect(ctx, fn)
	if err != nil {
		var herr HTTPError
		if !errors.As(err, &herr) {
			return err
		}
		switch herr.StatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil
		}
		return &ExpectationError{Expected: "an unauthorized response", Got: fmt.Sprintf("got HTTP error %d %s", herr.StatusCode(), herr.ReasonPhrase())}
	}

	current := b.URL()
	for _, marker := range unauthorizedMarkers {
		if strings.Contains(current, marker) {
			return nil
		}
	}
	return &ExpectationError{Expected: "an unauthorized response", Got: fmt.Sprintf("the request succeeded and ended on %s", current)}
}

func (b *Browser) expect(ctx context.Context, fn func(context.Context) error) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.expecting++
	defer func() { b.expecting-- }()
	return fn(ctx)
}

func describeExpected(code int, reason string) string {
	switch {
	case code != 0 && reason != "":
		return fmt.Sprintf("HTTP error %d %s", code, reason)
	case code != 0:
		return fmt.Sprintf("HTTP error %d", code)
	case reason != "":
		return fmt.Sprintf("HTTP error %q", reason)
	}
	return "an HTTP error"
}
