// internal/browser/driver/errors.go
package driver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBlankPage is returned by content accessors before any response exists.
var ErrBlankPage = errors.New("the browser is on a blank page; no request has been made yet")

// RedirectLoopError reports a redirect chain that revisits a target or runs too long.
type RedirectLoopError struct {
	URL   string
	Chain []string
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect loop detected at %s (chain: %s)", e.URL, strings.Join(e.Chain, " -> "))
}

// CapabilityError reports an operation the active transport cannot perform.
type CapabilityError struct {
	Driver    string
	Operation string
	Missing   Capability
}

func (e *CapabilityError) Error() string {
	if e.Missing == 0 {
		return fmt.Sprintf("driver %q does not support %s", e.Driver, e.Operation)
	}
	return fmt.Sprintf("driver %q does not support %s (missing capability: %s)", e.Driver, e.Operation, e.Missing)
}

// HeaderConflictError is returned when a driver refuses a second value for a header name.
type HeaderConflictError struct {
	Driver string
	Name   string
}

func (e *HeaderConflictError) Error() string {
	return fmt.Sprintf("driver %q already sends a %q header; clear it before setting a new value", e.Driver, e.Name)
}
