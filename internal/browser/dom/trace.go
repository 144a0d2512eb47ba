// internal/browser/dom/trace.go
package dom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoSession is returned when a node operation needs to navigate but its
// document is not attached to a browser.
var ErrNoSession = errors.New("document is not attached to a browser session")

// Trace records the chain of query calls that produced a result set, plus
// hints added along the way. It is rendered into error messages.
type Trace struct {
	Call   string
	Args   []string
	Hints  []string
	Parent *Trace
}

// NewTrace starts a chain.
func NewTrace(call string, args ...string) *Trace {
	return &Trace{Call: call, Args: args}
}

// Chain returns a trace for a call made on the result of t.
func (t *Trace) Chain(call string, args ...string) *Trace {
	return &Trace{Call: call, Args: args, Parent: t}
}

// WithHint appends a hint in place and returns t, so nested helpers can
// enrich a trace they did not create.
func (t *Trace) WithHint(format string, args ...interface{}) *Trace {
	if t == nil {
		return nil
	}
	t.Hints = append(t.Hints, fmt.Sprintf(format, args...))
	return t
}

// AllHints returns the hints of the whole chain, outermost call last.
func (t *Trace) AllHints() []string {
	if t == nil {
		return nil
	}
	return append(t.Parent.AllHints(), t.Hints...)
}

func (t *Trace) String() string {
	if t == nil {
		return ""
	}
	quoted := make([]string, len(t.Args))
	for i, a := range t.Args {
		quoted[i] = strconv.Quote(a)
	}
	call := t.Call + "(" + strings.Join(quoted, ", ") + ")"
	if t.Parent == nil {
		return call
	}
	return t.Parent.String() + "." + call
}

func renderWithHints(msg string, t *Trace) string {
	hints := t.AllHints()
	if len(hints) == 0 {
		return msg
	}
	return msg + "\n" + strings.Join(hints, "\n")
}

// EmptyResultError is returned when an operation needs at least one node
// but the query matched nothing.
type EmptyResultError struct {
	Trace *Trace
}

func (e *EmptyResultError) Error() string {
	return renderWithHints(fmt.Sprintf("empty result set: %s did not match any element", e.Trace), e.Trace)
}

// TooManyResultsError is returned by Only when more than one node matched.
type TooManyResultsError struct {
	Trace *Trace
	Count int
}

func (e *TooManyResultsError) Error() string {
	return renderWithHints(fmt.Sprintf("expected exactly one element for %s, got %d", e.Trace, e.Count), e.Trace)
}

// NoElementFoundError is returned by finders such as click-by-text.
type NoElementFoundError struct {
	Trace *Trace
}

func (e *NoElementFoundError) Error() string {
	return renderWithHints(fmt.Sprintf("no element found: %s", e.Trace), e.Trace)
}
