// internal/browser/widget/errors.go
package widget

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSideSession is returned when a widget needs to query the
// application but its document is not attached to a browser that can
// issue side requests.
var ErrNoSideSession = errors.New("document has no session for side requests")

// OnlyOneValueAllowedError is returned when a single valued field is
// filled with several values.
type OnlyOneValueAllowedError struct {
	Field  string
	Values []string
}

func (e *OnlyOneValueAllowedError) Error() string {
	return fmt.Sprintf("field %q accepts only one value, got %d: %s", e.Field, len(e.Values), quoteAll(e.Values))
}

// OptionsNotFoundError lists the requested options a field does not offer.
type OptionsNotFoundError struct {
	Field     string
	Missing   []string
	Available []string
}

func (e *OptionsNotFoundError) Error() string {
	return fmt.Sprintf("field %q has no option(s) %s; available options: %s",
		e.Field, quoteAll(e.Missing), quoteAll(e.Available))
}

// UnsupportedControlError is returned for controls no fill rule handles.
type UnsupportedControlError struct {
	Field string
	Tag   string
	Type  string
}

func (e *UnsupportedControlError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("cannot fill field %q: unsupported control <%s type=%q>", e.Field, e.Tag, e.Type)
	}
	return fmt.Sprintf("cannot fill field %q: unsupported control <%s>", e.Field, e.Tag)
}

// InvalidValueError is returned when a value has the wrong shape for a field.
type InvalidValueError struct {
	Field    string
	Value    any
	Expected string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %#v for field %q: expected %s", e.Value, e.Field, e.Expected)
}

// ColumnError is returned by the data grid for a column it cannot fill.
type ColumnError struct {
	Column string
	Reason string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("data grid column %q: %s", e.Column, e.Reason)
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
