// internal/browser/form/errors.go
package form

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAForm is returned when a form is built from another element.
var ErrNotAForm = errors.New("element is not a form")

// FieldNotFoundError is returned when no form has a control with the
// given label or name.
type FieldNotFoundError struct {
	Query     string
	Available []string
}

func (e *FieldNotFoundError) Error() string {
	msg := fmt.Sprintf("form field %q not found", e.Query)
	if len(e.Available) > 0 {
		msg += "; available fields: " + strings.Join(e.Available, ", ")
	}
	return msg
}

// AmbiguousFormFieldsError is returned when the fields of one operation
// belong to different forms, or one field is found in several.
type AmbiguousFormFieldsError struct {
	Queries []string
	Forms   []string
}

func (e *AmbiguousFormFieldsError) Error() string {
	if len(e.Queries) == 1 {
		return fmt.Sprintf("field %q is found in several forms (%s)", e.Queries[0], strings.Join(e.Forms, ", "))
	}
	return fmt.Sprintf("fields %s belong to different forms (%s)",
		strings.Join(quoted(e.Queries), ", "), strings.Join(e.Forms, ", "))
}

// ButtonNotFoundError is returned when a form has no button with the
// given label or name.
type ButtonNotFoundError struct {
	Query     string
	Available []string
}

func (e *ButtonNotFoundError) Error() string {
	return fmt.Sprintf("button %q not found; available buttons: %s", e.Query, strings.Join(quoted(e.Available), ", "))
}

func quoted(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
