// internal/browser/form/submit.go
package form

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/driver"
)

// Field is one name/value pair of a submission. Upload is set for file
// inputs.
type Field struct {
	Name   string
	Value  string
	Upload *dom.Upload
}

// Fields serializes the form the way a browser does when submitter is
// clicked: in document order, skipping disabled and unnamed controls,
// unchecked boxes and every button but the submitter.
func (f *Form) Fields(submitter *dom.Node) ([]Field, error) {
	if submitter != nil {
		if owner := dom.OwningForm(submitter); owner == nil || !owner.Equal(f.node) {
			return nil, fmt.Errorf("submitter %s does not belong to form %s", submitter, f)
		}
	}

	var out []Field
	for _, c := range f.Controls() {
		if c.HasAttr("disabled") || c.Closest(disabledFieldset) != nil {
			continue
		}
		name := c.Attr("name")

		if isButton(c) {
			if submitter == nil || !c.Equal(submitter) {
				continue
			}
			if c.Tag() == "input" && controlType(c) == "image" {
				prefix := ""
				if name != "" {
					prefix = name + "."
				}
				out = append(out, Field{Name: prefix + "x", Value: "0"}, Field{Name: prefix + "y", Value: "0"})
				continue
			}
			if name != "" {
				out = append(out, Field{Name: name, Value: c.Attr("value")})
			}
			continue
		}
		if name == "" {
			continue
		}

		switch c.Tag() {
		case "textarea":
			out = append(out, Field{Name: name, Value: c.RawText()})
		case "select":
			out = append(out, selectFields(c, name)...)
		case "input":
			switch controlType(c) {
			case "checkbox", "radio":
				if c.HasAttr("checked") {
					value, ok := c.LookupAttr("value")
					if !ok {
						value = "on"
					}
					out = append(out, Field{Name: name, Value: value})
				}
			case "file":
				up, ok := c.Document().Upload(c)
				if !ok {
					up = dom.Upload{}
				}
				out = append(out, Field{Name: name, Value: up.Filename, Upload: &up})
			default:
				out = append(out, Field{Name: name, Value: c.Attr("value")})
			}
		}
	}
	return out, nil
}

func disabledFieldset(n *dom.Node) bool {
	return n.Tag() == "fieldset" && n.HasAttr("disabled")
}

// selectFields returns the selected options. A single select with no
// selection submits its first option.
func selectFields(sel *dom.Node, name string) []Field {
	var options []*dom.Node
	for _, d := range sel.Descendants() {
		if d.Tag() == "option" {
			options = append(options, d)
		}
	}
	value := func(o *dom.Node) string {
		if v, ok := o.LookupAttr("value"); ok {
			return v
		}
		return o.Text()
	}

	var out []Field
	for _, o := range options {
		if o.HasAttr("selected") && !o.HasAttr("disabled") {
			out = append(out, Field{Name: name, Value: value(o)})
		}
	}
	if len(out) == 0 && !sel.HasAttr("multiple") {
		for _, o := range options {
			if !o.HasAttr("disabled") {
				return []Field{{Name: name, Value: value(o)}}
			}
		}
	}
	if !sel.HasAttr("multiple") && len(out) > 1 {
		out = out[len(out)-1:]
	}
	return out
}

// Values returns the submission as url.Values.
func (f *Form) Values(submitter *dom.Node) (url.Values, error) {
	fields, err := f.Fields(submitter)
	if err != nil {
		return nil, err
	}
	values := make(url.Values)
	for _, field := range fields {
		values.Add(field.Name, field.Value)
	}
	return values, nil
}

// encodeOrdered is url.Values.Encode without the key sorting.
func encodeOrdered(fields []Field) string {
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = url.QueryEscape(field.Name) + "=" + url.QueryEscape(field.Value)
	}
	return strings.Join(parts, "&")
}

// Payload encodes the submission for a POST body.
func (f *Form) Payload(submitter *dom.Node) (contentType string, body []byte, err error) {
	fields, err := f.Fields(submitter)
	if err != nil {
		return "", nil, err
	}
	if f.Enctype() != "multipart/form-data" {
		return "application/x-www-form-urlencoded", []byte(encodeOrdered(fields)), nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, field := range fields {
		if field.Upload == nil {
			if err := mw.WriteField(field.Name, field.Value); err != nil {
				return "", nil, fmt.Errorf("failed to encode field %q: %w", field.Name, err)
			}
			continue
		}
		ct := field.Upload.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(field.Name), escapeQuotes(field.Upload.Filename)))
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode upload %q: %w", field.Name, err)
		}
		if _, err := part.Write(field.Upload.Data); err != nil {
			return "", nil, fmt.Errorf("failed to encode upload %q: %w", field.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return mw.FormDataContentType(), buf.Bytes(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

// Request builds the navigation that submits the form.
func (f *Form) Request(submitter *dom.Node) (driver.Request, error) {
	method := f.Method()
	if submitter != nil {
		if m := submitter.Attr("formmethod"); m != "" {
			method = strings.ToUpper(m)
		}
	}
	action, err := f.Action()
	if err != nil {
		return driver.Request{}, err
	}
	if submitter != nil {
		if a, ok := submitter.LookupAttr("formaction"); ok {
			if action, err = f.node.Document().ResolveURL(a); err != nil {
				return driver.Request{}, err
			}
		}
	}

	req := driver.Request{Method: method}
	if base := f.node.Document().URL(); base != nil {
		req.Referer = base.String()
	}
	if method == http.MethodGet {
		fields, err := f.Fields(submitter)
		if err != nil {
			return driver.Request{}, err
		}
		target := *action
		target.RawQuery = encodeOrdered(fields)
		target.Fragment = ""
		req.URL = target.String()
		return req, nil
	}

	contentType, body, err := f.Payload(submitter)
	if err != nil {
		return driver.Request{}, err
	}
	action.Fragment = ""
	req.URL = action.String()
	req.Body = body
	req.ContentType = contentType
	return req, nil
}
