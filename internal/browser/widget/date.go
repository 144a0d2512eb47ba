// internal/browser/widget/date.go
package widget

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

var (
	// DateSpec matches a field split into day, month and year controls.
	DateSpec = Spec{
		Name:  "date",
		Match: func(n *dom.Node) bool { return matchDate(n, false) },
		New:   func(n *dom.Node) (Widget, error) { return newDateWidget(n, false) },
	}
	// DateTimeSpec additionally requires hour and minute controls.
	DateTimeSpec = Spec{
		Name:  "datetime",
		Match: func(n *dom.Node) bool { return matchDate(n, true) },
		New:   func(n *dom.Node) (Widget, error) { return newDateWidget(n, true) },
	}
)

// dateLayouts are tried in order when a date is given as a string.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// dateParts finds the year control and derives the naming convention of
// its siblings: "{base}-year" or "{base}_year".
func dateParts(n *dom.Node) (base, sep string, ok bool) {
	for _, c := range findAll(n, byTag("input", "select")) {
		name := c.Attr("name")
		for _, s := range []string{"-", "_"} {
			if strings.HasSuffix(name, s+"year") {
				return strings.TrimSuffix(name, s+"year"), s, true
			}
		}
	}
	return "", "", false
}

func dateComponent(n *dom.Node, base, sep, part string) *dom.Node {
	want := base + sep + part
	return n.FindFirst(func(c *dom.Node) bool {
		return (c.Tag() == "input" || c.Tag() == "select") && c.Attr("name") == want
	})
}

func matchDate(n *dom.Node, withTime bool) bool {
	if !isField(n) {
		return false
	}
	base, sep, ok := dateParts(n)
	if !ok {
		return false
	}
	parts := []string{"day", "month"}
	if withTime {
		parts = append(parts, "hour", "minute")
	}
	for _, p := range parts {
		if dateComponent(n, base, sep, p) == nil {
			return false
		}
	}
	return ownedBy(n, dateComponent(n, base, sep, "year"))
}

// Date fills day, month, year and optionally hour, minute and am/pm
// controls.
type Date struct {
	node     *dom.Node
	base     string
	sep      string
	withTime bool
}

func newDateWidget(n *dom.Node, withTime bool) (Widget, error) {
	base, sep, ok := dateParts(n)
	if !ok {
		return nil, fmt.Errorf("no year control below %s", n)
	}
	return &Date{node: n, base: base, sep: sep, withTime: withTime}, nil
}

func (d *Date) Name() string {
	if d.withTime {
		return "datetime"
	}
	return "date"
}

func (d *Date) Node() *dom.Node { return d.node }
func (d *Date) Label() string   { return fieldLabel(d.node) }

func (d *Date) FieldName() string {
	if name := d.node.Attr("data-fieldname"); name != "" {
		return name
	}
	return d.base
}

func (d *Date) component(part string) *dom.Node {
	return dateComponent(d.node, d.base, d.sep, part)
}

// TwelveHour reports whether an am/pm control is present.
func (d *Date) TwelveHour() bool {
	return d.component("ampm") != nil
}

// Fill accepts a time.Time or a string in one of the supported layouts.
func (d *Date) Fill(_ context.Context, value any) error {
	field := d.FieldName()
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case string:
		parsed, err := parseDate(v)
		if err != nil {
			return &InvalidValueError{Field: field, Value: value, Expected: "a date like 2006-01-02 or 2006-01-02 15:04"}
		}
		t = parsed
	default:
		return &InvalidValueError{Field: field, Value: value, Expected: "a time.Time or a date string"}
	}

	set := []datePart{
		{"day", t.Day(), false},
		{"month", int(t.Month()), false},
		{"year", t.Year(), false},
	}
	if d.withTime {
		hour := t.Hour()
		if d.TwelveHour() {
			hour %= 12
			if hour == 0 {
				hour = 12
			}
		}
		set = append(set, datePart{"hour", hour, false}, datePart{"minute", t.Minute(), true})
	}
	for _, s := range set {
		c := d.component(s.part)
		if c == nil {
			continue
		}
		if err := setNumeric(c, s.value, s.pad); err != nil {
			return err
		}
	}
	if d.withTime && d.TwelveHour() {
		ampm := "AM"
		if t.Hour() >= 12 {
			ampm = "PM"
		}
		if err := setAmPm(d.component("ampm"), ampm); err != nil {
			return err
		}
	}
	return nil
}

type datePart struct {
	part  string
	value int
	pad   bool
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// setNumeric writes n into a text input, or selects the option whose
// value is the same integer ("01" matches 1).
func setNumeric(c *dom.Node, n int, pad bool) error {
	if c.Tag() != "select" {
		if pad {
			c.SetAttr("value", fmt.Sprintf("%02d", n))
		} else {
			c.SetAttr("value", strconv.Itoa(n))
		}
		return nil
	}
	options, choices := selectChoices(c)
	found := -1
	for i, ch := range choices {
		if v, err := strconv.Atoi(strings.TrimSpace(ch.Token)); err == nil && v == n {
			found = i
			break
		}
	}
	if found < 0 {
		return &OptionsNotFoundError{Field: c.Attr("name"), Missing: []string{strconv.Itoa(n)}, Available: labelsOf(choices)}
	}
	for i, o := range options {
		setSelected(o, i == found)
	}
	return nil
}

func setAmPm(c *dom.Node, want string) error {
	if c.Tag() != "select" {
		c.SetAttr("value", want)
		return nil
	}
	options, choices := selectChoices(c)
	for i, ch := range choices {
		if strings.EqualFold(ch.Token, want) || strings.EqualFold(ch.Label, want) {
			for j, o := range options {
				setSelected(o, j == i)
			}
			return nil
		}
	}
	return &OptionsNotFoundError{Field: c.Attr("name"), Missing: []string{want}, Available: labelsOf(choices)}
}
