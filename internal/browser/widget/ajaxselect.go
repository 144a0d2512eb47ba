// internal/browser/widget/ajaxselect.go
package widget

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
	"github.com/xkilldash9x/testbrowser/internal/browser/jsexec"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SideSession issues requests that must not disturb the page being
// filled. The browser implements it with a cloned driver.
type SideSession interface {
	Fetch(ctx context.Context, target string) ([]byte, error)
}

// AjaxSelectSpec matches autocomplete fields whose options come from a
// search endpoint rather than from <option> elements.
var AjaxSelectSpec = Spec{
	Name:  "ajaxselect",
	Match: matchAjaxSelect,
	New:   func(n *dom.Node) (Widget, error) { return NewAjaxSelect(n), nil },
}

func isAutocompleteBox(n *dom.Node) bool {
	return n.Tag() == "div" && n.HasClass("autocompleteInputWidget")
}

func isSelect2Input(n *dom.Node) bool {
	return n.Tag() == "input" && n.HasClass("pat-select2") && n.HasAttr("data-pat-select2")
}

func matchAjaxSelect(n *dom.Node) bool {
	if isSelect2Input(n) {
		return true
	}
	for _, c := range n.Children() {
		if isAutocompleteBox(c) {
			return true
		}
	}
	return false
}

// AjaxSelect is either a classic autocomplete box, which submits one
// input per chosen token, or a select2 input holding the tokens joined
// by a separator.
type AjaxSelect struct {
	node *dom.Node
}

func NewAjaxSelect(n *dom.Node) *AjaxSelect {
	return &AjaxSelect{node: n}
}

func (a *AjaxSelect) Name() string    { return "ajaxselect" }
func (a *AjaxSelect) Node() *dom.Node { return a.node }

func (a *AjaxSelect) select2() bool { return isSelect2Input(a.node) }

func (a *AjaxSelect) Label() string {
	if a.select2() {
		return inputLabel(a.node)
	}
	return fieldLabel(a.node)
}

// FieldName comes from the empty marker input the widget renders next
// to its options.
func (a *AjaxSelect) FieldName() string {
	if a.select2() {
		return a.node.Attr("name")
	}
	marker := a.node.FindFirst(func(n *dom.Node) bool {
		return n.Tag() == "input" && strings.HasSuffix(n.Attr("name"), "-empty-marker")
	})
	if marker != nil {
		return strings.TrimSuffix(marker.Attr("name"), "-empty-marker")
	}
	if name := a.node.Attr("data-fieldname"); name != "" {
		return name
	}
	if inputs := a.optionInputs(); len(inputs) > 0 {
		return strings.TrimSuffix(inputs[0].Attr("name"), ":list")
	}
	return ""
}

func (a *AjaxSelect) box() *dom.Node {
	for _, c := range a.node.Children() {
		if isAutocompleteBox(c) {
			return c
		}
	}
	return nil
}

func (a *AjaxSelect) optionInputs() []*dom.Node {
	box := a.box()
	if box == nil {
		return nil
	}
	return findAll(box, func(n *dom.Node) bool {
		return n.Tag() == "input" && n.Closest(isOptionSpan) != nil
	})
}

// Multiple is false for radio based autocomplete boxes and for select2
// inputs configured with maximumSelectionSize 1.
func (a *AjaxSelect) Multiple() bool {
	if a.select2() {
		cfg, _ := a.select2Config()
		return cfg.MaximumSelectionSize != 1
	}
	for _, in := range a.optionInputs() {
		if controlType(in) == "radio" {
			return false
		}
	}
	return true
}

// Selected returns the chosen entries.
func (a *AjaxSelect) Selected() []Choice {
	if a.select2() {
		cfg, _ := a.select2Config()
		var out []Choice
		for _, tok := range strings.Split(a.node.Attr("value"), cfg.separator()) {
			if tok = strings.TrimSpace(tok); tok != "" {
				out = append(out, Choice{Token: tok, Label: tok})
			}
		}
		return out
	}
	var out []Choice
	for _, in := range a.optionInputs() {
		if t := controlType(in); (t == "checkbox" || t == "radio") && !in.HasAttr("checked") {
			continue
		}
		out = append(out, Choice{Token: in.Attr("value"), Label: optionLabel(in)})
	}
	return out
}

type select2Config struct {
	Separator            string `json:"separator"`
	VocabularyURL        string `json:"vocabularyUrl"`
	MaximumSelectionSize int    `json:"maximumSelectionSize"`
	Ajax                 struct {
		URL string `json:"url"`
	} `json:"ajax"`
}

func (c select2Config) separator() string {
	if c.Separator == "" {
		return ","
	}
	return c.Separator
}

func (a *AjaxSelect) select2Config() (select2Config, error) {
	var cfg select2Config
	raw := a.node.Attr("data-pat-select2")
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("invalid select2 configuration on %s: %w", a.node, err)
	}
	return cfg, nil
}

// Endpoint returns the search URL, resolved against the document. For
// autocomplete boxes it is read from the inline script that sets the
// widget up.
func (a *AjaxSelect) Endpoint(ctx context.Context) (*url.URL, error) {
	var raw string
	if a.select2() {
		cfg, err := a.select2Config()
		if err != nil {
			return nil, err
		}
		raw = cfg.VocabularyURL
		if raw == "" {
			raw = cfg.Ajax.URL
		}
	} else {
		found, err := a.scriptEndpoint(ctx)
		if err != nil {
			return nil, err
		}
		raw = found
	}
	if raw == "" {
		return nil, fmt.Errorf("no search endpoint configured for field %q", a.FieldName())
	}
	return a.node.Document().ResolveURL(raw)
}

func (a *AjaxSelect) scriptEndpoint(ctx context.Context) (string, error) {
	scripts := findAll(a.node, byTag("script"))
	if len(scripts) == 0 {
		return "", nil
	}
	runtime, err := jsexec.NewRuntime(nil)
	if err != nil {
		return "", err
	}
	for _, s := range scripts {
		if _, err := runtime.ExecuteScript(ctx, s.RawText(), nil); err != nil {
			return "", fmt.Errorf("widget script for field %q failed: %w", a.FieldName(), err)
		}
		if endpoint, ok := runtime.FirstStringArg("autocomplete"); ok {
			return endpoint, nil
		}
	}
	return "", nil
}

// Query asks the search endpoint for entries matching text.
func (a *AjaxSelect) Query(ctx context.Context, text string) ([]Choice, error) {
	side, ok := a.node.Document().Session().(SideSession)
	if !ok {
		return nil, ErrNoSideSession
	}
	endpoint, err := a.Endpoint(ctx)
	if err != nil {
		return nil, err
	}
	param := "q"
	if a.select2() {
		param = "query"
	}
	q := endpoint.Query()
	q.Set(param, text)
	endpoint.RawQuery = q.Encode()

	body, err := side.Fetch(ctx, endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("autocomplete query for field %q failed: %w", a.FieldName(), err)
	}
	return parseChoices(body)
}

// parseChoices reads either a select2 JSON document or the classic
// "token|label" line format.
func parseChoices(body []byte) ([]Choice, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var doc struct {
			Results []struct {
				ID   jsoniter.RawMessage `json:"id"`
				Text string              `json:"text"`
			} `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("invalid autocomplete response: %w", err)
		}
		out := make([]Choice, len(doc.Results))
		for i, r := range doc.Results {
			out[i] = Choice{Token: rawToken(r.ID), Label: r.Text}
		}
		return out, nil
	}

	var out []Choice
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		token, label, found := strings.Cut(line, "|")
		if !found {
			label = token
		}
		out = append(out, Choice{Token: token, Label: label})
	}
	return out, sc.Err()
}

// rawToken renders a JSON id, which may be a string or a number.
func rawToken(raw jsoniter.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// Fill selects the given entries. A value may be a Choice, or a label or
// token that is looked up among the current selection and then through
// Query.
func (a *AjaxSelect) Fill(ctx context.Context, value any) error {
	field := a.FieldName()
	var wanted []Choice
	switch v := value.(type) {
	case Choice:
		wanted = []Choice{v}
	case []Choice:
		wanted = v
	default:
		names, err := stringsOf(field, value)
		if err != nil {
			return err
		}
		for _, name := range names {
			c, err := a.resolve(ctx, field, name)
			if err != nil {
				return err
			}
			wanted = append(wanted, c)
		}
	}
	if !a.Multiple() && len(wanted) > 1 {
		return &OnlyOneValueAllowedError{Field: field, Values: labelsOf(wanted)}
	}

	if a.select2() {
		cfg, err := a.select2Config()
		if err != nil {
			return err
		}
		tokens := make([]string, len(wanted))
		for i, c := range wanted {
			tokens[i] = c.Token
		}
		a.node.SetAttr("value", strings.Join(tokens, cfg.separator()))
		return nil
	}

	box := a.box()
	for _, span := range findAll(box, isOptionSpan) {
		span.Remove()
	}
	doc := a.node.Document()
	for _, c := range wanted {
		span := doc.CreateElement("span", "class", "option")
		label := doc.CreateElement("span", "class", "label")
		label.SetText(c.Label)
		span.AppendChild(label)
		span.AppendChild(doc.CreateElement("input",
			"type", "hidden",
			"name", field+":list",
			"value", c.Token,
		))
		box.AppendChild(span)
	}
	return nil
}

func (a *AjaxSelect) resolve(ctx context.Context, field, name string) (Choice, error) {
	name = dom.NormalizeSpace(name)
	for _, c := range a.Selected() {
		if c.Label == name || c.Token == name {
			return c, nil
		}
	}
	found, err := a.Query(ctx, name)
	if err != nil {
		return Choice{}, err
	}
	for _, c := range found {
		if c.Label == name || c.Token == name {
			return c, nil
		}
	}
	return Choice{}, &OptionsNotFoundError{Field: field, Missing: []string{name}, Available: labelsOf(found)}
}
