// internal/pages/pages.go
package pages

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/testbrowser/internal/browser/dom"
)

// Page is anything holding a current document, usually a *browser.Browser.
type Page interface {
	Document() (*dom.Document, error)
}

// Messages are the status messages rendered at the top of a page.
type Messages struct {
	Info    []string
	Warning []string
	Error   []string
}

// Empty reports whether no message of any kind is shown.
func (m Messages) Empty() bool {
	return len(m.Info) == 0 && len(m.Warning) == 0 && len(m.Error) == 0
}

// ErrorMessagesError is returned by AssertNoErrorMessages.
type ErrorMessagesError struct {
	Messages []string
}

func (e *ErrorMessagesError) Error() string {
	return fmt.Sprintf("page shows error messages: %q", e.Messages)
}

// StatusMessages collects the .portalMessage boxes by kind. Both the
// definition list markup and the div markup with a <strong> heading are
// understood.
func StatusMessages(p Page) (Messages, error) {
	var out Messages
	doc, err := p.Document()
	if err != nil {
		return out, err
	}
	boxes, err := doc.CSS(".portalMessage")
	if err != nil {
		return out, err
	}
	for _, box := range boxes.Nodes() {
		text := messageText(box)
		if text == "" {
			continue
		}
		switch {
		case box.HasClass("error"):
			out.Error = append(out.Error, text)
		case box.HasClass("warning"), box.HasClass("warn"):
			out.Warning = append(out.Warning, text)
		default:
			out.Info = append(out.Info, text)
		}
	}
	return out, nil
}

func messageText(box *dom.Node) string {
	if dd := box.FindFirst(func(n *dom.Node) bool { return n.Tag() == "dd" }); dd != nil {
		return dd.Text()
	}
	text := box.Text()
	if heading := box.FindFirst(func(n *dom.Node) bool { return n.Tag() == "strong" || n.Tag() == "dt" }); heading != nil {
		text = dom.NormalizeSpace(strings.TrimPrefix(text, heading.Text()))
	}
	return text
}

// AssertNoErrorMessages fails when the page shows an error message.
func AssertNoErrorMessages(p Page) error {
	msgs, err := StatusMessages(p)
	if err != nil {
		return err
	}
	if len(msgs.Error) > 0 {
		return &ErrorMessagesError{Messages: msgs.Error}
	}
	return nil
}

// PlonePageTitle is the main heading of the content, falling back to the
// part of <title> before the site name.
func PlonePageTitle(p Page) (string, error) {
	doc, err := p.Document()
	if err != nil {
		return "", err
	}
	headings, err := doc.CSS("h1.documentFirstHeading")
	if err != nil {
		return "", err
	}
	if h := headings.At(0); h != nil {
		return h.Text(), nil
	}
	title := doc.Title()
	for _, sep := range []string{" — ", " - "} {
		if i := strings.LastIndex(title, sep); i >= 0 {
			return strings.TrimSpace(title[:i]), nil
		}
	}
	return title, nil
}

// DocumentByLine returns the normalized author and date line of the
// content, or an empty string when the page has none.
func DocumentByLine(p Page) (string, error) {
	doc, err := p.Document()
	if err != nil {
		return "", err
	}
	lines, err := doc.CSS(".documentByLine")
	if err != nil {
		return "", err
	}
	if l := lines.At(0); l != nil {
		return l.Text(), nil
	}
	return "", nil
}
