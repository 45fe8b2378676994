package htmldoc

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/ds160fill/dom"
)

var postbackCall = regexp.MustCompile(`__doPostBack\('([^']*)'\s*,\s*'([^']*)'\)`)

// Element is a node of a Document.
type Element struct {
	doc *Document
	n   *html.Node
}

var _ dom.Element = (*Element)(nil)

// Node exposes the underlying tree node.
func (e *Element) Node() *html.Node { return e.n }

// SetChecked changes checkedness without firing events. Host handlers use
// it to veto an activation.
func (e *Element) SetChecked(on bool) { setChecked(e.n, on) }

func (e *Element) TagName(_ context.Context) (string, error) {
	return strings.ToLower(e.n.Data), nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, error) {
	return attr(e.n, name), nil
}

func (e *Element) Value(_ context.Context) (string, error) {
	switch e.n.Data {
	case "textarea":
		return textContent(e.n), nil
	case "select":
		opts := options(e.n)
		for _, o := range opts {
			if hasAttr(o, "selected") {
				return optionValue(o), nil
			}
		}
		if len(opts) > 0 {
			return optionValue(opts[0]), nil
		}
		return "", nil
	}
	return attr(e.n, "value"), nil
}

func (e *Element) SetValue(_ context.Context, v string) error {
	switch e.n.Data {
	case "textarea":
		for c := e.n.FirstChild; c != nil; {
			next := c.NextSibling
			e.n.RemoveChild(c)
			c = next
		}
		e.n.AppendChild(&html.Node{Type: html.TextNode, Data: v})
	case "select":
		for i, o := range options(e.n) {
			if optionValue(o) == v {
				selectOnly(e.n, i)
				return nil
			}
		}
		selectOnly(e.n, -1)
	default:
		setAttr(e.n, "value", v)
	}
	return nil
}

func (e *Element) Checked(_ context.Context) (bool, error) {
	return hasAttr(e.n, "checked"), nil
}

// Click mirrors native activation: checkboxes toggle, radios select within
// their group, click handlers run (and may undo the toggle), then change
// fires when the state moved. Anchors with a postback href invoke the
// page's postback function afterwards.
func (e *Element) Click(ctx context.Context) error {
	typ := strings.ToLower(attr(e.n, "type"))
	toggles := e.n.Data == "input" && (typ == "checkbox" || typ == "radio")
	before := hasAttr(e.n, "checked")

	if toggles {
		switch typ {
		case "checkbox":
			setChecked(e.n, !before)
		case "radio":
			if !before {
				e.uncheckGroup()
				setChecked(e.n, true)
			}
		}
	}

	if err := e.doc.fire(e, "click"); err != nil {
		return err
	}

	if toggles && hasAttr(e.n, "checked") != before {
		if err := e.doc.fire(e, "input"); err != nil {
			return err
		}
		if err := e.doc.fire(e, "change"); err != nil {
			return err
		}
	}

	if e.n.Data == "a" {
		if m := postbackCall.FindStringSubmatch(attr(e.n, "href")); m != nil {
			return e.doc.TriggerNamedAction(ctx, m[1])
		}
	}
	return nil
}

func (e *Element) Dispatch(_ context.Context, eventType string) error {
	return e.doc.fire(e, eventType)
}

func (e *Element) Options(_ context.Context) ([]dom.Option, error) {
	if e.n.Data != "select" {
		return nil, nil
	}
	var out []dom.Option
	for _, o := range options(e.n) {
		out = append(out, dom.Option{
			Value:    optionValue(o),
			Text:     strings.TrimSpace(textContent(o)),
			Selected: hasAttr(o, "selected"),
		})
	}
	return out, nil
}

func (e *Element) SelectIndex(_ context.Context, i int) error {
	if e.n.Data != "select" {
		return fmt.Errorf("htmldoc: select index on <%s>", e.n.Data)
	}
	if i < 0 || i >= len(options(e.n)) {
		return fmt.Errorf("htmldoc: option index %d out of range", i)
	}
	selectOnly(e.n, i)
	return nil
}

func (e *Element) uncheckGroup() {
	name := attr(e.n, "name")
	if name == "" {
		return
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" &&
			strings.EqualFold(attr(n, "type"), "radio") && attr(n, "name") == name {
			setChecked(n, false)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.doc.root)
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "option" {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(sel)
	return out
}

func selectOnly(sel *html.Node, idx int) {
	for i, o := range options(sel) {
		if i == idx {
			setAttr(o, "selected", "selected")
		} else {
			removeAttr(o, "selected")
		}
	}
}

func optionValue(o *html.Node) string {
	for _, a := range o.Attr {
		if a.Key == "value" {
			return a.Val
		}
	}
	return strings.TrimSpace(textContent(o))
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func setChecked(n *html.Node, on bool) {
	if on {
		setAttr(n, "checked", "checked")
	} else {
		removeAttr(n, "checked")
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}
