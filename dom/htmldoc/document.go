// Package htmldoc is an in-memory dom.Page over a parsed HTML tree.
//
// It backs offline runs against saved form pages and stands in for the
// live browser in tests. Host-page behaviour the filler reacts to (click
// handlers that reveal or veto, server postbacks that append list rows) is
// scripted with On, OnPostback and OnSubmit. Every activation and dispatched
// event is recorded and can be inspected with Events.
//
// A Document is not safe for concurrent use.
package htmldoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/hazyhaar/ds160fill/dom"
)

// ErrNoPostback is returned by TriggerNamedAction when the page defines no
// postback function.
var ErrNoPostback = errors.New("htmldoc: page has no postback function")

// Event is one recorded interaction.
type Event struct {
	Target string // element id, else name, else tag
	Type   string // click, change, input, postback, submit, ...
}

// Handler reacts to an event on an element.
type Handler func(d *Document, el *Element) error

// PostbackHandler simulates the server round-trip for a postback.
type PostbackHandler func(d *Document, target, argument string) error

// Document is a parsed page.
type Document struct {
	root     *html.Node
	url      string
	handlers map[string][]Handler
	postback PostbackHandler
	submit   PostbackHandler
	events   []Event
}

var _ dom.Page = (*Document)(nil)

// Parse reads an HTML page. pageURL is reported by URL.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	return &Document{
		root:     root,
		url:      pageURL,
		handlers: make(map[string][]Handler),
	}, nil
}

// ParseString is Parse over a string.
func ParseString(s, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(s), pageURL)
}

// On registers h for events of eventType on the element with the given id
// (or name, for elements without an id).
func (d *Document) On(key, eventType string, h Handler) {
	k := key + "\x00" + eventType
	d.handlers[k] = append(d.handlers[k], h)
}

// OnPostback defines the page's postback function. Without it,
// TriggerNamedAction fails with ErrNoPostback.
func (d *Document) OnPostback(h PostbackHandler) { d.postback = h }

// OnSubmit defines the server's reaction to a form submission carrying an
// event target.
func (d *Document) OnSubmit(h PostbackHandler) { d.submit = h }

// Events returns the recorded interactions in order.
func (d *Document) Events() []Event {
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Count returns how many events of eventType hit target.
func (d *Document) Count(target, eventType string) int {
	n := 0
	for _, e := range d.events {
		if e.Target == target && e.Type == eventType {
			n++
		}
	}
	return n
}

// Render writes the current tree as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// HTML returns the current tree as a string.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// AppendHTML parses fragment in the context of the element with parentID
// and appends the resulting nodes to it.
func (d *Document) AppendHTML(parentID, fragment string) error {
	parent := d.nodeByID(parentID)
	if parent == nil {
		return fmt.Errorf("htmldoc: append: no element %q", parentID)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return fmt.Errorf("htmldoc: append: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// Remove detaches the element with the given id.
func (d *Document) Remove(id string) error {
	n := d.nodeByID(id)
	if n == nil || n.Parent == nil {
		return fmt.Errorf("htmldoc: remove: no element %q", id)
	}
	n.Parent.RemoveChild(n)
	return nil
}

func (d *Document) Title(_ context.Context) (string, error) {
	n := htmlquery.FindOne(d.root, "//title")
	if n == nil {
		return "", nil
	}
	return strings.TrimSpace(htmlquery.InnerText(n)), nil
}

func (d *Document) URL(_ context.Context) (string, error) { return d.url, nil }

func (d *Document) ElementByID(_ context.Context, id string) (dom.Element, error) {
	n := d.nodeByID(id)
	if n == nil {
		return nil, nil
	}
	return &Element{doc: d, n: n}, nil
}

func (d *Document) ElementsByName(_ context.Context, name string) ([]dom.Element, error) {
	sel := goquery.NewDocumentFromNode(d.root).Find(`[name="` + cssString(name) + `"]`)
	out := make([]dom.Element, 0, sel.Length())
	for _, n := range sel.Nodes {
		out = append(out, &Element{doc: d, n: n})
	}
	return out, nil
}

func (d *Document) ElementsByXPath(_ context.Context, expr string) ([]dom.Element, error) {
	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: xpath %q: %w", expr, err)
	}
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, &Element{doc: d, n: n})
		}
	}
	return out, nil
}

// TriggerNamedAction runs the page's postback function for target.
func (d *Document) TriggerNamedAction(_ context.Context, target string) error {
	if d.postback == nil {
		return ErrNoPostback
	}
	d.record(target, "postback")
	return d.postback(d, target, "")
}

// SubmitWithHiddenFields fills __EVENTTARGET / __EVENTARGUMENT in the first
// form, creating them when missing, and submits it.
func (d *Document) SubmitWithHiddenFields(_ context.Context, target, argument string) error {
	form := goquery.NewDocumentFromNode(d.root).Find("form").First()
	if form.Length() == 0 {
		return fmt.Errorf("htmldoc: submit: page has no form")
	}
	fn := form.Nodes[0]
	setHidden(fn, "__EVENTTARGET", target)
	setHidden(fn, "__EVENTARGUMENT", argument)
	d.record(nodeKey(fn), "submit")
	if d.submit == nil {
		return nil
	}
	return d.submit(d, target, argument)
}

func (d *Document) nodeByID(id string) *html.Node {
	return htmlquery.FindOne(d.root, "//*[@id="+dom.XPathLiteral(id)+"]")
}

func (d *Document) record(target, eventType string) {
	d.events = append(d.events, Event{Target: target, Type: eventType})
}

func (d *Document) fire(el *Element, eventType string) error {
	key := nodeKey(el.n)
	d.record(key, eventType)
	for _, h := range d.handlers[key+"\x00"+eventType] {
		if err := h(d, el); err != nil {
			return err
		}
	}
	return nil
}

func setHidden(form *html.Node, name, value string) {
	sel := goquery.NewDocumentFromNode(form).Find(`input[name="` + cssString(name) + `"]`)
	if sel.Length() > 0 {
		setAttr(sel.Nodes[0], "value", value)
		return
	}
	form.AppendChild(&html.Node{
		Type: html.ElementNode,
		Data: "input",
		Attr: []html.Attribute{
			{Key: "type", Val: "hidden"},
			{Key: "name", Val: name},
			{Key: "id", Val: name},
			{Key: "value", Val: value},
		},
	})
}

func cssString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func nodeKey(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return id
	}
	if name := attr(n, "name"); name != "" {
		return name
	}
	return n.Data
}
