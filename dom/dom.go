// Package dom defines the host-page capabilities the filling engine needs.
//
// Two backends implement them: browser.Page drives a live Chrome tab over
// CDP, htmldoc.Document works on a parsed HTML tree in memory. The engine
// only sees these interfaces, so every fill path runs identically against
// both.
package dom

import (
	"context"
	"strings"
)

// LocatorKind names the lookup strategy of a Locator.
type LocatorKind string

const (
	ByID    LocatorKind = "id"    // element id attribute
	ByName  LocatorKind = "name"  // control name attribute, first match in document order
	ByXPath LocatorKind = "xpath" // structural query, first match in document order
)

// Locator addresses one control on the page.
type Locator struct {
	Kind  LocatorKind `json:"type" yaml:"type"`
	Value string      `json:"value" yaml:"value"`
}

func ID(v string) Locator    { return Locator{Kind: ByID, Value: v} }
func Name(v string) Locator  { return Locator{Kind: ByName, Value: v} }
func XPath(v string) Locator { return Locator{Kind: ByXPath, Value: v} }

func (l Locator) String() string { return string(l.Kind) + ":" + l.Value }

// Option is one entry of a select control.
type Option struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// Element is a handle on one page control.
type Element interface {
	// TagName returns the lower-case tag name.
	TagName(ctx context.Context) (string, error)
	// Attribute returns the attribute value, or "" when absent.
	Attribute(ctx context.Context, name string) (string, error)
	Value(ctx context.Context) (string, error)
	// SetValue assigns the value property. No events are dispatched.
	SetValue(ctx context.Context, v string) error
	Checked(ctx context.Context) (bool, error)
	// Click performs native activation, which runs host handlers and fires
	// the browser's own change/click events.
	Click(ctx context.Context) error
	// Dispatch fires a synthetic bubbling event of the given type.
	Dispatch(ctx context.Context, eventType string) error
	Options(ctx context.Context) ([]Option, error)
	SelectIndex(ctx context.Context, i int) error
}

// Document is a queryable page. Lookups that find nothing return a nil
// Element (or an empty slice) and a nil error.
type Document interface {
	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	ElementByID(ctx context.Context, id string) (Element, error)
	ElementsByName(ctx context.Context, name string) ([]Element, error)
	ElementsByXPath(ctx context.Context, expr string) ([]Element, error)
}

// Transport issues server-side page actions.
type Transport interface {
	// TriggerNamedAction asks the host page to run its postback for the
	// given control identifier.
	TriggerNamedAction(ctx context.Context, identifier string) error
	// SubmitWithHiddenFields writes the event target and argument into the
	// page form's hidden fields, creating them when missing, and submits.
	SubmitWithHiddenFields(ctx context.Context, target, argument string) error
}

// Page is what a fill run works against.
type Page interface {
	Document
	Transport
}

// XPathLiteral quotes s for use inside an XPath expression.
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
