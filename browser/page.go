package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/ds160fill/dom"
)

// ErrNoPostback is returned when the page defines no __doPostBack.
var ErrNoPostback = errors.New("browser: page has no postback function")

// Page adapts a Rod page to dom.Page. Elements are looked up fresh on every
// call because a postback replaces the whole document.
type Page struct {
	rp *rod.Page
}

var _ dom.Page = (*Page)(nil)

// NewPage wraps rp.
func NewPage(rp *rod.Page) *Page { return &Page{rp: rp} }

// Rod returns the underlying page.
func (p *Page) Rod() *rod.Page { return p.rp }

func (p *Page) Title(ctx context.Context) (string, error) {
	return p.evalString(ctx, `() => document.title`)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	return p.evalString(ctx, `() => location.href`)
}

func (p *Page) evalString(ctx context.Context, js string, args ...any) (string, error) {
	res, err := p.rp.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", fmt.Errorf("browser: eval: %w", err)
	}
	return res.Value.Str(), nil
}

func (p *Page) ElementByID(ctx context.Context, id string) (dom.Element, error) {
	els, err := p.query(ctx, "//*[@id="+dom.XPathLiteral(id)+"]")
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

func (p *Page) ElementsByName(ctx context.Context, name string) ([]dom.Element, error) {
	return p.query(ctx, "//*[@name="+dom.XPathLiteral(name)+"]")
}

func (p *Page) ElementsByXPath(ctx context.Context, expr string) ([]dom.Element, error) {
	return p.query(ctx, expr)
}

func (p *Page) query(ctx context.Context, xpath string) ([]dom.Element, error) {
	found, err := p.rp.Context(ctx).ElementsX(xpath)
	if err != nil {
		return nil, fmt.Errorf("browser: query %s: %w", xpath, err)
	}
	out := make([]dom.Element, len(found))
	for i, el := range found {
		out[i] = &Element{el: el}
	}
	return out, nil
}

// TriggerNamedAction calls the page's own __doPostBack. The call is queued
// so the evaluation returns before the document unloads.
func (p *Page) TriggerNamedAction(ctx context.Context, target string) error {
	res, err := p.rp.Context(ctx).Eval(`t => {
		if (typeof __doPostBack !== 'function') return false;
		setTimeout(() => __doPostBack(t, ''), 0);
		return true;
	}`, target)
	if err != nil {
		return fmt.Errorf("browser: postback %s: %w", target, err)
	}
	if !res.Value.Bool() {
		return ErrNoPostback
	}
	return nil
}

// SubmitWithHiddenFields writes the postback target and argument into the
// first form's hidden fields, creating them when missing, and submits it.
func (p *Page) SubmitWithHiddenFields(ctx context.Context, target, argument string) error {
	res, err := p.rp.Context(ctx).Eval(`(t, a) => {
		const form = document.forms[0];
		if (!form) return false;
		const set = (name, v) => {
			let f = form.elements[name];
			if (!f) {
				f = document.createElement('input');
				f.type = 'hidden';
				f.name = name;
				f.id = name;
				form.appendChild(f);
			}
			f.value = v;
		};
		set('__EVENTTARGET', t);
		set('__EVENTARGUMENT', a);
		setTimeout(() => form.submit(), 0);
		return true;
	}`, target, argument)
	if err != nil {
		return fmt.Errorf("browser: submit %s: %w", target, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: submit %s: page has no form", target)
	}
	return nil
}

// Element adapts a Rod element to dom.Element. Reads and writes go through
// DOM properties so the page's own handlers observe them.
type Element struct {
	el *rod.Element
}

var _ dom.Element = (*Element)(nil)

func (e *Element) eval(ctx context.Context, js string, args ...any) (*jsValue, error) {
	res, err := e.el.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, fmt.Errorf("browser: element eval: %w", err)
	}
	return &jsValue{str: res.Value.Str(), b: res.Value.Bool()}, nil
}

type jsValue struct {
	str string
	b   bool
}

func (e *Element) TagName(ctx context.Context) (string, error) {
	v, err := e.eval(ctx, `() => this.tagName.toLowerCase()`)
	if err != nil {
		return "", err
	}
	return v.str, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", fmt.Errorf("browser: attribute %s: %w", name, err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *Element) Value(ctx context.Context) (string, error) {
	v, err := e.eval(ctx, `() => this.value == null ? '' : String(this.value)`)
	if err != nil {
		return "", err
	}
	return v.str, nil
}

func (e *Element) SetValue(ctx context.Context, s string) error {
	_, err := e.eval(ctx, `v => { this.value = v; }`, s)
	return err
}

func (e *Element) Checked(ctx context.Context) (bool, error) {
	v, err := e.eval(ctx, `() => !!this.checked`)
	if err != nil {
		return false, err
	}
	return v.b, nil
}

// Click uses the DOM's click() so hidden or off-screen controls still run
// their handlers.
func (e *Element) Click(ctx context.Context) error {
	_, err := e.eval(ctx, `() => { this.click(); }`)
	return err
}

func (e *Element) Dispatch(ctx context.Context, eventType string) error {
	_, err := e.eval(ctx, `t => { this.dispatchEvent(new Event(t, {bubbles: true})); }`, eventType)
	return err
}

func (e *Element) Options(ctx context.Context) ([]dom.Option, error) {
	v, err := e.eval(ctx, `() => JSON.stringify(Array.from(this.options || []).map(o => ({
		value: o.value, text: o.text, selected: o.selected
	})))`)
	if err != nil {
		return nil, err
	}
	return decodeOptions(v.str)
}

func decodeOptions(s string) ([]dom.Option, error) {
	var opts []dom.Option
	if err := json.Unmarshal([]byte(s), &opts); err != nil {
		return nil, fmt.Errorf("browser: decode options: %w", err)
	}
	return opts, nil
}

func (e *Element) SelectIndex(ctx context.Context, i int) error {
	v, err := e.eval(ctx, `i => {
		if (!this.options || i < 0 || i >= this.options.length) return false;
		this.selectedIndex = i;
		return true;
	}`, i)
	if err != nil {
		return err
	}
	if !v.b {
		return fmt.Errorf("browser: option index %d out of range", i)
	}
	return nil
}
