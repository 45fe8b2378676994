// Package fill writes client data into a form page.
//
// The Orchestrator walks a section's instructions in order. For each one it
// resolves the value from the section data, locates the control through its
// primary and fallback locators, and hands both to the Filler. Repeating
// lists grow through Rows before their rows are written. Failures are kept
// per field; a run never aborts on a single control.
package fill

import (
	"context"

	"github.com/hazyhaar/ds160fill/dom"
	"github.com/hazyhaar/ds160fill/record"
	"github.com/hazyhaar/ds160fill/schema"
)

// Resolve returns the first element found by primary, then each fallback in
// order. A nil element means none matched. Backend lookup errors count as
// no match; only context cancellation is returned.
func Resolve(ctx context.Context, doc dom.Document, primary dom.Locator, fallbacks ...dom.Locator) (dom.Element, error) {
	for _, loc := range append([]dom.Locator{primary}, fallbacks...) {
		el, err := lookup(ctx, doc, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if el != nil {
			return el, nil
		}
	}
	return nil, nil
}

func lookup(ctx context.Context, doc dom.Document, loc dom.Locator) (dom.Element, error) {
	if loc.Value == "" {
		return nil, nil
	}
	var (
		els []dom.Element
		err error
	)
	switch loc.Kind {
	case dom.ByID:
		return doc.ElementByID(ctx, loc.Value)
	case dom.ByName:
		els, err = doc.ElementsByName(ctx, loc.Value)
	case dom.ByXPath:
		els, err = doc.ElementsByXPath(ctx, loc.Value)
	default:
		return nil, nil
	}
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

// ResolveValue reads path from the section data and applies the transform.
// It reports false when the instruction should be skipped: the path is
// absent and the transform (if any) supplied nothing, or the result is nil.
func ResolveValue(data record.Data, path string, t schema.Transform) (any, bool) {
	raw, ok := record.Lookup(data, path)
	if t != nil {
		raw, ok = t(raw, ok)
	}
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}
