package fill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/hazyhaar/ds160fill/dom"
	"github.com/hazyhaar/ds160fill/schema"
)

// ErrRowsNotGrown is returned when neither the native trigger nor the
// manual postback added a row.
var ErrRowsNotGrown = errors.New("fill: row expansion did not add a row")

// maxRows bounds row probing on pages that never stop matching.
const maxRows = 100

var postbackCall = regexp.MustCompile(`__doPostBack\('([^']*)'\s*,\s*'([^']*)'\)`)

// Rows grows repeating groups. Each missing row gets exactly one attempt:
// the page's own trigger first, then a manual postback through the form's
// hidden fields, then abandonment.
type Rows struct {
	delays Delays
	logger *slog.Logger
}

// NewRows returns a controller pausing with delays.
func NewRows(delays Delays, logger *slog.Logger) *Rows {
	if delays == nil {
		delays = DefaultDelays()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rows{delays: delays, logger: logger}
}

// Count returns the number of rendered rows of g.
func (r *Rows) Count(ctx context.Context, doc dom.Document, g schema.RowGroup) (int, error) {
	for n := 0; n < maxRows; n++ {
		el, err := doc.ElementByID(ctx, g.ID(n, g.Probe))
		if err != nil {
			return n, fmt.Errorf("fill: count rows %s: %w", g.List, err)
		}
		if el == nil {
			return n, nil
		}
	}
	return maxRows, nil
}

// Ensure grows g until it has at least want rows and returns the row count.
// Growth that stalls returns ErrRowsNotGrown with the rows that exist.
func (r *Rows) Ensure(ctx context.Context, page dom.Page, g schema.RowGroup, want int) (int, error) {
	have, err := r.Count(ctx, page, g)
	if err != nil {
		return have, err
	}
	for have < want {
		next, err := r.grow(ctx, page, g, have)
		if err != nil {
			return next, err
		}
		have = next
	}
	return have, nil
}

func (r *Rows) grow(ctx context.Context, page dom.Page, g schema.RowGroup, have int) (int, error) {
	if have == 0 {
		return 0, fmt.Errorf("%w: %s has no rendered row to expand from", ErrRowsNotGrown, g.List)
	}
	trigger, err := page.ElementByID(ctx, g.TriggerID(have-1))
	if err != nil && ctx.Err() != nil {
		return have, ctx.Err()
	}
	target, arg := r.postbackTarget(ctx, trigger, g, have-1)

	if trigger != nil {
		err = trigger.Click(ctx)
	} else {
		err = page.TriggerNamedAction(ctx, target)
	}
	if err != nil {
		if ctx.Err() != nil {
			return have, ctx.Err()
		}
		r.logger.Debug("fill: native row trigger failed", "list", g.List, "target", target, "error", err)
	}
	if n, err := r.settle(ctx, page, g); err != nil || n > have {
		return max(n, have), err
	}

	r.logger.Info("fill: row did not appear, submitting postback manually", "list", g.List, "target", target)
	if err := page.SubmitWithHiddenFields(ctx, target, arg); err != nil {
		if ctx.Err() != nil {
			return have, ctx.Err()
		}
		return have, fmt.Errorf("fill: manual postback %s: %w", target, err)
	}
	if n, err := r.settle(ctx, page, g); err != nil || n > have {
		return max(n, have), err
	}

	r.logger.Warn("fill: abandoning row expansion", "list", g.List, "rows", have)
	return have, fmt.Errorf("%w: %s stuck at %d rows", ErrRowsNotGrown, g.List, have)
}

func (r *Rows) settle(ctx context.Context, page dom.Page, g schema.RowGroup) (int, error) {
	if err := r.delays.Wait(ctx, OpRowExpand); err != nil {
		return 0, err
	}
	return r.Count(ctx, page, g)
}

// postbackTarget reads the trigger's own postback call when it renders one,
// else derives the target from the control name.
func (r *Rows) postbackTarget(ctx context.Context, trigger dom.Element, g schema.RowGroup, row int) (string, string) {
	if trigger != nil {
		for _, a := range []string{"href", "onclick"} {
			v, err := trigger.Attribute(ctx, a)
			if err != nil {
				continue
			}
			if m := postbackCall.FindStringSubmatch(v); m != nil {
				return m[1], m[2]
			}
		}
	}
	return g.TriggerTarget(row), ""
}

// rowInputs returns the visible inputs, selects and textareas of a row in
// document order.
func rowInputs(ctx context.Context, doc dom.Document, g schema.RowGroup, row int) ([]dom.Element, error) {
	prefix := dom.XPathLiteral(g.RowPrefix(row))
	expr := "//*[starts-with(@id, " + prefix + ")]" +
		"[self::input[not(@type='hidden' or @type='submit' or @type='button' or @type='image')] or self::select or self::textarea]"
	return doc.ElementsByXPath(ctx, expr)
}
