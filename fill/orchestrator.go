package fill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/ds160fill/dom"
	"github.com/hazyhaar/ds160fill/record"
	"github.com/hazyhaar/ds160fill/schema"
)

// FieldError is a per-instruction failure.
type FieldError struct {
	Path    string `json:"path"`
	Locator string `json:"locator"`
	Message string `json:"message"`
}

// Result summarises a section fill.
type Result struct {
	Section     string        `json:"section"`
	FilledCount int           `json:"filledCount"`
	Skipped     int           `json:"skipped"`
	Errors      []FieldError  `json:"errors,omitempty"`
	Started     time.Time     `json:"started"`
	Duration    time.Duration `json:"duration"`
}

// Config configures an Orchestrator.
type Config struct {
	// Delays paces the run. Default: DefaultDelays().
	Delays Delays
	// CheckboxAttempts bounds activations of a vetoed checkbox. Default: 3.
	CheckboxAttempts int
	Logger           *slog.Logger
}

func (c *Config) defaults() {
	if c.Delays == nil {
		c.Delays = DefaultDelays()
	}
	if c.CheckboxAttempts <= 0 {
		c.CheckboxAttempts = 3
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Orchestrator runs instruction lists against a page.
type Orchestrator struct {
	filler *Filler
	rows   *Rows
	delays Delays
	logger *slog.Logger
}

// New builds an Orchestrator.
func New(cfg Config) *Orchestrator {
	cfg.defaults()
	rows := NewRows(cfg.Delays, cfg.Logger)
	return &Orchestrator{
		filler: NewFiller(rows, cfg.Delays, cfg.CheckboxAttempts, cfg.Logger),
		rows:   rows,
		delays: cfg.Delays,
		logger: cfg.Logger,
	}
}

// FillSection executes ins in order against page. Per-field failures are
// collected in the result; only context cancellation stops the run early,
// in which case the partial result is returned with the context error.
func (o *Orchestrator) FillSection(ctx context.Context, page dom.Page, section string, data record.Data, ins []schema.Instruction) (*Result, error) {
	res := &Result{Section: section, Started: time.Now()}
	defer func() { res.Duration = time.Since(res.Started) }()

	// Lists whose growth stalled this run; later rows are not attempted.
	abandoned := map[string]bool{}

	for i := range ins {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		in := &ins[i]
		n, skipped, err := o.step(ctx, page, data, in, abandoned)
		if err != nil && ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.FilledCount += n
		if skipped {
			res.Skipped++
		}
		if err != nil {
			o.logger.Warn("fill: field failed", "section", section, "path", in.Path, "locator", in.Locator.String(), "error", err)
			res.Errors = append(res.Errors, FieldError{Path: in.Path, Locator: in.Locator.String(), Message: err.Error()})
		}
	}

	o.logger.Info("fill: section done", "section", section,
		"filled", res.FilledCount, "skipped", res.Skipped, "errors", len(res.Errors))
	return res, nil
}

func (o *Orchestrator) step(ctx context.Context, page dom.Page, data record.Data, in *schema.Instruction, abandoned map[string]bool) (n int, skipped bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, skipped, err = 0, false, fmt.Errorf("fill: panic: %v", r)
		}
	}()

	if in.Kind == schema.KindExpand {
		if in.Row == nil {
			return 0, false, fmt.Errorf("fill: expand instruction %s has no row", in.Path)
		}
		list := in.Row.Group.List
		if abandoned[list] {
			o.logger.Debug("fill: expansion abandoned earlier", "path", in.Path, "list", list)
			return 0, true, nil
		}
		if err := o.delays.Wait(ctx, OpBeforeFill); err != nil {
			return 0, false, err
		}
		if _, err := o.rows.Ensure(ctx, page, in.Row.Group, in.Row.Index+1); err != nil {
			if errors.Is(err, ErrRowsNotGrown) {
				abandoned[list] = true
			}
			return 0, false, err
		}
		return 1, false, nil
	}

	value, ok := ResolveValue(data, in.Path, in.Transform)
	if !ok {
		return 0, true, nil
	}

	if in.Policy == schema.PolicyWaitBeforeResolve {
		if err := o.delays.Wait(ctx, OpDependentField); err != nil {
			return 0, false, err
		}
	}

	el, err := Resolve(ctx, page, in.Locator, in.Fallbacks...)
	if err != nil {
		return 0, false, err
	}
	if el == nil {
		if err := o.delays.Wait(ctx, OpFieldRetry); err != nil {
			return 0, false, err
		}
		if el, err = Resolve(ctx, page, in.Locator, in.Fallbacks...); err != nil {
			return 0, false, err
		}
	}
	if el == nil {
		o.logger.Debug("fill: field not found", "path", in.Path, "locator", in.Locator.String())
		return 0, true, nil
	}

	if err := o.delays.Wait(ctx, OpBeforeFill); err != nil {
		return 0, false, err
	}
	n, err = o.filler.Fill(ctx, page, el, value, in)
	return n, false, err
}
