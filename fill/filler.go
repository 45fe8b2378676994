package fill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hazyhaar/ds160fill/dom"
	"github.com/hazyhaar/ds160fill/record"
	"github.com/hazyhaar/ds160fill/schema"
)

var (
	// ErrCheckboxStuck is returned when the page keeps reverting a checkbox.
	ErrCheckboxStuck = errors.New("fill: checkbox did not reach desired state")
	// ErrNoRadio is returned when no radio button of a group matches.
	ErrNoRadio = errors.New("fill: no matching radio button")
)

var isoDay = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// Filler writes one value into one control according to its kind.
type Filler struct {
	rows             *Rows
	delays           Delays
	logger           *slog.Logger
	checkboxAttempts int
}

// NewFiller returns a Filler growing lists through rows.
func NewFiller(rows *Rows, delays Delays, checkboxAttempts int, logger *slog.Logger) *Filler {
	if checkboxAttempts <= 0 {
		checkboxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filler{rows: rows, delays: delays, logger: logger, checkboxAttempts: checkboxAttempts}
}

// Fill writes value into el and returns how many controls now hold their
// target value. Zero with a nil error means nothing applicable was found
// (a select without a matching option).
func (f *Filler) Fill(ctx context.Context, page dom.Page, el dom.Element, value any, ins *schema.Instruction) (int, error) {
	switch ins.Kind {
	case schema.KindText:
		s, err := scalar(value)
		if err != nil {
			return 0, err
		}
		return f.text(ctx, el, s, ins.MaxLength)
	case schema.KindSelect:
		s, err := scalar(value)
		if err != nil {
			return 0, err
		}
		return f.choose(ctx, el, s, ins.Policy == schema.PolicyPreventRedundantWrite)
	case schema.KindRadio:
		return f.radio(ctx, page, el, value, ins)
	case schema.KindCheckbox:
		return f.checkbox(ctx, el, record.Bool(value))
	case schema.KindArray:
		return f.array(ctx, page, value, ins)
	}
	return 0, fmt.Errorf("fill: unsupported control kind %q", ins.Kind)
}

func scalar(v any) (string, error) {
	s, ok := record.String(v)
	if !ok {
		return "", fmt.Errorf("fill: value of type %T is not a scalar", v)
	}
	return s, nil
}

// FormatDate turns an ISO date into the form's MM/DD/YYYY.
func FormatDate(s string) string {
	if m := isoDay.FindStringSubmatch(s); m != nil {
		return m[2] + "/" + m[3] + "/" + m[1]
	}
	return s
}

func (f *Filler) text(ctx context.Context, el dom.Element, s string, maxLen int) (int, error) {
	s = FormatDate(s)
	if maxLen > 0 {
		if r := []rune(s); len(r) > maxLen {
			s = string(r[:maxLen])
		}
	}
	cur, err := el.Value(ctx)
	if err != nil {
		return 0, fmt.Errorf("fill: read value: %w", err)
	}
	if cur == s {
		return 1, nil
	}
	if err := el.SetValue(ctx, s); err != nil {
		return 0, fmt.Errorf("fill: set value: %w", err)
	}
	for _, ev := range []string{"input", "change"} {
		if err := el.Dispatch(ctx, ev); err != nil {
			return 0, fmt.Errorf("fill: dispatch %s: %w", ev, err)
		}
	}
	return 1, nil
}

// MatchOption finds the option for want: exact value, then exact text,
// then case-insensitive text containment. It returns -1 when none match.
func MatchOption(opts []dom.Option, want string) int {
	for i, o := range opts {
		if o.Value == want {
			return i
		}
	}
	for i, o := range opts {
		if strings.TrimSpace(o.Text) == want {
			return i
		}
	}
	if want == "" {
		return -1
	}
	lw := strings.ToLower(want)
	for i, o := range opts {
		if strings.Contains(strings.ToLower(o.Text), lw) {
			return i
		}
	}
	return -1
}

func (f *Filler) choose(ctx context.Context, el dom.Element, want string, guard bool) (int, error) {
	opts, err := el.Options(ctx)
	if err != nil {
		return 0, fmt.Errorf("fill: read options: %w", err)
	}
	i := MatchOption(opts, want)
	if i < 0 {
		f.logger.Debug("fill: no matching option", "want", want, "options", len(opts))
		return 0, nil
	}
	if guard && opts[i].Selected {
		return 1, nil
	}
	if err := el.SelectIndex(ctx, i); err != nil {
		return 0, fmt.Errorf("fill: select option %d: %w", i, err)
	}
	if err := el.Dispatch(ctx, "change"); err != nil {
		return 0, fmt.Errorf("fill: dispatch change: %w", err)
	}
	return 1, nil
}

// radio activates the Yes or No button of a group. Buttons are tried by
// value within the group, then by the derived _0/_1 ids, then through the
// instruction's positional fallbacks.
func (f *Filler) radio(ctx context.Context, page dom.Page, el dom.Element, value any, ins *schema.Instruction) (int, error) {
	token := "N"
	if record.YesNo(value) == "Y" {
		token = "Y"
	}
	pos := 0
	if token == "N" {
		pos = 1
	}

	name := ins.Locator.Value
	if ins.Locator.Kind != dom.ByName {
		n, err := el.Attribute(ctx, "name")
		if err != nil {
			return 0, fmt.Errorf("fill: radio name: %w", err)
		}
		name = n
	}

	if name != "" {
		group, err := page.ElementsByName(ctx, name)
		if err != nil && ctx.Err() != nil {
			return 0, ctx.Err()
		}
		for _, r := range group {
			v, err := r.Attribute(ctx, "value")
			if err == nil && strings.EqualFold(v, token) {
				return activate(ctx, r)
			}
		}
	}

	if strings.Contains(name, "$") {
		id := fmt.Sprintf("%s_%d", strings.ReplaceAll(name, "$", "_"), pos)
		if r, err := page.ElementByID(ctx, id); err == nil && r != nil {
			return activate(ctx, r)
		}
	}

	if pos < len(ins.Fallbacks) {
		r, err := Resolve(ctx, page, ins.Fallbacks[pos])
		if err != nil {
			return 0, err
		}
		if r != nil {
			return activate(ctx, r)
		}
	}
	return 0, fmt.Errorf("%w for %s=%s", ErrNoRadio, name, token)
}

// activate clicks a radio unless it is already selected, so re-runs do not
// trigger the page's postback again.
func activate(ctx context.Context, r dom.Element) (int, error) {
	on, err := r.Checked(ctx)
	if err != nil {
		return 0, fmt.Errorf("fill: radio state: %w", err)
	}
	if on {
		return 1, nil
	}
	if err := r.Click(ctx); err != nil {
		return 0, fmt.Errorf("fill: click radio: %w", err)
	}
	return 1, nil
}

// checkbox activates until the box reports want, at most checkboxAttempts
// times. Host handlers may veto a click.
func (f *Filler) checkbox(ctx context.Context, el dom.Element, want bool) (int, error) {
	for attempt := 0; ; attempt++ {
		on, err := el.Checked(ctx)
		if err != nil {
			return 0, fmt.Errorf("fill: checkbox state: %w", err)
		}
		if on == want {
			return 1, nil
		}
		if attempt == f.checkboxAttempts {
			return 0, fmt.Errorf("%w after %d attempts", ErrCheckboxStuck, attempt)
		}
		if err := el.Click(ctx); err != nil {
			return 0, fmt.Errorf("fill: click checkbox: %w", err)
		}
		if err := f.delays.Wait(ctx, OpCheckboxRetry); err != nil {
			return 0, err
		}
	}
}

// array grows the group to one row per value and writes value[row][col]
// into the row's col-th control. Rows that could not be created are
// reported through the returned error after the existing rows are filled.
func (f *Filler) array(ctx context.Context, page dom.Page, value any, ins *schema.Instruction) (int, error) {
	rows, ok := value.([][]string)
	if !ok {
		return 0, fmt.Errorf("fill: array value of type %T, want rows of strings", value)
	}
	if ins.Group == nil {
		return 0, fmt.Errorf("fill: array instruction %s has no row group", ins.Path)
	}
	g := *ins.Group

	have, growErr := f.rows.Ensure(ctx, page, g, len(rows))
	if growErr != nil && ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if err := f.delays.Wait(ctx, OpArraySettle); err != nil {
		return 0, err
	}

	filled := 0
	for i := 0; i < len(rows) && i < have; i++ {
		inputs, err := rowInputs(ctx, page, g, i)
		if err != nil {
			return filled, fmt.Errorf("fill: row %d inputs: %w", i, err)
		}
		for j, v := range rows[i] {
			if j >= len(inputs) {
				break
			}
			if v == "" {
				continue
			}
			tag, err := inputs[j].TagName(ctx)
			if err != nil {
				return filled, err
			}
			var n int
			if tag == "select" {
				n, err = f.choose(ctx, inputs[j], v, false)
			} else {
				n, err = f.text(ctx, inputs[j], v, 0)
			}
			if err != nil {
				return filled, fmt.Errorf("fill: row %d column %d: %w", i, j, err)
			}
			filled += n
		}
	}
	return filled, growErr
}
