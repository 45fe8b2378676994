package fill

import (
	"context"
	"time"
)

// Op names a pause point in a fill run.
type Op string

const (
	OpBeforeFill     Op = "before_fill"     // before writing a located control
	OpFieldRetry     Op = "field_retry"     // before the second lookup of a missing control
	OpDependentField Op = "dependent_field" // before locating a control the page repopulates
	OpRowExpand      Op = "row_expand"      // after each row expansion attempt
	OpCheckboxRetry  Op = "checkbox_retry"  // after each checkbox activation
	OpArraySettle    Op = "array_settle"    // after growing a repeating group, before filling it
)

// Delays pauses between steps so the host page can settle.
type Delays interface {
	Wait(ctx context.Context, op Op) error
}

// DelayPolicy maps operations to fixed pauses. Missing operations do not
// pause.
type DelayPolicy map[Op]time.Duration

// NoDelay never pauses. Tests use it.
var NoDelay = DelayPolicy{}

// DefaultDelays are tuned against the live application's postback latency.
func DefaultDelays() DelayPolicy {
	return DelayPolicy{
		OpBeforeFill:     200 * time.Millisecond,
		OpFieldRetry:     400 * time.Millisecond,
		OpDependentField: 600 * time.Millisecond,
		OpRowExpand:      1500 * time.Millisecond,
		OpCheckboxRetry:  300 * time.Millisecond,
		OpArraySettle:    500 * time.Millisecond,
	}
}

// Wait blocks for the configured pause or until ctx is done.
func (p DelayPolicy) Wait(ctx context.Context, op Op) error {
	d := p[op]
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
