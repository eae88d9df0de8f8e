package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline of timeout on the calling goroutine,
// so fn must honor ctx. A result that arrives after the deadline is
// discarded and reported as context.DeadlineExceeded. A timeout of zero or
// less runs fn with ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(deadlineCtx)
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
	case deadlineCtx.Err() != nil:
		return fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
	return err
}
