package guard

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/solo"
)

// RunWithDeadline starts action and gives it d to complete, measured on clock
// from the call. A non-positive d times out without starting the action.
func RunWithDeadline[T any](ctx context.Context, clock clockwork.Clock, d time.Duration,
	action func(ctx context.Context) (T, error)) rop.Outcome[T] {

	if d <= 0 {
		return rop.TimedOut[T](context.DeadlineExceeded)
	}

	ctx, cancel := clockwork.WithTimeout(ctx, clock, d)
	defer cancel()

	return Run(ctx, action)
}

// RunUntil is RunWithDeadline with an absolute deadline.
func RunUntil[T any](ctx context.Context, clock clockwork.Clock, deadline time.Time,
	action func(ctx context.Context) (T, error)) rop.Outcome[T] {

	return RunWithDeadline(ctx, clock, deadline.Sub(clock.Now()), action)
}

// Run races action against ctx. Cancellation of ctx for any reason, including
// a parent's deadline, resolves as timed out with the context cause attached.
func Run[T any](ctx context.Context, action func(ctx context.Context) (T, error)) rop.Outcome[T] {
	if rop.ContextErr(ctx) != nil {
		return rop.TimedOut[T](cause(ctx))
	}

	done := make(chan rop.Outcome[T], 1)
	go func() {
		done <- solo.Try(ctx, action)
	}()

	select {
	case out := <-done:
		// an action that gave up because ctx ended reports the deadline, not its own error.
		if out.IsFailure() && rop.ContextErr(ctx) != nil && rop.IsCancellationError(out.Err()) {
			return rop.TimedOut[T](cause(ctx))
		}
		return out
	case <-ctx.Done():
		return rop.TimedOut[T](cause(ctx))
	}
}

// cause must only be called once ctx is done.
func cause(ctx context.Context) error {
	if err := context.Cause(ctx); err != nil {
		return err
	}
	return ctx.Err()
}
