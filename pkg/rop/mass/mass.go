package mass

import (
	"context"
	"iter"

	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/solo"
)

type FinallyHandlers[In, Out any] struct {
	OnSuccess func(ctx context.Context, r In) Out
	OnFailure func(ctx context.Context, err error) Out
	OnTimeout func(ctx context.Context, err error) Out
}

// Finally folds every outcome of seq through handlers. Iteration stops early
// when ctx is done.
func Finally[In, Out any](ctx context.Context, seq iter.Seq[rop.Outcome[In]],
	handlers FinallyHandlers[In, Out]) iter.Seq[Out] {

	return func(yield func(Out) bool) {
		for out := range seq {
			if rop.ContextErr(ctx) != nil {
				return
			}
			if !yield(solo.Finally(ctx, out, handlers.OnSuccess, handlers.OnFailure, handlers.OnTimeout)) {
				return
			}
		}
	}
}

// Counts tallies outcomes by status.
type Counts struct {
	Success  int
	Failure  int
	TimedOut int
}

func (c Counts) Failed() int {
	return c.Failure + c.TimedOut
}

// Tee calls each for every outcome of seq and counts them on the way
// through.
func Tee[T any](seq iter.Seq[rop.Outcome[T]], counts *Counts,
	each func(out rop.Outcome[T])) iter.Seq[rop.Outcome[T]] {

	return func(yield func(rop.Outcome[T]) bool) {
		for out := range seq {
			solo.DoubleTee(context.Background(), out,
				func(context.Context, T) { counts.Success++ },
				func(context.Context, error) { counts.Failure++ },
				func(context.Context, error) { counts.TimedOut++ })
			if each != nil {
				each(out)
			}
			if !yield(out) {
				return
			}
		}
	}
}
