package solo

import (
	"context"
	"fmt"

	"github.com/ib-77/railyard/pkg/rop"
)

// Try runs onTryExecute and converts its result into an outcome. A panic is
// recovered and reported as a failure carrying rop.ErrPanic.
func Try[T any](ctx context.Context,
	onTryExecute func(ctx context.Context) (T, error)) (out rop.Outcome[T]) {

	defer func() {
		if r := recover(); r != nil {
			out = rop.Fail[T](rop.NewError(rop.KindExecutionFailure,
				fmt.Sprintf("recovered: %v", r), rop.ErrPanic))
		}
	}()

	payload, err := onTryExecute(ctx)
	if err != nil {
		return rop.Fail[T](err)
	}

	return rop.Success(payload)
}

// DoubleTee calls the handler matching input's status and returns input
// unchanged.
func DoubleTee[T any](ctx context.Context, input rop.Outcome[T],
	onSuccess func(ctx context.Context, r T),
	onFailure func(ctx context.Context, err error),
	onTimeout func(ctx context.Context, err error)) rop.Outcome[T] {

	switch {
	case input.IsSuccess():
		onSuccess(ctx, input.Payload())
	case input.IsTimedOut():
		onTimeout(ctx, input.Err())
	default:
		onFailure(ctx, input.Err())
	}

	return input
}

func Finally[In, Out any](ctx context.Context, input rop.Outcome[In],
	onSuccess func(ctx context.Context, r In) Out,
	onFailure func(ctx context.Context, err error) Out,
	onTimeout func(ctx context.Context, err error) Out) Out {

	if input.IsSuccess() {
		return onSuccess(ctx, input.Payload())
	} else if input.IsTimedOut() {
		return onTimeout(ctx, input.Err())
	} else {
		return onFailure(ctx, input.Err())
	}
}
