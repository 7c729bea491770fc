package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/pool"
)

const (
	KindSocket  = "socket"
	KindMatrix  = "matrix"
	KindFile    = "file"
	KindMessage = "message"
)

var (
	// ErrBadInput is returned when a work item's Input does not match its kind.
	ErrBadInput = errors.New("bad work item input")
)

func input[In any](item rop.WorkItem) (In, error) {
	in, ok := item.Input.(In)
	if !ok {
		return in, fmt.Errorf("%w: %s wants %T, got %T", ErrBadInput, item.Kind, in, item.Input)
	}
	return in, nil
}

func handler[In any](fn func(ctx context.Context, in In) (string, error)) pool.ExecutorFunc[string] {
	return func(ctx context.Context, item rop.WorkItem) (string, error) {
		in, err := input[In](item)
		if err != nil {
			return "", err
		}
		return fn(ctx, in)
	}
}

// Register binds every provider onto r. A nil inference service gets a 2x2
// identity model.
func Register(r *pool.Router[string], sock SocketReader, inf *Inference) *pool.Router[string] {
	if inf == nil {
		inf, _ = NewInference(Identity(2))
	}

	return r.
		Handle(KindSocket, rop.LaneIO, handler(sock.Read)).
		Handle(KindFile, rop.LaneIO, handler(File)).
		Handle(KindMessage, rop.LaneIO, handler(Echo)).
		Handle(KindMatrix, rop.LaneCPU, handler(func(ctx context.Context, m Matrix) (string, error) {
			out, err := inf.Infer(ctx, m)
			if err != nil {
				return "", err
			}
			return out.String(), nil
		}))
}
