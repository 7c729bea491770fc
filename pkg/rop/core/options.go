package core

import (
	"context"
	"time"

	"github.com/ib-77/railyard/pkg/rop"
)

type OptionKey string

const (
	BatchOptionKey OptionKey = "batch_options"
	LaneOptionKey  OptionKey = "lane_options"
)

type BatchOptions struct {
	Timeout time.Duration
}

type LaneOptions struct {
	Lane rop.Lane
}

// WithBatchTimeout sets the relative deadline applied to every item of a
// batch that does not carry its own.
func WithBatchTimeout(ctx context.Context, timeout time.Duration) context.Context {
	return context.WithValue(ctx, BatchOptionKey, BatchOptions{Timeout: timeout})
}

// WithLane forces every item of a batch onto lane, overriding the lane
// registered for its kind.
func WithLane(ctx context.Context, lane rop.Lane) context.Context {
	return context.WithValue(ctx, LaneOptionKey, LaneOptions{Lane: lane})
}

func GetBatchTimeout(ctx context.Context, defaultTimeout time.Duration) time.Duration {
	options, ok := ctx.Value(BatchOptionKey).(BatchOptions)
	if ok {
		return options.Timeout
	}
	return defaultTimeout
}

func GetLane(ctx context.Context) (rop.Lane, bool) {
	options, ok := ctx.Value(LaneOptionKey).(LaneOptions)
	if ok {
		return options.Lane, true
	}
	return rop.LaneIO, false
}
