package orchestrator

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ib-77/railyard/pkg/rop/pool"
)

const (
	DefaultPipelineCapacity = 64
	DefaultDrainTimeout     = 30 * time.Second
)

type config struct {
	poolOptions      []pool.Option
	pipelineCapacity int
	maxInFlight      int
	drainTimeout     time.Duration
	clock            clockwork.Clock
	logger           *zap.Logger
}

type Option func(*config)

func defaultConfig() config {
	return config{
		pipelineCapacity: DefaultPipelineCapacity,
		drainTimeout:     DefaultDrainTimeout,
		clock:            clockwork.NewRealClock(),
		logger:           zap.NewNop(),
	}
}

func WithPoolOptions(opts ...pool.Option) Option {
	return func(c *config) { c.poolOptions = append(c.poolOptions, opts...) }
}

// WithPipelineCapacity bounds how many outcomes may wait for the consumer.
func WithPipelineCapacity(n int) Option {
	return func(c *config) { c.pipelineCapacity = n }
}

// WithMaxInFlight bounds how many admitted items may be executing or waiting
// to publish at once. SubmitBatch blocks while the bound is reached, so a slow
// consumer slows producers instead of letting outcomes pile up. Zero uses the
// pipeline capacity.
func WithMaxInFlight(n int) Option {
	return func(c *config) { c.maxInFlight = n }
}

// WithDrainTimeout bounds Close. Zero waits indefinitely.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *config) { c.drainTimeout = d }
}

// WithClock is shared with the pool so item deadlines and the drain
// deadline run on the same clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *config) { c.clock = clock }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}
