package pool

import (
	"runtime"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 1024
)

type config struct {
	workers        int
	cpuWorkers     int
	queueSize      int
	defaultTimeout time.Duration
	clock          clockwork.Clock
	logger         *zap.Logger
	metrics        *Metrics
}

type Option func(*config)

func defaultConfig() config {
	return config{
		workers:    DefaultWorkers,
		cpuWorkers: runtime.GOMAXPROCS(0),
		queueSize:  DefaultQueueSize,
		clock:      clockwork.NewRealClock(),
		logger:     zap.NewNop(),
	}
}

// WithWorkers bounds concurrent execution on the I/O lane.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithCPUWorkers bounds concurrent execution on the CPU lane.
func WithCPUWorkers(n int) Option {
	return func(c *config) { c.cpuWorkers = n }
}

// WithQueueSize bounds how many items may wait per lane.
func WithQueueSize(n int) Option {
	return func(c *config) { c.queueSize = n }
}

// WithDefaultTimeout applies to items that carry neither Deadline nor Timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *config) { c.defaultTimeout = d }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *config) { c.clock = clock }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}

func (c *config) normalize() {
	c.workers = max(c.workers, 1)
	c.cpuWorkers = max(c.cpuWorkers, 1)
	c.queueSize = max(c.queueSize, 1)
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
}
