package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/guard"
	"github.com/ib-77/railyard/pkg/rop/shared"
)

var (
	// ErrDrainDeadline is the cause attached to items abandoned because
	// DrainAndClose ran out of time.
	ErrDrainDeadline = errors.New("pool drain deadline exceeded")

	errPoolClosed = errors.New("pool closed")
)

type Pool[T any] struct {
	exec   Executor[T]
	cfg    config
	logger *zap.Logger
	lanes  [2]*lane[T]

	base   context.Context
	cancel context.CancelCauseFunc

	mu      sync.RWMutex
	closed  atomic.Bool
	pending sync.WaitGroup
	inLine  atomic.Int64

	tally *shared.State[tally]

	once     sync.Once
	summary  Summary
	drainErr error
}

// New starts a pool that runs items through exec.
func New[T any](exec Executor[T], opts ...Option) *Pool[T] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg.normalize()

	base, cancel := context.WithCancelCause(context.Background())

	p := &Pool[T]{
		exec:   exec,
		cfg:    cfg,
		logger: cfg.logger,
		base:   base,
		cancel: cancel,
		tally:  shared.New(newTally()),
	}
	p.lanes[rop.LaneIO] = newLane[T](rop.LaneIO, cfg.workers, cfg.queueSize, cfg.metrics)
	p.lanes[rop.LaneCPU] = newLane[T](rop.LaneCPU, cfg.cpuWorkers, cfg.queueSize, cfg.metrics)

	for _, l := range p.lanes {
		go l.dispatch(p.logger)
	}

	p.logger.Info("worker pool starting",
		zap.Int("io_workers", cfg.workers),
		zap.Int("cpu_workers", cfg.cpuWorkers),
		zap.Int("queue_size", cfg.queueSize))

	return p
}

func (p *Pool[T]) Clock() clockwork.Clock {
	return p.cfg.clock
}

func (p *Pool[T]) reject(item rop.WorkItem, reason string) error {
	p.cfg.metrics.reject(reason)
	p.logger.Warn("submission rejected", zap.String("item_id", item.ID), zap.String("reason", reason))
	return rop.NewError(rop.KindPoolSaturated, reason, nil)
}

func (p *Pool[T]) laneOf(item rop.WorkItem) *lane[T] {
	if item.Lane == rop.LaneCPU {
		return p.lanes[rop.LaneCPU]
	}
	return p.lanes[rop.LaneIO]
}

// Submit schedules item on its lane and returns immediately. The item's
// deadline starts now. Submit fails with rop.ErrPoolSaturated once the pool
// is closed or when the lane queue is full.
func (p *Pool[T]) Submit(item rop.WorkItem) (*Handle[T], error) {
	if p.closed.Load() {
		return nil, p.reject(item, errPoolClosed.Error())
	}

	l := p.laneOf(item)
	scheduled := p.cfg.clock.Now()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	switch deadline := item.DeadlineFrom(scheduled, p.cfg.defaultTimeout); {
	case deadline.IsZero():
		ctx, cancel = context.WithCancel(p.base)
	case !deadline.After(scheduled):
		ctx, cancel = context.WithTimeout(p.base, 0)
	default:
		ctx, cancel = clockwork.WithDeadline(p.base, p.cfg.clock, deadline)
	}

	t := &task[T]{
		item:      item,
		lane:      l.id,
		ctx:       ctx,
		cancel:    cancel,
		scheduled: scheduled,
		handle:    newHandle[T](item.ID),
		sem:       l.sem,
		granted:   make(chan struct{}),
	}

	p.mu.RLock() // queues are closed under the write lock.
	if p.closed.Load() {
		p.mu.RUnlock()
		cancel()
		return nil, p.reject(item, errPoolClosed.Error())
	}

	p.pending.Add(1)
	l.queued.Add(1)
	select {
	case l.queue <- t:
	default:
		l.queued.Add(-1)
		p.pending.Done()
		p.mu.RUnlock()
		cancel()
		return nil, p.reject(item, fmt.Sprintf("%s lane queue full", l.id))
	}
	p.mu.RUnlock()

	p.inLine.Add(1)
	p.cfg.metrics.submit(l.id)
	p.cfg.metrics.setQueued(l.id, l.queued.Load())

	go p.run(l, t)

	return t.handle, nil
}

func (p *Pool[T]) run(l *lane[T], t *task[T]) {
	defer p.pending.Done()
	defer t.cancel()

	out := guard.Run(t.ctx, func(ctx context.Context) (T, error) {
		select {
		case <-t.granted:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
		defer t.release()

		l.enter()
		defer l.leave()

		return p.exec.Execute(ctx, t.item)
	})
	// abandoned work gives its token back here; the executor may still be unwinding.
	t.release()

	out = out.For(t.item.ID)
	latency := p.cfg.clock.Since(t.scheduled)

	if errors.Is(out.Err(), rop.ErrPanic) {
		p.logger.Error("unit panic captured", zap.String("item_id", t.item.ID), zap.Error(out.Err()))
	}

	p.tally.Do(func(tl *tally) { tl.record(out.Status(), latency) })
	p.cfg.metrics.resolve(l.id, out.Status(), latency)
	p.inLine.Add(-1)

	t.handle.resolve(out)
}

// Stats returns a snapshot of lane load.
func (p *Pool[T]) Stats() Stats {
	resolved := shared.Access(p.tally, func(tl *tally) int {
		return tl.success + tl.failure + tl.timedOut
	})

	return Stats{
		IO:       p.lanes[rop.LaneIO].stats(),
		CPU:      p.lanes[rop.LaneCPU].stats(),
		Pending:  int(p.inLine.Load()),
		Resolved: resolved,
		Closed:   p.closed.Load(),
	}
}

// Summary returns the aggregate of every outcome resolved so far.
func (p *Pool[T]) Summary() Summary {
	return shared.Access(p.tally, func(tl *tally) Summary { return tl.summary() })
}

// DrainAndClose stops accepting submissions and waits until every accepted
// item has resolved. If ctx ends first, outstanding items resolve as timed
// out with ErrDrainDeadline as their cause and the returned error is a
// rop.ErrTimeout. Later calls return the first call's result.
func (p *Pool[T]) DrainAndClose(ctx context.Context) (Summary, error) {
	p.once.Do(func() {
		p.summary, p.drainErr = p.drain(ctx)
	})

	return p.summary, p.drainErr
}

func (p *Pool[T]) drain(ctx context.Context) (Summary, error) {
	p.logger.Info("worker pool draining", zap.Int64("pending", p.inLine.Load()))

	func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed.Store(true)
		for _, l := range p.lanes {
			close(l.queue)
		}
	}()

	idle := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(idle)
	}()

	var err error
	select {
	case <-idle:
	case <-ctx.Done():
		p.logger.Warn("drain deadline reached, abandoning outstanding work",
			zap.Int64("pending", p.inLine.Load()))
		p.cancel(ErrDrainDeadline)
		<-idle
		err = rop.NewError(rop.KindTimeout, "drain", ErrDrainDeadline)
	}

	p.cancel(errPoolClosed)
	for _, l := range p.lanes {
		<-l.done
	}

	summary := p.Summary()
	p.logger.Info("worker pool closed",
		zap.Int("success", summary.Success),
		zap.Int("failure", summary.Failure),
		zap.Int("timed_out", summary.TimedOut))

	return summary, err
}
