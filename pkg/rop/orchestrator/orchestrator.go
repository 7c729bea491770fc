package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/core"
	"github.com/ib-77/railyard/pkg/rop/pipe"
	"github.com/ib-77/railyard/pkg/rop/pool"
	"github.com/ib-77/railyard/pkg/rop/shared"
)

var (
	// ErrDuplicateID rejects a batch in which two items share an ID.
	ErrDuplicateID = errors.New("duplicate work item id")
)

type Orchestrator[T any] struct {
	cfg    config
	logger *zap.Logger
	pool   *pool.Pool[T]
	lanes  pool.LaneResolver

	mu         sync.Mutex
	state      State
	submitting sync.WaitGroup
	inFlight   *semaphore.Weighted
	root       *pipe.Sender[rop.Outcome[T]]
	rx         *pipe.Receiver[rop.Outcome[T]]

	ledger *shared.State[Ledger]

	closed   chan struct{}
	summary  pool.Summary
	drainErr error
}

// New builds an idle orchestrator executing items through exec. If exec also
// implements pool.LaneResolver, items are placed on the lane registered for
// their kind.
func New[T any](exec pool.Executor[T], opts ...Option) *Orchestrator[T] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.clock == nil {
		cfg.clock = clockwork.NewRealClock()
	}

	poolOpts := append([]pool.Option{pool.WithLogger(cfg.logger), pool.WithClock(cfg.clock)},
		cfg.poolOptions...)

	root, rx := pipe.New[rop.Outcome[T]](cfg.pipelineCapacity)
	if cfg.maxInFlight <= 0 {
		cfg.maxInFlight = max(cfg.pipelineCapacity, 1)
	}

	o := &Orchestrator[T]{
		cfg:    cfg,
		logger: cfg.logger,
		pool:     pool.New(exec, poolOpts...),
		inFlight: semaphore.NewWeighted(int64(cfg.maxInFlight)),
		root:     root,
		rx:       rx,
		ledger:   shared.New(Ledger{}),
		closed:   make(chan struct{}),
	}
	if lr, ok := exec.(pool.LaneResolver); ok {
		o.lanes = lr
	}

	return o
}

func (o *Orchestrator[T]) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator[T]) transition(to State) {
	from := o.state
	o.state = to
	o.logger.Info("orchestrator state changed",
		zap.Stringer("from", from), zap.Stringer("to", to))
}

func (o *Orchestrator[T]) prepare(ctx context.Context, items []rop.WorkItem) ([]rop.WorkItem, error) {
	batchTimeout := core.GetBatchTimeout(ctx, 0)
	forced, hasLane := core.GetLane(ctx)

	prepared := make([]rop.WorkItem, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, it.ID)
		}
		seen[it.ID] = struct{}{}

		switch {
		case hasLane:
			it.Lane = forced
		case o.lanes != nil:
			if lane, ok := o.lanes.LaneFor(it.Kind); ok {
				it.Lane = lane
			}
		}
		if it.Timeout == 0 && it.Deadline.IsZero() {
			it.Timeout = batchTimeout
		}

		prepared[i] = it
	}

	return prepared, nil
}

// SubmitBatch hands items to the pool. Items without an ID get a generated
// one; a duplicate ID rejects the whole batch before anything is submitted.
//
// Each item takes an in-flight slot before it reaches the pool and gives it
// back once its outcome is published, so SubmitBatch blocks while the
// consumer is behind. If ctx ends while waiting for a slot, or the pool
// saturates part way, the remaining items resolve immediately as
// rop.ErrPoolSaturated failures, are still published to Results, and the
// returned error wraps rop.ErrPoolSaturated alongside a usable handle.
func (o *Orchestrator[T]) SubmitBatch(ctx context.Context, items []rop.WorkItem) (*BatchHandle[T], error) {
	prepared, err := o.admit(ctx, items)
	if err != nil {
		return nil, err
	}
	defer o.submitting.Done()

	batch := &BatchHandle[T]{id: uuid.New(), slots: make([]*slot[T], len(prepared))}
	for i, it := range prepared {
		batch.slots[i] = newSlot[T](it.ID)
	}

	var stopped error
	admitted := 0
	for i, it := range prepared {
		if err := o.inFlight.Acquire(ctx, 1); err != nil {
			stopped = rop.NewError(rop.KindPoolSaturated, "admission abandoned", err)
			break
		}

		sender, err := o.root.Clone()
		if err != nil {
			// root stays open until every SubmitBatch call has returned.
			o.inFlight.Release(1)
			stopped = err
			break
		}

		h, err := o.pool.Submit(it)
		if err != nil {
			sender.Close()
			o.inFlight.Release(1)
			stopped = err
			break
		}

		admitted++
		o.ledger.Do(func(l *Ledger) { l.Submitted++ })
		go o.forward(sender, batch.slots[i], h)
	}

	if stopped == nil {
		return batch, nil
	}

	rest := batch.slots[admitted:]
	o.reject(rest, stopped)

	o.logger.Warn("batch partially rejected",
		zap.Stringer("batch_id", batch.id), zap.Int("rejected", len(rest)), zap.Error(stopped))
	return batch, fmt.Errorf("batch %s: %d of %d items rejected: %w",
		batch.id, len(rest), len(prepared), stopped)
}

// admit validates the batch and registers a running submission. The state
// check comes first so a closed orchestrator always answers OrchestratorClosed.
func (o *Orchestrator[T]) admit(ctx context.Context, items []rop.WorkItem) ([]rop.WorkItem, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateDraining || o.state == StateClosed {
		return nil, rop.NewError(rop.KindOrchestratorClosed, o.state.String(), nil)
	}

	prepared, err := o.prepare(ctx, items)
	if err != nil {
		return nil, err
	}

	if o.state == StateIdle {
		o.transition(StateAccepting)
	}
	o.submitting.Add(1)
	o.ledger.Do(func(l *Ledger) { l.Batches++ })

	return prepared, nil
}

// reject resolves slots with cause and publishes them from a single goroutine
// through one sender.
func (o *Orchestrator[T]) reject(slots []*slot[T], cause error) {
	if len(slots) == 0 {
		return
	}

	sender, err := o.root.Clone()
	if err != nil {
		o.logger.Error("cannot publish rejected items", zap.Error(err))
		return
	}

	outs := make([]rop.Outcome[T], len(slots))
	for i, s := range slots {
		outs[i] = rop.Fail[T](cause).For(s.itemID)
		s.resolve(outs[i])
	}
	o.ledger.Do(func(l *Ledger) { l.Rejected += len(slots) })

	go func() {
		defer sender.Close()
		for _, out := range outs {
			o.publish(sender, out)
		}
	}()
}

// forward waits for h, records the outcome on the batch and publishes it.
// The in-flight slot is given back once the outcome is in the pipeline.
func (o *Orchestrator[T]) forward(sender *pipe.Sender[rop.Outcome[T]], s *slot[T], h *pool.Handle[T]) {
	defer sender.Close()
	defer o.inFlight.Release(1)

	out, _ := h.Wait(context.Background())
	s.resolve(out)
	o.publish(sender, out)
}

func (o *Orchestrator[T]) publish(sender *pipe.Sender[rop.Outcome[T]], out rop.Outcome[T]) {
	if err := sender.Publish(context.Background(), out); err != nil {
		o.logger.Error("publish failed", zap.String("item_id", out.ItemID()), zap.Error(err))
		return
	}
	o.ledger.Do(func(l *Ledger) { l.Published++ })
}

// Results yields outcomes as they are published until end of stream. It is
// meant for a single consumer.
func (o *Orchestrator[T]) Results() iter.Seq[rop.Outcome[T]] {
	return o.rx.All()
}

// Next is the context-aware form of Results.
func (o *Orchestrator[T]) Next(ctx context.Context) (rop.Outcome[T], bool, error) {
	return o.rx.Next(ctx)
}

// Close stops intake. It is idempotent and does not block; use Wait to
// observe completion. Batches already being submitted finish first.
func (o *Orchestrator[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateDraining || o.state == StateClosed {
		return
	}
	o.transition(StateDraining)

	go o.shutdown()
}

func (o *Orchestrator[T]) shutdown() {
	o.submitting.Wait()
	o.root.Close()

	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if o.cfg.drainTimeout > 0 {
		ctx, cancel = clockwork.WithTimeout(ctx, o.cfg.clock, o.cfg.drainTimeout)
	}
	defer cancel()

	summary, err := o.pool.DrainAndClose(ctx)
	if err != nil {
		o.logger.Warn("drain finished with error", zap.Error(err))
	}

	<-o.rx.Done()

	o.mu.Lock()
	o.summary, o.drainErr = summary, err
	o.transition(StateClosed)
	o.mu.Unlock()

	close(o.closed)
}

// Wait blocks until the orchestrator is Closed and returns the pool summary
// and any drain error.
func (o *Orchestrator[T]) Wait(ctx context.Context) (pool.Summary, error) {
	select {
	case <-o.closed:
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.summary, o.drainErr
	case <-ctx.Done():
		return pool.Summary{}, ctx.Err()
	}
}

func (o *Orchestrator[T]) Stats() Ledger {
	return shared.Access(o.ledger, func(l *Ledger) Ledger { return *l })
}

func (o *Orchestrator[T]) PoolStats() pool.Stats {
	return o.pool.Stats()
}
