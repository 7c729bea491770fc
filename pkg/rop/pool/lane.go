package pool

import (
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ib-77/railyard/pkg/rop"
)

type lane[T any] struct {
	id      rop.Lane
	workers int
	sem     *semaphore.Weighted
	queue   chan *task[T]
	active  atomic.Int64
	queued  atomic.Int64
	done    chan struct{}
	metrics *Metrics
}

func newLane[T any](id rop.Lane, workers, queueSize int, metrics *Metrics) *lane[T] {
	return &lane[T]{
		id:      id,
		workers: workers,
		sem:     semaphore.NewWeighted(int64(workers)),
		queue:   make(chan *task[T], queueSize),
		done:    make(chan struct{}),
		metrics: metrics,
	}
}

// dispatch hands out worker tokens in queue order. The head of the queue
// waits for a token before anything behind it is considered, which keeps
// admission FIFO.
func (l *lane[T]) dispatch(logger *zap.Logger) {
	defer close(l.done)

	for t := range l.queue {
		if rop.ContextErr(t.ctx) == nil {
			if err := l.sem.Acquire(t.ctx, 1); err == nil {
				t.grant()
			} else {
				logger.Debug("token wait abandoned",
					zap.String("item_id", t.item.ID), zap.Stringer("lane", l.id), zap.Error(err))
			}
		}
		l.metrics.setQueued(l.id, l.queued.Add(-1))
	}

	logger.Debug("lane dispatcher stopped", zap.Stringer("lane", l.id))
}

func (l *lane[T]) enter() {
	l.metrics.setActive(l.id, l.active.Add(1))
}

func (l *lane[T]) leave() {
	l.metrics.setActive(l.id, l.active.Add(-1))
}

func (l *lane[T]) stats() LaneStats {
	return LaneStats{
		Lane:    l.id,
		Workers: l.workers,
		Active:  int(l.active.Load()),
		Queued:  int(l.queued.Load()),
	}
}
