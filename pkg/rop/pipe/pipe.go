package pipe

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/ib-77/railyard/pkg/rop"
)

var (
	// ErrFull is returned by TryPublish when the buffer is at capacity.
	ErrFull = errors.New("pipe: buffer full")
)

type hub[T any] struct {
	mu      sync.RWMutex
	ch      chan T
	senders atomic.Int64
	closed  bool
	eos     chan struct{}
	eosOnce sync.Once
}

// Sender publishes into the pipe. A Sender must not be used after Close;
// the zero value is not usable.
type Sender[T any] struct {
	h      *hub[T]
	closed atomic.Bool
}

// Receiver drains the pipe. It is meant for a single consuming goroutine.
type Receiver[T any] struct {
	h *hub[T]
}

// New creates a pipe with the given buffer capacity. A capacity below one is
// raised to one so that publishing always applies backpressure rather than
// rendezvous.
func New[T any](capacity int) (*Sender[T], *Receiver[T]) {
	if capacity < 1 {
		capacity = 1
	}

	h := &hub[T]{
		ch:  make(chan T, capacity),
		eos: make(chan struct{}),
	}
	h.senders.Store(1)

	return &Sender[T]{h: h}, &Receiver[T]{h: h}
}

func channelClosed(msg string) error {
	return rop.NewError(rop.KindChannelClosed, msg, nil)
}

// Clone returns an additional sender. Cloning from a closed sender, or once
// every sender is closed, fails with rop.ErrChannelClosed.
func (s *Sender[T]) Clone() (*Sender[T], error) {
	if s.closed.Load() {
		return nil, channelClosed("clone of a closed sender")
	}

	for {
		n := s.h.senders.Load()
		if n <= 0 {
			return nil, channelClosed("clone after all senders closed")
		}
		if s.h.senders.CompareAndSwap(n, n+1) {
			return &Sender[T]{h: s.h}, nil
		}
	}
}

// Publish delivers v, blocking while the buffer is full. It returns ctx's
// error if ctx ends first.
func (s *Sender[T]) Publish(ctx context.Context, v T) error {
	if s.closed.Load() {
		return channelClosed("publish on a closed sender")
	}

	s.h.mu.RLock()
	defer s.h.mu.RUnlock()

	if s.h.closed {
		return channelClosed("publish after all senders closed")
	}

	select {
	case s.h.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublish delivers v only if there is room in the buffer.
func (s *Sender[T]) TryPublish(v T) error {
	if s.closed.Load() {
		return channelClosed("publish on a closed sender")
	}

	s.h.mu.RLock()
	defer s.h.mu.RUnlock()

	if s.h.closed {
		return channelClosed("publish after all senders closed")
	}

	select {
	case s.h.ch <- v:
		return nil
	default:
		return ErrFull
	}
}

// Close releases this sender. It is idempotent. Closing the last open
// sender ends the stream once the buffer is drained.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	if s.h.senders.Add(-1) > 0 {
		return
	}

	s.h.mu.Lock()
	s.h.closed = true
	close(s.h.ch)
	s.h.mu.Unlock()
}

// Next returns the next item. ok is false once the stream has ended; err is
// set only when ctx ends first.
func (r *Receiver[T]) Next(ctx context.Context) (v T, ok bool, err error) {
	select {
	case v, ok = <-r.h.ch:
		if !ok {
			r.h.eosOnce.Do(func() { close(r.h.eos) })
		}
		return v, ok, nil
	case <-ctx.Done():
		return v, false, ctx.Err()
	}
}

// All yields items until end of stream. Breaking out early leaves the rest
// buffered for a later Next or All.
func (r *Receiver[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok, _ := r.Next(context.Background())
			if !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Done is closed once the receiver has observed end of stream.
func (r *Receiver[T]) Done() <-chan struct{} {
	return r.h.eos
}

// Len reports the number of buffered items.
func (r *Receiver[T]) Len() int {
	return len(r.h.ch)
}
