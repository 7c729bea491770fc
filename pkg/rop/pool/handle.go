package pool

import (
	"context"
	"sync"

	"github.com/ib-77/railyard/pkg/rop"
)

// Handle resolves to the outcome of one submitted item, exactly once.
type Handle[T any] struct {
	itemID string
	done   chan struct{}
	once   sync.Once
	out    rop.Outcome[T]
}

func newHandle[T any](itemID string) *Handle[T] {
	return &Handle[T]{itemID: itemID, done: make(chan struct{})}
}

func (h *Handle[T]) ItemID() string {
	return h.itemID
}

// Done is closed once the outcome is available.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the outcome is available or ctx ends.
func (h *Handle[T]) Wait(ctx context.Context) (rop.Outcome[T], error) {
	select {
	case <-h.done:
		return h.out, nil
	case <-ctx.Done():
		return rop.Outcome[T]{}, ctx.Err()
	}
}

// Outcome returns the outcome without blocking; ok is false while unresolved.
func (h *Handle[T]) Outcome() (out rop.Outcome[T], ok bool) {
	select {
	case <-h.done:
		return h.out, true
	default:
		return out, false
	}
}

func (h *Handle[T]) resolve(out rop.Outcome[T]) {
	h.once.Do(func() {
		h.out = out
		close(h.done)
	})
}
