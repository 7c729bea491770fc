package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/ib-77/railyard/pkg/rop"
)

type slot[T any] struct {
	itemID string
	done   chan struct{}
	out    rop.Outcome[T]
}

func newSlot[T any](itemID string) *slot[T] {
	return &slot[T]{itemID: itemID, done: make(chan struct{})}
}

func (s *slot[T]) resolve(out rop.Outcome[T]) {
	s.out = out
	close(s.done)
}

// BatchHandle tracks the items of one SubmitBatch call.
type BatchHandle[T any] struct {
	id    uuid.UUID
	slots []*slot[T]
}

func (b *BatchHandle[T]) ID() uuid.UUID {
	return b.id
}

func (b *BatchHandle[T]) Len() int {
	return len(b.slots)
}

// ItemIDs returns the item IDs in submission order, including generated ones.
func (b *BatchHandle[T]) ItemIDs() []string {
	ids := make([]string, len(b.slots))
	for i, s := range b.slots {
		ids[i] = s.itemID
	}
	return ids
}

// Wait blocks until every item of the batch has an outcome and returns them
// in submission order. It does not depend on the consumer reading Results.
func (b *BatchHandle[T]) Wait(ctx context.Context) ([]rop.Outcome[T], error) {
	outs := make([]rop.Outcome[T], len(b.slots))
	for i, s := range b.slots {
		select {
		case <-s.done:
			outs[i] = s.out
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return outs, nil
}
