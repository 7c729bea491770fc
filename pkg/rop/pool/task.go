package pool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ib-77/railyard/pkg/rop"
)

type task[T any] struct {
	item      rop.WorkItem
	lane      rop.Lane
	ctx       context.Context
	cancel    context.CancelFunc
	scheduled time.Time
	handle    *Handle[T]

	sem     *semaphore.Weighted
	granted chan struct{}

	mu       sync.Mutex
	held     bool
	finished bool
}

// grant hands the acquired token to the task. A task that already finished
// (timed out while queued) gives it straight back.
func (t *task[T]) grant() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		t.sem.Release(1)
		return
	}
	t.held = true
	close(t.granted)
}

// release returns the token if held and marks the task finished. Safe to call
// from both the executing goroutine and the one that abandoned it.
func (t *task[T]) release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished {
		return
	}
	t.finished = true
	if t.held {
		t.held = false
		t.sem.Release(1)
	}
}
