package pool

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/ib-77/railyard/pkg/rop"
)

var (
	// ErrUnknownKind is wrapped by failures for items whose kind has no executor.
	ErrUnknownKind = errors.New("unknown work kind")
)

// Executor performs one work item. Implementations must return promptly once
// ctx is done.
type Executor[T any] interface {
	Execute(ctx context.Context, item rop.WorkItem) (T, error)
}

type ExecutorFunc[T any] func(ctx context.Context, item rop.WorkItem) (T, error)

func (f ExecutorFunc[T]) Execute(ctx context.Context, item rop.WorkItem) (T, error) {
	return f(ctx, item)
}

// LaneResolver is implemented by executors that know which lane a kind
// belongs on.
type LaneResolver interface {
	LaneFor(kind string) (rop.Lane, bool)
}

type route[T any] struct {
	exec Executor[T]
	lane rop.Lane
}

// Router dispatches items to executors by WorkItem.Kind.
type Router[T any] struct {
	mu     sync.RWMutex
	routes map[string]route[T]
}

var (
	_ Executor[any] = (*Router[any])(nil)
	_ LaneResolver  = (*Router[any])(nil)
)

func NewRouter[T any]() *Router[T] {
	return &Router[T]{routes: make(map[string]route[T])}
}

// Handle registers exec for kind on lane, replacing any previous entry.
func (r *Router[T]) Handle(kind string, lane rop.Lane, exec Executor[T]) *Router[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[kind] = route[T]{exec: exec, lane: lane}
	return r
}

func (r *Router[T]) HandleFunc(kind string, lane rop.Lane,
	fn func(ctx context.Context, item rop.WorkItem) (T, error)) *Router[T] {

	return r.Handle(kind, lane, ExecutorFunc[T](fn))
}

func (r *Router[T]) LaneFor(kind string) (rop.Lane, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[kind]
	return rt.lane, ok
}

func (r *Router[T]) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.routes))
}

func (r *Router[T]) Execute(ctx context.Context, item rop.WorkItem) (T, error) {
	r.mu.RLock()
	rt, ok := r.routes[item.Kind]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, rop.NewError(rop.KindExecutionFailure, item.Kind, ErrUnknownKind)
	}

	return rt.exec.Execute(ctx, item)
}
