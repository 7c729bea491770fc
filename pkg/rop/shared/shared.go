package shared

import "sync"

type State[T any] struct {
	mu    sync.Mutex
	value T
}

func New[T any](value T) *State[T] {
	return &State[T]{value: value}
}

// Access applies fn to the guarded value under the lock and returns its result.
func Access[T, R any](s *State[T], fn func(v *T) R) R {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&s.value)
}

func (s *State[T]) Do(fn func(v *T)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.value)
}

// Try applies fn and returns its error. The value keeps whatever changes fn
// made before failing.
func (s *State[T]) Try(fn func(v *T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&s.value)
}

// Snapshot returns a copy of the value. clone must deep copy anything the
// caller could mutate; nil means a shallow copy is enough.
func (s *State[T]) Snapshot(clone func(v T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	if clone == nil {
		return s.value
	}
	return clone(s.value)
}
