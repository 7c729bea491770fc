// Package shared provides State, a mutually exclusive container for a value
// that many goroutines read and mutate.
//
// All access goes through a callback executed while the lock is held:
// - Access: apply a function and return its result
// - Do/Try: mutate without a result, or with an error
// - Snapshot: copy the value out through a caller supplied clone function
//
// The lock is released even when the callback panics, so a failed mutation
// never leaves the state locked for later callers. Callbacks must not block,
// must not call back into the same State and must not keep the pointer they
// receive after returning.
package shared
