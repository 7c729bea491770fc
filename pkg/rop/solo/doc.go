// Package solo contains single-value, synchronous primitives that operate
// on Outcome[T]. They are the building blocks the guard and the pool use to
// turn provider calls into outcomes without channels.
//
// Highlights:
// - Try: call a function (T, error), convert error or panic to failure
// - DoubleTee: per-status side effects, used for counting streams
// - Finally: reduce to a concrete value via success/failure/timeout handlers
package solo
