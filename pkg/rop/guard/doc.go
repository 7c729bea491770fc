// Package guard runs a unit of work against a deadline.
//
// The action runs on its own goroutine. Whichever comes first decides the
// outcome: the action's result (success or failure) or the deadline (timed
// out). An abandoned action keeps running until it observes its context, so
// actions must return promptly once ctx is done and release whatever they
// acquired.
package guard
