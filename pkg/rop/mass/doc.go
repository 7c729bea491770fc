// Package mass applies solo primitives across a stream of outcomes, such as
// the one an orchestrator's Results yields.
package mass
