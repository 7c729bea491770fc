// Package core carries per-batch options through a context: a batch-wide
// timeout and a forced execution lane. The orchestrator reads them when a
// batch is submitted; items keep any deadline they set themselves.
package core
