// Package orchestrator ties the pool and the pipe together.
//
// Batches of work items are submitted to a pool; each item's outcome is
// forwarded through its own cloned pipe sender to a single consumer that
// ranges over Results. At most MaxInFlight items are admitted but not yet
// published, so SubmitBatch blocks while the consumer falls behind. Close stops intake. The orchestrator is Closed once
// the pool has drained and the consumer has seen end of stream, so Wait only
// returns if somebody is reading Results.
//
//	o := orchestrator.New[string](router, orchestrator.WithDrainTimeout(10*time.Second))
//	go func() {
//		for out := range o.Results() {
//			...
//		}
//	}()
//	o.SubmitBatch(ctx, items)
//	o.Close()
//	summary, err := o.Wait(ctx)
package orchestrator
