// Package pool executes work items under bounded concurrency.
//
// A Pool has two lanes, I/O and CPU, so long computations cannot starve
// latency-sensitive reads. Each lane owns a fixed number of worker tokens
// and a bounded FIFO queue. Submit never blocks: it enqueues the item and
// returns a Handle, or rejects with rop.ErrPoolSaturated when the pool is
// closed or the lane queue is full.
//
// Every item runs under a deadline computed when it is submitted, so time
// spent queued counts against it. The worker token is given back as soon as
// the item completes, fails, panics or times out.
//
//	p := pool.New[string](router, pool.WithWorkers(8))
//	h, err := p.Submit(rop.WorkItem{ID: "a", Kind: "socket", Input: addr})
//	out, _ := h.Wait(ctx)
//	summary, err := p.DrainAndClose(ctx)
package pool
