package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/core"
	"github.com/ib-77/railyard/pkg/rop/pool"
	"github.com/ib-77/railyard/pkg/rop/solo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func consume[T any](o *Orchestrator[T]) <-chan []rop.Outcome[T] {
	ch := make(chan []rop.Outcome[T], 1)
	go func() {
		var outs []rop.Outcome[T]
		for out := range o.Results() {
			outs = append(outs, out)
		}
		ch <- outs
	}()
	return ch
}

func closeAndWait[T any](t *testing.T, o *Orchestrator[T]) (pool.Summary, error) {
	t.Helper()
	o.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := o.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "orchestrator never closed")
	return s, err
}

func waitBatch[T any](t *testing.T, b *BatchHandle[T]) []rop.Outcome[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	outs, err := b.Wait(ctx)
	require.NoError(t, err)
	return outs
}

func validateURL(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}

func titleRouter() *pool.Router[int] {
	return pool.NewRouter[int]().
		HandleFunc("title", rop.LaneIO, func(ctx context.Context, it rop.WorkItem) (int, error) {
			url := it.Input.(string)
			if err := validateURL(url); err != nil {
				return 0, err
			}
			return len("Mock Page Title for " + url), nil
		})
}

func TestOrchestrator_URLBatch(t *testing.T) {
	urls := []string{
		"https://www.example.com",
		"https://www.test.org",
		"https://www.google.com",
		"https://www.microsoft.com",
		"https://www.micros---oft.com",
		"https://www.mic--ros---oft.com",
		"invalid-url",
		"ftp://invalid-protocol.com",
	}

	o := New[int](titleRouter(), WithPoolOptions(pool.WithWorkers(2)))
	results := consume(o)

	items := make([]rop.WorkItem, len(urls))
	for i, u := range urls {
		items[i] = rop.WorkItem{ID: u, Kind: "title", Input: u}
	}

	b, err := o.SubmitBatch(context.Background(), items)
	require.NoError(t, err)

	render := func(out rop.Outcome[int]) string {
		return solo.Finally(context.Background(), out,
			func(ctx context.Context, r int) string { return fmt.Sprintf("title length: %d", r) },
			func(ctx context.Context, err error) string { return "invalid" },
			func(ctx context.Context, err error) string { return "invalid" })
	}

	byBatch := waitBatch(t, b)
	require.Len(t, byBatch, len(urls))
	for i, out := range byBatch {
		assert.Equal(t, urls[i], out.ItemID())
	}

	s, err := closeAndWait(t, o)
	require.NoError(t, err)

	invalid := 0
	outs := <-results
	for _, out := range outs {
		if render(out) == "invalid" {
			invalid++
		}
	}
	assert.Len(t, outs, len(urls))
	assert.Equal(t, 2, invalid)
	assert.Equal(t, 6, s.Success)
	assert.Equal(t, 2, s.Failure)
}

func TestOrchestrator_StateTransitions(t *testing.T) {
	o := New[int](titleRouter())
	assert.Equal(t, StateIdle, o.State())

	results := consume(o)

	_, err := o.SubmitBatch(context.Background(), []rop.WorkItem{{Kind: "title", Input: "http://a"}})
	require.NoError(t, err)
	assert.Equal(t, StateAccepting, o.State())

	o.Close()
	assert.Contains(t, []State{StateDraining, StateClosed}, o.State())

	_, err = closeAndWait(t, o)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, o.State())
	assert.Len(t, <-results, 1)
}

func TestOrchestrator_SubmitAfterCloseFails(t *testing.T) {
	o := New[int](titleRouter())
	results := consume(o)

	o.Close()
	b, err := o.SubmitBatch(context.Background(), []rop.WorkItem{{Kind: "title", Input: "http://a"}})
	assert.Nil(t, b)
	assert.ErrorIs(t, err, rop.ErrOrchestratorClosed)

	_, err = closeAndWait(t, o)
	require.NoError(t, err)

	b, err = o.SubmitBatch(context.Background(), []rop.WorkItem{{Kind: "title", Input: "http://b"}})
	assert.Nil(t, b)
	assert.ErrorIs(t, err, rop.ErrOrchestratorClosed)
	assert.Equal(t, rop.KindOrchestratorClosed, rop.KindOf(err))

	assert.Empty(t, <-results)
	assert.Equal(t, Ledger{}, o.Stats())
}

func TestOrchestrator_NoLossAcrossBatches(t *testing.T) {
	o := New[int](titleRouter(), WithPoolOptions(pool.WithWorkers(3)), WithPipelineCapacity(2))
	results := consume(o)

	var wg sync.WaitGroup
	total := 0
	for b := range 4 {
		n := 5 + b*3
		total += n
		items := make([]rop.WorkItem, n)
		for i := range items {
			items[i] = rop.WorkItem{Kind: "title", Input: fmt.Sprintf("https://host-%d-%d", b, i)}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.SubmitBatch(context.Background(), items)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := closeAndWait(t, o)
	require.NoError(t, err)

	outs := <-results
	assert.Len(t, outs, total)
	assert.Equal(t, total, s.Success)

	seen := map[string]bool{}
	for _, out := range outs {
		assert.False(t, seen[out.ItemID()], "duplicate outcome for %s", out.ItemID())
		seen[out.ItemID()] = true
	}

	st := o.Stats()
	assert.Equal(t, Ledger{Batches: 4, Submitted: total, Published: total}, st)
}

func TestOrchestrator_SuccessAndTimeoutThenUsable(t *testing.T) {
	r := pool.NewRouter[string]().
		HandleFunc("fast", rop.LaneIO, func(ctx context.Context, it rop.WorkItem) (string, error) {
			return "done", nil
		}).
		HandleFunc("slow", rop.LaneIO, func(ctx context.Context, it rop.WorkItem) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	o := New[string](r, WithPoolOptions(pool.WithWorkers(1)))
	results := consume(o)

	b, err := o.SubmitBatch(context.Background(), []rop.WorkItem{
		{ID: "fast", Kind: "fast"},
		{ID: "slow", Kind: "slow", Timeout: 30 * time.Millisecond},
	})
	require.NoError(t, err)

	outs := waitBatch(t, b)
	assert.True(t, outs[0].IsSuccess())
	assert.True(t, outs[1].IsTimedOut())

	b, err = o.SubmitBatch(context.Background(), []rop.WorkItem{{ID: "after", Kind: "fast"}})
	require.NoError(t, err)
	assert.True(t, waitBatch(t, b)[0].IsSuccess())

	s, err := closeAndWait(t, o)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Success)
	assert.Equal(t, 1, s.TimedOut)
	assert.Len(t, <-results, 3)
}

func TestOrchestrator_DuplicateIDsRejectBatch(t *testing.T) {
	o := New[int](titleRouter())
	results := consume(o)

	b, err := o.SubmitBatch(context.Background(), []rop.WorkItem{
		{ID: "a", Kind: "title", Input: "http://a"},
		{ID: "a", Kind: "title", Input: "http://b"},
	})
	assert.Nil(t, b)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, StateIdle, o.State())

	_, err = closeAndWait(t, o)
	require.NoError(t, err)
	assert.Empty(t, <-results)
	assert.Zero(t, o.Stats().Submitted)
}

func TestOrchestrator_GeneratesMissingIDs(t *testing.T) {
	o := New[int](titleRouter())
	results := consume(o)

	b, err := o.SubmitBatch(context.Background(), []rop.WorkItem{
		{Kind: "title", Input: "http://a"},
		{Kind: "title", Input: "http://b"},
		{ID: "given", Kind: "title", Input: "http://c"},
	})
	require.NoError(t, err)

	ids := b.ItemIDs()
	require.Len(t, ids, 3)
	assert.NotEmpty(t, ids[0])
	assert.NotEmpty(t, ids[1])
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, "given", ids[2])

	for i, out := range waitBatch(t, b) {
		assert.Equal(t, ids[i], out.ItemID())
	}

	_, err = closeAndWait(t, o)
	require.NoError(t, err)
	assert.Len(t, <-results, 3)
}

func TestOrchestrator_SaturationMidBatch(t *testing.T) {
	gate := make(chan struct{})
	r := pool.NewRouter[int]().HandleFunc("block", rop.LaneIO,
		func(ctx context.Context, it rop.WorkItem) (int, error) {
			<-gate
			return 1, nil
		})

	o := New[int](r, WithPoolOptions(pool.WithWorkers(1), pool.WithQueueSize(1)))
	results := consume(o)

	items := make([]rop.WorkItem, 10)
	for i := range items {
		items[i] = rop.WorkItem{ID: fmt.Sprint(i), Kind: "block"}
	}

	b, err := o.SubmitBatch(context.Background(), items)
	require.Error(t, err)
	assert.ErrorIs(t, err, rop.ErrPoolSaturated)
	require.NotNil(t, b)

	close(gate)

	saturated := 0
	for _, out := range waitBatch(t, b) {
		if out.Kind() == rop.KindPoolSaturated {
			saturated++
		}
	}
	assert.GreaterOrEqual(t, saturated, 7)

	_, err = closeAndWait(t, o)
	require.NoError(t, err)
	assert.Len(t, <-results, 10)

	st := o.Stats()
	assert.Equal(t, saturated, st.Rejected)
	assert.Equal(t, 10, st.Published)
}

func TestOrchestrator_BatchOptions(t *testing.T) {
	var (
		mu    sync.Mutex
		lanes = map[string]rop.Lane{}
	)
	r := pool.NewRouter[int]().
		HandleFunc("wait", rop.LaneIO, func(ctx context.Context, it rop.WorkItem) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}).
		HandleFunc("crunch", rop.LaneCPU, func(ctx context.Context, it rop.WorkItem) (int, error) {
			mu.Lock()
			lanes[it.ID] = it.Lane
			mu.Unlock()
			return 1, nil
		})

	o := New[int](r)
	results := consume(o)

	ctx := core.WithBatchTimeout(context.Background(), 20*time.Millisecond)
	b, err := o.SubmitBatch(ctx, []rop.WorkItem{{ID: "w", Kind: "wait"}})
	require.NoError(t, err)
	assert.True(t, waitBatch(t, b)[0].IsTimedOut())

	b, err = o.SubmitBatch(context.Background(), []rop.WorkItem{{ID: "routed", Kind: "crunch"}})
	require.NoError(t, err)
	waitBatch(t, b)

	b, err = o.SubmitBatch(core.WithLane(context.Background(), rop.LaneIO),
		[]rop.WorkItem{{ID: "forced", Kind: "crunch"}})
	require.NoError(t, err)
	waitBatch(t, b)

	mu.Lock()
	assert.Equal(t, rop.LaneCPU, lanes["routed"])
	assert.Equal(t, rop.LaneIO, lanes["forced"])
	mu.Unlock()

	_, err = closeAndWait(t, o)
	require.NoError(t, err)
	assert.Len(t, <-results, 3)
}

func TestOrchestrator_DrainTimeoutResolvesOutstanding(t *testing.T) {
	r := pool.NewRouter[int]().HandleFunc("wait", rop.LaneIO,
		func(ctx context.Context, it rop.WorkItem) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})

	o := New[int](r, WithDrainTimeout(30*time.Millisecond))
	results := consume(o)

	b, err := o.SubmitBatch(context.Background(), []rop.WorkItem{
		{ID: "a", Kind: "wait"},
		{ID: "b", Kind: "wait"},
	})
	require.NoError(t, err)

	s, err := closeAndWait(t, o)
	assert.ErrorIs(t, err, rop.ErrTimeout)
	assert.ErrorIs(t, err, pool.ErrDrainDeadline)
	assert.Equal(t, 2, s.TimedOut)

	for _, out := range waitBatch(t, b) {
		assert.True(t, out.IsTimedOut())
	}
	assert.Len(t, <-results, 2)
}

func TestOrchestrator_CloseIsIdempotent(t *testing.T) {
	o := New[int](titleRouter())
	results := consume(o)

	o.Close()
	o.Close()

	_, err := closeAndWait(t, o)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, o.State())
	assert.Empty(t, <-results)
}

func instantRouter(executed *atomic.Int64) *pool.Router[string] {
	return pool.NewRouter[string]().HandleFunc("echo", rop.LaneIO,
		func(ctx context.Context, it rop.WorkItem) (string, error) {
			executed.Add(1)
			return it.ID, nil
		})
}

func echoItems(n int) []rop.WorkItem {
	items := make([]rop.WorkItem, n)
	for i := range items {
		items[i] = rop.WorkItem{ID: fmt.Sprint(i), Kind: "echo"}
	}
	return items
}

func TestOrchestrator_FakeClockSuccessBeforeDeadline(t *testing.T) {
	var executed atomic.Int64
	o := New[string](instantRouter(&executed), WithClock(clockwork.NewFakeClock()))
	results := consume(o)

	items := echoItems(6)
	for i := range items {
		items[i].Timeout = time.Minute
	}

	b, err := o.SubmitBatch(context.Background(), items)
	require.NoError(t, err)

	for i, out := range waitBatch(t, b) {
		require.True(t, out.IsSuccess(), "item %d: %v", i, out.Err())
		assert.Equal(t, fmt.Sprint(i), out.Payload())
	}

	s, err := closeAndWait(t, o)
	require.NoError(t, err)
	assert.Equal(t, 6, s.Success)
	assert.Len(t, <-results, 6)
}

func TestOrchestrator_SlowConsumerBoundsBufferedOutcomes(t *testing.T) {
	var executed atomic.Int64
	o := New[string](instantRouter(&executed), WithPipelineCapacity(1))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// nobody reads Results yet: one outcome fills the pipe and one more waits to publish.
	b, err := o.SubmitBatch(ctx, echoItems(50))
	require.Error(t, err)
	assert.ErrorIs(t, err, rop.ErrPoolSaturated)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, b)

	assert.Eventually(t, func() bool { return executed.Load() == 2 }, time.Second, 5*time.Millisecond)
	st := o.Stats()
	assert.Equal(t, 2, st.Submitted)
	assert.Equal(t, 48, st.Rejected)

	results := consume(o)
	outs := waitBatch(t, b)
	assert.True(t, outs[0].IsSuccess())
	assert.True(t, outs[1].IsSuccess())
	for _, out := range outs[2:] {
		assert.Equal(t, rop.KindPoolSaturated, out.Kind())
	}

	_, err = closeAndWait(t, o)
	require.NoError(t, err)
	assert.Len(t, <-results, 50)
	assert.Equal(t, 50, o.Stats().Published)
}

func TestOrchestrator_CloseWaitsForBlockedSubmission(t *testing.T) {
	var executed atomic.Int64
	o := New[string](instantRouter(&executed), WithPipelineCapacity(1))

	submitted := make(chan error, 1)
	go func() {
		_, err := o.SubmitBatch(context.Background(), echoItems(10))
		submitted <- err
	}()

	require.Eventually(t, func() bool { return o.Stats().Submitted == 2 },
		time.Second, 5*time.Millisecond)
	o.Close()
	assert.Equal(t, StateDraining, o.State())

	results := consume(o)
	require.NoError(t, <-submitted)

	s, err := closeAndWait(t, o)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Success)
	assert.Len(t, <-results, 10)
}

func TestOrchestrator_ClosedTakesPrecedenceOverBadBatch(t *testing.T) {
	o := New[int](titleRouter())
	results := consume(o)
	o.Close()

	b, err := o.SubmitBatch(context.Background(), []rop.WorkItem{
		{ID: "a", Kind: "title", Input: "http://a"},
		{ID: "a", Kind: "title", Input: "http://b"},
	})
	assert.Nil(t, b)
	assert.ErrorIs(t, err, rop.ErrOrchestratorClosed)
	assert.NotErrorIs(t, err, ErrDuplicateID)

	_, err = closeAndWait(t, o)
	require.NoError(t, err)
	assert.Empty(t, <-results)
}
