package pool

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/ib-77/railyard/pkg/rop"
)

const (
	minLatencyMicros = 1
	maxLatencyMicros = int64(time.Hour / time.Microsecond)
	latencySigFigs   = 3
)

// Summary aggregates every outcome the pool resolved.
type Summary struct {
	Success  int
	Failure  int
	TimedOut int
	Latency  Latency
}

// Latency is measured from submission to resolution.
type Latency struct {
	P50 time.Duration
	P90 time.Duration
	P99 time.Duration
	Max time.Duration
}

func (s Summary) Total() int {
	return s.Success + s.Failure + s.TimedOut
}

type LaneStats struct {
	Lane    rop.Lane
	Workers int
	Active  int
	Queued  int
}

// Stats is a point-in-time view of pool load.
type Stats struct {
	IO       LaneStats
	CPU      LaneStats
	Pending  int
	Resolved int
	Closed   bool
}

type tally struct {
	success  int
	failure  int
	timedOut int
	hist     *hdrhistogram.Histogram
}

func newTally() tally {
	return tally{hist: hdrhistogram.New(minLatencyMicros, maxLatencyMicros, latencySigFigs)}
}

func (t *tally) record(status rop.Status, latency time.Duration) {
	switch status {
	case rop.StatusSuccess:
		t.success++
	case rop.StatusTimedOut:
		t.timedOut++
	default:
		t.failure++
	}

	us := min(max(latency.Microseconds(), minLatencyMicros), maxLatencyMicros)
	_ = t.hist.RecordValue(us)
}

func (t *tally) summary() Summary {
	s := Summary{Success: t.success, Failure: t.failure, TimedOut: t.timedOut}
	if t.hist.TotalCount() == 0 {
		return s
	}

	at := func(q float64) time.Duration {
		return time.Duration(t.hist.ValueAtQuantile(q)) * time.Microsecond
	}
	s.Latency = Latency{
		P50: at(50),
		P90: at(90),
		P99: at(99),
		Max: time.Duration(t.hist.Max()) * time.Microsecond,
	}

	return s
}
