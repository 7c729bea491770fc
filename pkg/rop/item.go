package rop

import "time"

// Lane selects the execution lane a unit of work is scheduled on.
type Lane int

const (
	LaneIO Lane = iota
	LaneCPU
)

func (l Lane) String() string {
	if l == LaneCPU {
		return "cpu"
	}
	return "io"
}

// WorkItem is an immutable unit of schedulable work.
type WorkItem struct {
	// ID must be unique within a batch.
	ID string
	// Kind selects the work-execution provider.
	Kind string
	// Input is the provider-specific description of the action.
	Input any
	Lane  Lane
	// Timeout is relative to the instant the item is scheduled.
	Timeout time.Duration
	// Deadline is absolute and takes precedence over Timeout.
	Deadline time.Time
}

// DeadlineFrom resolves the item's deadline against the scheduling instant.
// The fallback timeout applies when the item carries neither; a zero result
// means no deadline. A negative Timeout is already expired.
func (w WorkItem) DeadlineFrom(scheduled time.Time, fallback time.Duration) time.Time {
	switch {
	case !w.Deadline.IsZero():
		return w.Deadline
	case w.Timeout != 0:
		return scheduled.Add(w.Timeout)
	case fallback > 0:
		return scheduled.Add(fallback)
	default:
		return time.Time{}
	}
}
