package orchestrator

type State int32

const (
	StateIdle State = iota
	StateAccepting
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccepting:
		return "accepting"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Ledger counts what went through the orchestrator.
type Ledger struct {
	Batches   int
	Submitted int
	Rejected  int
	Published int
}
