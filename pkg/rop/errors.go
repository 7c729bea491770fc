package rop

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTimeout
	KindExecutionFailure
	KindPoolSaturated
	KindOrchestratorClosed
	KindChannelClosed
)

var (
	// ErrTimeout is matched by every outcome or error whose deadline elapsed before completion.
	ErrTimeout = errors.New("deadline exceeded before completion")

	// ErrExecutionFailure is matched by failures returned or raised by a work-execution provider.
	ErrExecutionFailure = errors.New("work execution failed")

	// ErrPoolSaturated is returned when the pool is closed or its queue bound is exceeded.
	ErrPoolSaturated = errors.New("worker pool saturated")

	// ErrOrchestratorClosed is returned when work is submitted after the orchestrator began draining.
	ErrOrchestratorClosed = errors.New("orchestrator closed")

	// ErrChannelClosed is returned when publishing through a sender that can no longer deliver.
	ErrChannelClosed = errors.New("channel closed")

	// ErrPanic marks failures recovered from a panicking provider.
	ErrPanic = errors.New("panic in work execution")
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindExecutionFailure:
		return "execution_failure"
	case KindPoolSaturated:
		return "pool_saturated"
	case KindOrchestratorClosed:
		return "orchestrator_closed"
	case KindChannelClosed:
		return "channel_closed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindExecutionFailure:
		return ErrExecutionFailure
	case KindPoolSaturated:
		return ErrPoolSaturated
	case KindOrchestratorClosed:
		return ErrOrchestratorClosed
	case KindChannelClosed:
		return ErrChannelClosed
	default:
		return nil
	}
}

// Error is a classified error. The original cause stays reachable through Unwrap.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + ": " + e.Msg
	}
	if e.Msg == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf classifies err. Unclassified errors count as execution failures.
func KindOf(err error) ErrorKind {
	if IsNil(err) {
		return KindNone
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	switch {
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrPoolSaturated):
		return KindPoolSaturated
	case errors.Is(err, ErrOrchestratorClosed):
		return KindOrchestratorClosed
	case errors.Is(err, ErrChannelClosed):
		return KindChannelClosed
	default:
		return KindExecutionFailure
	}
}
