package rop

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status int

const (
	StatusSuccess Status = iota + 1
	StatusFailure
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "empty"
	}
}

// Outcome is the result of executing one WorkItem: a success payload,
// a classified failure or a timeout.
type Outcome[T any] struct {
	id        uuid.UUID
	itemID    string
	createdAt time.Time
	payload   T
	err       error
	status    Status
}

func Success[T any](payload T) Outcome[T] {
	return Outcome[T]{
		payload:   payload,
		status:    StatusSuccess,
		createdAt: time.Now().UTC(),
		id:        uuid.New(),
	}
}

// Fail builds a failure outcome. Unclassified errors are wrapped as execution
// failures so the original cause is preserved under ErrExecutionFailure.
func Fail[T any](err error) Outcome[T] {
	if KindOf(err) == KindNone {
		err = NewError(KindExecutionFailure, "no error reported", nil)
	}
	var e *Error
	if !errors.As(err, &e) {
		err = NewError(KindExecutionFailure, "", err)
	}
	return Outcome[T]{
		err:       err,
		status:    StatusFailure,
		createdAt: time.Now().UTC(),
		id:        uuid.New(),
	}
}

func TimedOut[T any](cause error) Outcome[T] {
	return Outcome[T]{
		err:       NewError(KindTimeout, "", cause),
		status:    StatusTimedOut,
		createdAt: time.Now().UTC(),
		id:        uuid.New(),
	}
}

// For returns a copy of the outcome attributed to the given work item.
func (o Outcome[T]) For(itemID string) Outcome[T] {
	o.itemID = itemID
	return o
}

func (o Outcome[T]) Payload() T {
	return o.payload
}

func (o Outcome[T]) Err() error {
	return o.err
}

func (o Outcome[T]) Kind() ErrorKind {
	return KindOf(o.err)
}

func (o Outcome[T]) Status() Status {
	return o.status
}

func (o Outcome[T]) IsSuccess() bool {
	return o.status == StatusSuccess
}

func (o Outcome[T]) IsFailure() bool {
	return o.status == StatusFailure
}

func (o Outcome[T]) IsTimedOut() bool {
	return o.status == StatusTimedOut
}

func (o Outcome[T]) IsEmpty() bool {
	return o.status == 0
}

func (o Outcome[T]) ItemID() string {
	return o.itemID
}

func (o Outcome[T]) CreatedAt() time.Time {
	return o.createdAt
}

func (o Outcome[T]) Id() uuid.UUID {
	return o.id
}
