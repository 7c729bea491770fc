package rop

import "time"

type PayloadProvider[T any] interface {
	// Payload returns the successful payload
	Payload() T
	// CreatedAt time creation (UTC)
	CreatedAt() time.Time
}

// WithError defines an interface for types that can return a payload or an error
type WithError[T any] interface {
	PayloadProvider[T]
	// Err returns the classified error if the unit did not succeed
	Err() error
	// IsSuccess returns true if the unit completed successfully
	IsSuccess() bool
}

// WithTimeout extends WithError with deadline awareness
type WithTimeout[T any] interface {
	WithError[T]
	// IsTimedOut returns true if the deadline elapsed first
	IsTimedOut() bool
	// ItemID identifies the work item the outcome belongs to
	ItemID() string
}

var _ WithTimeout[int] = Outcome[int]{}
