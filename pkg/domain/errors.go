package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEntityNotFound is returned when a repository lookup matches nothing.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrMultipleEntitiesFound is returned when a lookup that expects a single
	// entity matches more than one.
	ErrMultipleEntitiesFound = errors.New("multiple entities found")

	// ErrEntityNotSeen is returned when persisting an entity the repository
	// never loaded or added. This is a programmer error, not a business error.
	ErrEntityNotSeen = errors.New("entity was never seen by this repository")

	// ErrAggregateDiscarded is returned on any read or mutation attempt
	// against a soft-deleted aggregate.
	ErrAggregateDiscarded = errors.New("aggregate discarded")

	// ErrConcurrencyConflict is returned when two transactions race on the
	// same aggregate and the storage engine rejects the losing commit.
	// Retrying is a deliberate caller responsibility.
	ErrConcurrencyConflict = errors.New("concurrency conflict: aggregate version mismatch")
)

// ConflictError carries the identity of the aggregate whose commit lost a
// concurrent-update race.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent update on %s %q", e.Kind, e.ID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}
