package domain

import "fmt"

// Aggregate is the behaviour shared by every versioned, identity-bearing
// entity the repositories track.
type Aggregate interface {
	// ID returns the unique identifier of the aggregate.
	ID() string

	// Version returns the version the aggregate was created or loaded at.
	// The storage engine advances it by one per committed mutation.
	Version() int64

	// Discarded reports whether the aggregate has been soft-deleted.
	Discarded() bool

	// PopEvents drains the aggregate's pending event queue in FIFO order.
	PopEvents() []Event
}

// AggregateRoot provides base functionality for all aggregates.
// Embed it in concrete aggregate implementations.
type AggregateRoot struct {
	id        string
	version   int64
	discarded bool
	pending   []Event
}

// NewAggregateRoot creates the root for a brand-new aggregate at version 1.
func NewAggregateRoot(id string) AggregateRoot {
	return AggregateRoot{id: id, version: 1}
}

// RehydrateAggregateRoot restores a root from persisted state.
func RehydrateAggregateRoot(id string, version int64, discarded bool) AggregateRoot {
	return AggregateRoot{id: id, version: version, discarded: discarded}
}

// ID returns the aggregate's unique identifier.
func (a *AggregateRoot) ID() string {
	return a.id
}

// Version returns the aggregate's version as created or loaded.
func (a *AggregateRoot) Version() int64 {
	return a.version
}

// Discarded reports whether the aggregate has been soft-deleted.
func (a *AggregateRoot) Discarded() bool {
	return a.discarded
}

// Record appends an event to the pending queue.
func (a *AggregateRoot) Record(evt Event) {
	a.pending = append(a.pending, evt)
}

// PopEvents drains the pending event queue in append order and empties it.
// A second call with no intervening mutation returns nothing.
func (a *AggregateRoot) PopEvents() []Event {
	events := a.pending
	a.pending = nil
	return events
}

// Discard soft-deletes the aggregate. Further reads and mutations fail.
func (a *AggregateRoot) Discard() {
	a.discarded = true
}

// EnsureActive fails fast when the aggregate has been discarded.
func (a *AggregateRoot) EnsureActive() error {
	if a.discarded {
		return fmt.Errorf("%w: %s", ErrAggregateDiscarded, a.id)
	}
	return nil
}
