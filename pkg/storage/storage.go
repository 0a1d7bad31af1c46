// Package storage defines the session and record contracts the unit of work
// and repositories are built on. Engines must run at an isolation level that
// turns concurrent conflicting writes into domain.ErrConcurrencyConflict.
package storage

import "context"

// Record is the persisted shape of an aggregate.
type Record struct {
	ID        string
	Kind      string
	Version   int64
	Discarded bool
	Data      []byte
}

// Filter is a field-equality predicate applied to a record's payload.
type Filter struct {
	Field string
	Value string
}

// Session is one transactional unit against the backing engine. A session
// is exclusively owned by a single unit of work for its entire lifetime and
// must never be shared across concurrent operations.
type Session interface {
	// Insert persists a brand-new record at its initial version.
	Insert(ctx context.Context, rec Record) error

	// Update persists rec and advances the stored version by one. The engine
	// reports a concurrent conflicting write as domain.ErrConcurrencyConflict,
	// either here or at Commit.
	Update(ctx context.Context, rec Record) error

	// Get loads a record by kind and id. Returns domain.ErrEntityNotFound
	// when no such record exists.
	Get(ctx context.Context, kind, id string) (Record, error)

	// Query returns the records of a kind whose payload matches every filter,
	// ordered by id.
	Query(ctx context.Context, kind string, filters ...Filter) ([]Record, error)

	// Commit makes all staged writes durable.
	Commit(ctx context.Context) error

	// Rollback discards all staged writes. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// Factory produces one fresh session per unit of work entry.
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
}
