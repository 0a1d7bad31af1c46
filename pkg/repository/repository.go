// Package repository provides the seen-tracking repository the unit of work
// binds to its session. Every aggregate loaded or added through a repository
// joins its "seen" set; the unit of work drains pending events from that set
// after commit, and persisting an unseen aggregate is rejected as a
// programmer error.
package repository

import (
	"context"
	"fmt"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/storage"
)

// Codec converts between an aggregate and its persisted record payload.
type Codec[T domain.Aggregate] interface {
	Marshal(agg T) ([]byte, error)
	Unmarshal(rec storage.Record) (T, error)
}

// Repository persists one aggregate kind through the session it is bound to.
type Repository[T domain.Aggregate] struct {
	kind     string
	session  storage.Session
	codec    Codec[T]
	seen     []T
	seenByID map[string]T
}

// New binds a repository for the given aggregate kind to a session.
func New[T domain.Aggregate](kind string, session storage.Session, codec Codec[T]) *Repository[T] {
	return &Repository[T]{
		kind:     kind,
		session:  session,
		codec:    codec,
		seenByID: make(map[string]T),
	}
}

// Add stages a brand-new aggregate and marks it seen.
func (r *Repository[T]) Add(ctx context.Context, agg T) error {
	rec, err := r.record(agg)
	if err != nil {
		return err
	}
	if err := r.session.Insert(ctx, rec); err != nil {
		return fmt.Errorf("add %s: %w", r.kind, err)
	}
	r.markSeen(agg)
	return nil
}

// Get loads an aggregate by id and marks it seen. Reading a discarded
// aggregate fails with domain.ErrAggregateDiscarded.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	rec, err := r.session.Get(ctx, r.kind, id)
	if err != nil {
		return zero, err
	}
	if rec.Discarded {
		return zero, fmt.Errorf("%s %q: %w", r.kind, id, domain.ErrAggregateDiscarded)
	}
	agg, err := r.codec.Unmarshal(rec)
	if err != nil {
		return zero, fmt.Errorf("decode %s %q: %w", r.kind, id, err)
	}
	return r.markSeen(agg), nil
}

// GetBy loads the single aggregate matching the filters. It fails with
// domain.ErrEntityNotFound when nothing matches and
// domain.ErrMultipleEntitiesFound when more than one does.
func (r *Repository[T]) GetBy(ctx context.Context, filters ...storage.Filter) (T, error) {
	var zero T
	matches, err := r.Query(ctx, filters...)
	if err != nil {
		return zero, err
	}
	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("%s: %w", r.kind, domain.ErrEntityNotFound)
	case 1:
		return matches[0], nil
	default:
		return zero, fmt.Errorf("%s: %w", r.kind, domain.ErrMultipleEntitiesFound)
	}
}

// Query returns the non-discarded aggregates matching the filters, ordered
// by id, and marks each one seen.
func (r *Repository[T]) Query(ctx context.Context, filters ...storage.Filter) ([]T, error) {
	recs, err := r.session.Query(ctx, r.kind, filters...)
	if err != nil {
		return nil, err
	}
	var out []T
	for _, rec := range recs {
		if rec.Discarded {
			continue
		}
		agg, err := r.codec.Unmarshal(rec)
		if err != nil {
			return nil, fmt.Errorf("decode %s %q: %w", r.kind, rec.ID, err)
		}
		out = append(out, r.markSeen(agg))
	}
	return out, nil
}

// Persist stages the current state of an aggregate this repository has seen.
// Each persisted mutation advances the stored version by exactly one at
// commit time.
func (r *Repository[T]) Persist(ctx context.Context, agg T) error {
	if _, ok := r.seenByID[agg.ID()]; !ok {
		return fmt.Errorf("persist %s %q: %w", r.kind, agg.ID(), domain.ErrEntityNotSeen)
	}
	rec, err := r.record(agg)
	if err != nil {
		return err
	}
	if err := r.session.Update(ctx, rec); err != nil {
		return fmt.Errorf("persist %s: %w", r.kind, err)
	}
	return nil
}

// Seen returns the aggregates this repository has loaded or added, in
// first-seen order.
func (r *Repository[T]) Seen() []T {
	return r.seen
}

// SeenAggregates returns the seen set for event collection.
func (r *Repository[T]) SeenAggregates() []domain.Aggregate {
	out := make([]domain.Aggregate, len(r.seen))
	for i, agg := range r.seen {
		out[i] = agg
	}
	return out
}

// markSeen tracks an aggregate in first-seen order. An aggregate is owned by
// exactly one instance per unit of work: a repeat load returns the instance
// already seen, so recorded events are never split across copies.
func (r *Repository[T]) markSeen(agg T) T {
	if tracked, ok := r.seenByID[agg.ID()]; ok {
		return tracked
	}
	r.seenByID[agg.ID()] = agg
	r.seen = append(r.seen, agg)
	return agg
}

func (r *Repository[T]) record(agg T) (storage.Record, error) {
	data, err := r.codec.Marshal(agg)
	if err != nil {
		return storage.Record{}, fmt.Errorf("encode %s %q: %w", r.kind, agg.ID(), err)
	}
	return storage.Record{
		ID:        agg.ID(),
		Kind:      r.kind,
		Version:   agg.Version(),
		Discarded: agg.Discarded(),
		Data:      data,
	}, nil
}
