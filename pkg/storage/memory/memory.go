// Package memory provides an in-process storage engine with the same
// optimistic-concurrency contract as the postgres engine: two sessions that
// load the same record and both commit a change resolve deterministically,
// with the loser failing on domain.ErrConcurrencyConflict.
//
// It backs the unit tests and the quickstart example.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/storage"
)

// Engine is a concurrency-safe in-memory record store.
type Engine struct {
	mu        sync.Mutex
	committed map[string]storage.Record // key: kind/id
}

// NewEngine creates an empty engine.
func NewEngine() *Engine {
	return &Engine{committed: make(map[string]storage.Record)}
}

// NewSession returns a fresh session. Staged writes stay invisible to other
// sessions until Commit.
func (e *Engine) NewSession(ctx context.Context) (storage.Session, error) {
	return &session{
		engine:  e,
		inserts: make(map[string]storage.Record),
		updates: make(map[string]*stagedUpdate),
	}, nil
}

func key(kind, id string) string {
	return kind + "/" + id
}

type stagedUpdate struct {
	rec   storage.Record
	bumps int64 // number of persisted mutations in this session
}

type session struct {
	engine  *Engine
	inserts map[string]storage.Record
	updates map[string]*stagedUpdate
	order   []string // staged keys in write order, for deterministic commits
	closed  bool
}

func (s *session) Insert(ctx context.Context, rec storage.Record) error {
	if s.closed {
		return errSessionClosed
	}
	k := key(rec.Kind, rec.ID)
	s.engine.mu.Lock()
	_, exists := s.engine.committed[k]
	s.engine.mu.Unlock()
	if exists {
		return fmt.Errorf("insert %s %q: already exists", rec.Kind, rec.ID)
	}
	if _, staged := s.inserts[k]; staged {
		return fmt.Errorf("insert %s %q: already staged", rec.Kind, rec.ID)
	}
	s.inserts[k] = rec
	s.order = append(s.order, k)
	return nil
}

func (s *session) Update(ctx context.Context, rec storage.Record) error {
	if s.closed {
		return errSessionClosed
	}
	k := key(rec.Kind, rec.ID)
	if _, staged := s.inserts[k]; staged {
		// Mutation of a record created in this same session.
		s.inserts[k] = rec
		return nil
	}
	if up, staged := s.updates[k]; staged {
		up.rec = rec
		up.bumps++
		return nil
	}
	s.updates[k] = &stagedUpdate{rec: rec, bumps: 1}
	s.order = append(s.order, k)
	return nil
}

func (s *session) Get(ctx context.Context, kind, id string) (storage.Record, error) {
	if s.closed {
		return storage.Record{}, errSessionClosed
	}
	k := key(kind, id)
	if rec, staged := s.inserts[k]; staged {
		return rec, nil
	}
	if up, staged := s.updates[k]; staged {
		return up.rec, nil
	}
	s.engine.mu.Lock()
	rec, ok := s.engine.committed[k]
	s.engine.mu.Unlock()
	if !ok {
		return storage.Record{}, fmt.Errorf("%s %q: %w", kind, id, domain.ErrEntityNotFound)
	}
	return rec, nil
}

func (s *session) Query(ctx context.Context, kind string, filters ...storage.Filter) ([]storage.Record, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	merged := make(map[string]storage.Record)
	s.engine.mu.Lock()
	for k, rec := range s.engine.committed {
		if rec.Kind == kind {
			merged[k] = rec
		}
	}
	s.engine.mu.Unlock()
	for k, rec := range s.inserts {
		if rec.Kind == kind {
			merged[k] = rec
		}
	}
	for k, up := range s.updates {
		if up.rec.Kind == kind {
			merged[k] = up.rec
		}
	}

	var out []storage.Record
	for _, rec := range merged {
		ok, err := matches(rec, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Commit applies staged writes atomically. An update whose record changed
// under it since load loses with a ConflictError; nothing is applied then.
// A cancelled or expired context fails the commit, matching the postgres
// engine's behavior for a handler that overran its deadline.
func (s *session) Commit(ctx context.Context) error {
	if s.closed {
		return errSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()

	for k, up := range s.updates {
		current, ok := s.engine.committed[k]
		if !ok {
			return fmt.Errorf("%s %q: %w", up.rec.Kind, up.rec.ID, domain.ErrEntityNotFound)
		}
		if current.Version != up.rec.Version {
			return &domain.ConflictError{Kind: up.rec.Kind, ID: up.rec.ID}
		}
	}

	for _, k := range s.order {
		if rec, staged := s.inserts[k]; staged {
			s.engine.committed[k] = rec
			continue
		}
		up := s.updates[k]
		rec := up.rec
		rec.Version += up.bumps
		s.engine.committed[k] = rec
	}

	s.clear()
	return nil
}

// Rollback discards staged writes. Calling it after Commit is a no-op.
func (s *session) Rollback(ctx context.Context) error {
	s.clear()
	return nil
}

func (s *session) clear() {
	s.inserts = nil
	s.updates = nil
	s.order = nil
	s.closed = true
}

var errSessionClosed = fmt.Errorf("session is closed")

func matches(rec storage.Record, filters []storage.Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Data, &payload); err != nil {
		return false, fmt.Errorf("decode %s %q: %w", rec.Kind, rec.ID, err)
	}
	for _, f := range filters {
		value, ok := payload[f.Field]
		if !ok || fmt.Sprint(value) != f.Value {
			return false, nil
		}
	}
	return true, nil
}
