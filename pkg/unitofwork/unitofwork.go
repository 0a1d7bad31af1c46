// Package unitofwork owns the transaction boundary of one logical operation:
// a single storage session, the repositories bound to it, and the collection
// of events the operation's aggregates produced.
package unitofwork

import (
	"context"
	"errors"
	"fmt"

	"github.com/plaenen/catalog/pkg/catalog"
	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/identity"
	"github.com/plaenen/catalog/pkg/repository"
	"github.com/plaenen/catalog/pkg/storage"
)

// eventSource is the slice of repository behaviour needed to collect
// pending events.
type eventSource interface {
	SeenAggregates() []domain.Aggregate
}

// Factory produces independent unit of work values over one storage engine.
type Factory struct {
	engine storage.Factory
}

// NewFactory wraps a storage engine.
func NewFactory(engine storage.Factory) *Factory {
	return &Factory{engine: engine}
}

// New returns a unit of work that has not been begun yet.
func (f *Factory) New() *UnitOfWork {
	return &UnitOfWork{engine: f.engine}
}

// UnitOfWork owns one session and the repositories bound to it. The session
// is never shared with another unit of work.
type UnitOfWork struct {
	engine    storage.Factory
	session   storage.Session
	users     *repository.Repository[*identity.User]
	products  *repository.Repository[*catalog.Product]
	sources   []eventSource
	committed bool
}

// Begin opens a fresh session and binds the repositories to it.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.session != nil {
		return errors.New("unit of work already begun")
	}
	session, err := u.engine.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	u.session = session
	u.users = repository.New(identity.Kind, session, identity.Codec{})
	u.products = repository.New(catalog.Kind, session, catalog.Codec{})
	u.sources = []eventSource{u.users, u.products}
	return nil
}

// Users returns the user repository bound to this unit of work.
func (u *UnitOfWork) Users() *repository.Repository[*identity.User] {
	return u.users
}

// Products returns the product repository bound to this unit of work.
func (u *UnitOfWork) Products() *repository.Repository[*catalog.Product] {
	return u.products
}

// Commit makes all staged writes durable. Calling it again with no further
// changes is harmless and has no additional effect.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.session == nil {
		return errors.New("unit of work not begun")
	}
	if u.committed {
		return nil
	}
	if err := u.session.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	u.committed = true
	return nil
}

// Close releases the session, rolling back first unless Commit was called.
// No partial writes ever escape a failed operation.
func (u *UnitOfWork) Close(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	if u.committed {
		return nil
	}
	if err := u.session.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// CollectNewEvents drains pending events from every aggregate seen by the
// bound repositories: repositories in binding order, aggregates in
// first-seen order, events FIFO per aggregate. A second call with no
// intervening mutation returns nothing.
func (u *UnitOfWork) CollectNewEvents() []domain.Event {
	var events []domain.Event
	for _, src := range u.sources {
		for _, agg := range src.SeenAggregates() {
			events = append(events, agg.PopEvents()...)
		}
	}
	return events
}
