package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/identity"
	"github.com/plaenen/catalog/pkg/storage"
	"github.com/plaenen/catalog/pkg/unitofwork"
	"github.com/plaenen/catalog/pkg/view"
)

// Offboarding retires every product owned by a deactivated user. It runs
// after the deactivation committed, in its own unit of work: the triggering
// command's session is already closed. Events committed here are not
// redispatched through the bus, so the handler updates the read model
// listing itself.
type Offboarding struct {
	factory *unitofwork.Factory
	store   *view.Store
}

// NewOffboarding binds the handler to a unit of work factory and the read
// model store.
func NewOffboarding(factory *unitofwork.Factory, store *view.Store) *Offboarding {
	return &Offboarding{factory: factory, store: store}
}

// Name identifies the handler in logs and metrics.
func (o *Offboarding) Name() string { return "owner-offboarding" }

// Handle retires all active products of the deactivated user.
func (o *Offboarding) Handle(ctx context.Context, evt domain.Event) error {
	e, ok := evt.(identity.UserDeactivated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", evt)
	}

	uow := o.factory.New()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Close(ctx)

	products, err := uow.Products().Query(ctx, storage.Filter{Field: "owner_id", Value: e.UserID})
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}

	for _, p := range products {
		if err := p.Retire(); err != nil {
			return err
		}
		if err := uow.Products().Persist(ctx, p); err != nil {
			return err
		}
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}

	for _, p := range products {
		if err := o.store.RetireProduct(ctx, p.ID()); err != nil {
			// The write side committed; a listing that never made it into
			// the read model is not worth failing the offboarding over.
			if errors.Is(err, domain.ErrEntityNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}
