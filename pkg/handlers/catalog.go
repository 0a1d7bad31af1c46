package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/plaenen/catalog/pkg/catalog"
	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/unitofwork"
)

// CreateProduct lists a new product. The owner must exist and be active;
// loading a deactivated owner fails with domain.ErrAggregateDiscarded.
type CreateProduct struct{}

func (CreateProduct) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, c domain.Command) error {
	cmd, ok := c.(catalog.CreateProduct)
	if !ok {
		return fmt.Errorf("unexpected command type %T", c)
	}

	if _, err := uow.Users().Get(ctx, cmd.OwnerID); err != nil {
		return fmt.Errorf("owner %q: %w", cmd.OwnerID, err)
	}

	id := cmd.ProductID
	if id == "" {
		id = uuid.NewString()
	}

	product, err := catalog.NewProduct(id, cmd.SKU, cmd.Name, cmd.Description, cmd.OwnerID, cmd.Price)
	if err != nil {
		return err
	}
	if err := uow.Products().Add(ctx, product); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

// RenameProduct changes a product's display name.
type RenameProduct struct{}

func (RenameProduct) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, c domain.Command) error {
	cmd, ok := c.(catalog.RenameProduct)
	if !ok {
		return fmt.Errorf("unexpected command type %T", c)
	}
	return mutateProduct(ctx, uow, cmd.ProductID, func(p *catalog.Product) error {
		return p.Rename(cmd.Name)
	})
}

// ChangeProductPrice sets a new price on a product.
type ChangeProductPrice struct{}

func (ChangeProductPrice) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, c domain.Command) error {
	cmd, ok := c.(catalog.ChangeProductPrice)
	if !ok {
		return fmt.Errorf("unexpected command type %T", c)
	}
	return mutateProduct(ctx, uow, cmd.ProductID, func(p *catalog.Product) error {
		return p.ChangePrice(cmd.Price)
	})
}

// RetireProduct soft-deletes a product.
type RetireProduct struct{}

func (RetireProduct) Handle(ctx context.Context, uow *unitofwork.UnitOfWork, c domain.Command) error {
	cmd, ok := c.(catalog.RetireProduct)
	if !ok {
		return fmt.Errorf("unexpected command type %T", c)
	}
	return mutateProduct(ctx, uow, cmd.ProductID, (*catalog.Product).Retire)
}

func mutateProduct(ctx context.Context, uow *unitofwork.UnitOfWork, id string, mutate func(*catalog.Product) error) error {
	product, err := uow.Products().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := mutate(product); err != nil {
		return err
	}
	if err := uow.Products().Persist(ctx, product); err != nil {
		return err
	}
	return uow.Commit(ctx)
}
