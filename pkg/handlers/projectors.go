package handlers

import (
	"context"
	"fmt"

	"github.com/plaenen/catalog/pkg/catalog"
	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/identity"
	"github.com/plaenen/catalog/pkg/view"
)

// CatalogProjector maintains the catalog_products listing in the read model.
type CatalogProjector struct {
	store *view.Store
}

// NewCatalogProjector binds the projector to a read model store.
func NewCatalogProjector(store *view.Store) *CatalogProjector {
	return &CatalogProjector{store: store}
}

// Name identifies the projector in logs and metrics.
func (p *CatalogProjector) Name() string { return "catalog-projector" }

// Handle applies one product event to the listing.
func (p *CatalogProjector) Handle(ctx context.Context, evt domain.Event) error {
	switch e := evt.(type) {
	case catalog.ProductCreated:
		return p.store.UpsertProduct(ctx, view.ProductRow{
			ID:      e.ProductID,
			SKU:     e.SKU,
			Name:    e.Name,
			OwnerID: e.OwnerID,
			Price:   e.Price,
		})
	case catalog.ProductRenamed:
		return p.store.RenameProduct(ctx, e.ProductID, e.Name)
	case catalog.ProductPriceChanged:
		return p.store.RepriceProduct(ctx, e.ProductID, e.NewPrice)
	case catalog.ProductRetired:
		return p.store.RetireProduct(ctx, e.ProductID)
	default:
		return fmt.Errorf("unexpected event type %T", evt)
	}
}

// DirectoryProjector maintains the user_directory listing in the read model.
type DirectoryProjector struct {
	store *view.Store
}

// NewDirectoryProjector binds the projector to a read model store.
func NewDirectoryProjector(store *view.Store) *DirectoryProjector {
	return &DirectoryProjector{store: store}
}

// Name identifies the projector in logs and metrics.
func (p *DirectoryProjector) Name() string { return "directory-projector" }

// Handle applies one user event to the directory.
func (p *DirectoryProjector) Handle(ctx context.Context, evt domain.Event) error {
	switch e := evt.(type) {
	case identity.UserCreated:
		return p.store.UpsertUser(ctx, view.UserRow{
			ID:       e.UserID,
			Email:    e.Email,
			Username: e.Username,
			Active:   true,
		})
	case identity.UserEmailChanged:
		return p.store.SetUserEmail(ctx, e.UserID, e.NewEmail)
	case identity.UserDeactivated:
		return p.store.DeactivateUser(ctx, e.UserID)
	default:
		return fmt.Errorf("unexpected event type %T", evt)
	}
}
