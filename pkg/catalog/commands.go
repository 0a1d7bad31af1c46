package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/plaenen/catalog/pkg/domain"
)

// CreateProduct lists a new product for an active owner. ProductID is
// optional; the handler assigns one when empty.
type CreateProduct struct {
	domain.CommandMarker

	ProductID   string
	SKU         string
	Name        string
	Description string
	OwnerID     string
	Price       decimal.Decimal
}

func (CreateProduct) MessageName() string { return "catalog.CreateProduct" }

// RenameProduct changes a product's display name.
type RenameProduct struct {
	domain.CommandMarker

	ProductID string
	Name      string
}

func (RenameProduct) MessageName() string { return "catalog.RenameProduct" }

// ChangeProductPrice sets a new price on a product.
type ChangeProductPrice struct {
	domain.CommandMarker

	ProductID string
	Price     decimal.Decimal
}

func (ChangeProductPrice) MessageName() string { return "catalog.ChangeProductPrice" }

// RetireProduct soft-deletes a product.
type RetireProduct struct {
	domain.CommandMarker

	ProductID string
}

func (RetireProduct) MessageName() string { return "catalog.RetireProduct" }
