package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/plaenen/catalog/pkg/domain"
)

// ProductCreated is recorded when a product is listed.
type ProductCreated struct {
	domain.EventMarker

	ProductID string
	SKU       string
	Name      string
	OwnerID   string
	Price     decimal.Decimal
}

func (ProductCreated) MessageName() string { return "catalog.ProductCreated" }

// ProductRenamed is recorded when a product's display name changes.
type ProductRenamed struct {
	domain.EventMarker

	ProductID string
	Name      string
}

func (ProductRenamed) MessageName() string { return "catalog.ProductRenamed" }

// ProductPriceChanged is recorded when a product's price changes.
type ProductPriceChanged struct {
	domain.EventMarker

	ProductID string
	OldPrice  decimal.Decimal
	NewPrice  decimal.Decimal
}

func (ProductPriceChanged) MessageName() string { return "catalog.ProductPriceChanged" }

// ProductRetired is recorded when a product is soft-deleted.
type ProductRetired struct {
	domain.EventMarker

	ProductID string
	OwnerID   string
}

func (ProductRetired) MessageName() string { return "catalog.ProductRetired" }
