// Package catalog holds the Product aggregate and its commands and events.
package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/plaenen/catalog/pkg/domain"
)

// ErrInvalidPrice is returned when a price is zero or negative.
var ErrInvalidPrice = errors.New("price must be positive")

// Product is a catalog listing owned by a user.
type Product struct {
	domain.AggregateRoot

	sku         string
	name        string
	description string
	ownerID     string
	price       decimal.Decimal
}

// NewProduct creates a product at version 1 and records ProductCreated.
func NewProduct(id, sku, name, description, ownerID string, price decimal.Decimal) (*Product, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	p := &Product{
		AggregateRoot: domain.NewAggregateRoot(id),
		sku:           sku,
		name:          name,
		description:   description,
		ownerID:       ownerID,
		price:         price,
	}
	p.Record(ProductCreated{
		ProductID: id,
		SKU:       sku,
		Name:      name,
		OwnerID:   ownerID,
		Price:     price,
	})
	return p, nil
}

// SKU returns the product's stock keeping unit.
func (p *Product) SKU() string { return p.sku }

// Name returns the product's display name.
func (p *Product) Name() string { return p.name }

// Description returns the product's description.
func (p *Product) Description() string { return p.description }

// OwnerID returns the id of the owning user.
func (p *Product) OwnerID() string { return p.ownerID }

// Price returns the product's price.
func (p *Product) Price() decimal.Decimal { return p.price }

// Rename changes the display name.
func (p *Product) Rename(name string) error {
	if err := p.EnsureActive(); err != nil {
		return err
	}
	if name == p.name {
		return nil
	}
	p.name = name
	p.Record(ProductRenamed{ProductID: p.ID(), Name: name})
	return nil
}

// ChangePrice sets a new positive price.
func (p *Product) ChangePrice(price decimal.Decimal) error {
	if err := p.EnsureActive(); err != nil {
		return err
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if price.Equal(p.price) {
		return nil
	}
	old := p.price
	p.price = price
	p.Record(ProductPriceChanged{ProductID: p.ID(), OldPrice: old, NewPrice: price})
	return nil
}

// Retire discards the product. All further reads and mutations fail.
func (p *Product) Retire() error {
	if err := p.EnsureActive(); err != nil {
		return err
	}
	p.Discard()
	p.Record(ProductRetired{ProductID: p.ID(), OwnerID: p.ownerID})
	return nil
}
