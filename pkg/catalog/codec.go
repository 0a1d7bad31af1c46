package catalog

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/plaenen/catalog/pkg/domain"
	"github.com/plaenen/catalog/pkg/storage"
)

// Kind is the storage kind for products.
const Kind = "product"

type productState struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	OwnerID     string          `json:"owner_id"`
	Price       decimal.Decimal `json:"price"`
}

// Codec converts products to and from their persisted JSON payload.
type Codec struct{}

func (Codec) Marshal(p *Product) ([]byte, error) {
	return json.Marshal(productState{
		SKU:         p.sku,
		Name:        p.name,
		Description: p.description,
		OwnerID:     p.ownerID,
		Price:       p.price,
	})
}

func (Codec) Unmarshal(rec storage.Record) (*Product, error) {
	var state productState
	if err := json.Unmarshal(rec.Data, &state); err != nil {
		return nil, err
	}
	return &Product{
		AggregateRoot: domain.RehydrateAggregateRoot(rec.ID, rec.Version, rec.Discarded),
		sku:           state.SKU,
		name:          state.Name,
		description:   state.Description,
		ownerID:       state.OwnerID,
		price:         state.Price,
	}, nil
}
