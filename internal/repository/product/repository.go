package product

import (
	"context"

	"storefront/internal/domain"
)

// PriceUpdate sets one product's price by name.
type PriceUpdate struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type Repository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByName(ctx context.Context, name string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpsertBatch(ctx context.Context, products []domain.Product) error
	UpdatePrices(ctx context.Context, updates []PriceUpdate) error
}
