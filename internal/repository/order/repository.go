package order

import (
	"context"

	"storefront/internal/domain"
)

// CreateInput is an order submission. Notes is stored verbatim, nil when
// the customer left none and no payment block was attached.
type CreateInput struct {
	CustomerName string
	PhoneNumber  string
	Address      string
	Notes        *string
	Items        []domain.OrderItem
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}
