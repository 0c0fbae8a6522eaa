package category

import (
	"context"

	"storefront/internal/domain"
)

// Repository reads the category listing derived from the product catalog.
type Repository interface {
	List(ctx context.Context) ([]domain.Category, error)
}
