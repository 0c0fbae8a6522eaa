package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

type productWriter interface {
	UpsertBatch(ctx context.Context, products []domain.Product) error
}

// Catalog is the starter dairy catalog used for manual testing.
func Catalog() []domain.Product {
	return []domain.Product{
		{Name: "Full Cream Milk", Category: "Milk", Unit: "1L", Price: 68, Description: "Farm fresh, delivered chilled"},
		{Name: "Toned Milk", Category: "Milk", Unit: "1L", Price: 56},
		{Name: "Buffalo Milk", Category: "Milk", Unit: "1L", Price: 80},
		{Name: "Curd", Category: "Curd & Buttermilk", Unit: "500g", Price: 45},
		{Name: "Buttermilk", Category: "Curd & Buttermilk", Unit: "500ml", Price: 25},
		{Name: "Paneer", Category: "Paneer & Cheese", Unit: "200g", Price: 95, Description: "Soft, made every morning"},
		{Name: "Cow Ghee", Category: "Ghee & Butter", Unit: "500ml", Price: 420},
		{Name: "White Butter", Category: "Ghee & Butter", Unit: "200g", Price: 140},
	}
}

// Apply upserts the starter catalog. It is idempotent because products are
// keyed by name.
func Apply(ctx context.Context, w productWriter) error {
	if err := w.UpsertBatch(ctx, Catalog()); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	return nil
}
