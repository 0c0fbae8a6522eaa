package category

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/migrate"
)

func TestPostgres_ListSummarizesProducts(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer pool.Close()
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE order_items, orders, products RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO products (name, category, unit, price)
		VALUES ('Milk', 'Milk', '1L', 50), ('Toned Milk', 'Milk', '1L', 44), ('Paneer', 'Cheese', '200g', 95)
	`); err != nil {
		t.Fatalf("insert products: %v", err)
	}

	list, err := NewPostgres(pool).List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(list))
	}
	if list[0].Name != "Cheese" || list[0].ProductCount != 1 {
		t.Fatalf("unexpected first category %+v", list[0])
	}
	if list[1].Name != "Milk" || list[1].ProductCount != 2 || list[1].MinPrice != 44 || list[1].MaxPrice != 50 {
		t.Fatalf("unexpected second category %+v", list[1])
	}
}
