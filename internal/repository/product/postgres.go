package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"storefront/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const upsertSQL = `
INSERT INTO products (name, category, unit, description, price, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, now())
ON CONFLICT (name) DO UPDATE SET
    category = EXCLUDED.category,
    unit = EXCLUDED.unit,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    updated_at = EXCLUDED.updated_at
RETURNING updated_at
`

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	const q = `
SELECT name, category, unit, COALESCE(description, ''), price, updated_at
FROM products
ORDER BY category, name
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.Name, &p.Category, &p.Unit, &p.Description, &p.Price, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	r.logger.Printf("product repo: list count=%d", len(result))
	return result, nil
}

func (r *postgresRepo) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	const q = `
SELECT name, category, unit, COALESCE(description, ''), price, updated_at
FROM products
WHERE name = $1
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, name).Scan(&p.Name, &p.Category, &p.Unit, &p.Description, &p.Price, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("product repo: get name=%s not found", name)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("product repo: get name=%s error=%v", name, err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res := product
	err := r.pool.QueryRow(ctx, upsertSQL,
		product.Name,
		product.Category,
		product.Unit,
		product.Description,
		product.Price,
	).Scan(&res.UpdatedAt)
	if err != nil {
		r.logger.Printf("product repo: upsert name=%s error=%v", product.Name, err)
		return nil, err
	}
	r.logger.Printf("product repo: upserted name=%s price=%d", res.Name, res.Price)
	return &res, nil
}

// UpsertBatch writes all products in one transaction keyed by name.
func (r *postgresRepo) UpsertBatch(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertSQL, p.Name, p.Category, p.Unit, p.Description, p.Price)
	}
	br := tx.SendBatch(ctx, batch)
	for _, p := range products {
		if _, err := br.Exec(); err != nil {
			br.Close()
			r.logger.Printf("product repo: batch upsert name=%s error=%v", p.Name, err)
			return fmt.Errorf("upsert %q: %w", p.Name, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		r.logger.Printf("product repo: batch commit count=%d error=%v", len(products), err)
		return err
	}
	r.logger.Printf("product repo: batch upserted count=%d", len(products))
	return nil
}

// UpdatePrices applies every update or none. An unknown name fails the
// whole set with domain.ErrNotFound.
func (r *postgresRepo) UpdatePrices(ctx context.Context, updates []PriceUpdate) error {
	const q = `UPDATE products SET price = $2, updated_at = now() WHERE name = $1`
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, u := range updates {
		tag, err := tx.Exec(ctx, q, u.Name, u.Price)
		if err != nil {
			r.logger.Printf("product repo: update price name=%s error=%v", u.Name, err)
			return err
		}
		if tag.RowsAffected() == 0 {
			r.logger.Printf("product repo: update price name=%s not found", u.Name)
			return fmt.Errorf("product %q: %w", u.Name, domain.ErrNotFound)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.logger.Printf("product repo: updated prices count=%d", len(updates))
	return nil
}
