package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"storefront/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	now    func() time.Time
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger, now: time.Now}
}

// Create prices the items from the products table inside the insert
// transaction, so the stored total matches the catalog at that moment.
func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var total int64
	for _, item := range in.Items {
		var price int64
		err := tx.QueryRow(ctx, `SELECT price FROM products WHERE name = $1 FOR SHARE`, item.ProductName).Scan(&price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				r.logger.Printf("order repo: create product=%s missing", item.ProductName)
				return nil, fmt.Errorf("product %q: %w", item.ProductName, domain.ErrMissingProducts)
			}
			return nil, err
		}
		total += price * int64(item.Quantity)
	}

	o := domain.Order{
		CustomerName: in.CustomerName,
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		Notes:        in.Notes,
		TotalAmount:  total,
		Timestamp:    r.now().UnixNano(),
		Items:        in.Items,
	}
	const insertOrder = `
INSERT INTO orders (customer_name, phone_number, address, notes, total_amount, timestamp_ns)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`
	if err := tx.QueryRow(ctx, insertOrder, o.CustomerName, o.PhoneNumber, o.Address, o.Notes, o.TotalAmount, o.Timestamp).Scan(&o.ID); err != nil {
		r.logger.Printf("order repo: insert error=%v", err)
		return nil, err
	}
	for i, item := range in.Items {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, position, product_name, quantity)
VALUES ($1, $2, $3, $4)
`, o.ID, i, item.ProductName, item.Quantity); err != nil {
			r.logger.Printf("order repo: insert item order_id=%d product=%s error=%v", o.ID, item.ProductName, err)
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Printf("order repo: created id=%d total=%d items=%d", o.ID, o.TotalAmount, len(o.Items))
	return &o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `
SELECT id, customer_name, phone_number, address, notes, total_amount, timestamp_ns
FROM orders
WHERE id = $1
`
	var o domain.Order
	err := r.pool.QueryRow(ctx, q, id).Scan(&o.ID, &o.CustomerName, &o.PhoneNumber, &o.Address, &o.Notes, &o.TotalAmount, &o.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Printf("order repo: get id=%d not found", id)
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("order repo: get id=%d error=%v", id, err)
		return nil, err
	}
	items, err := r.items(ctx, `WHERE order_id = $1`, id)
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

// List returns every order, newest first.
func (r *postgresRepo) List(ctx context.Context) ([]domain.Order, error) {
	const q = `
SELECT id, customer_name, phone_number, address, notes, total_amount, timestamp_ns
FROM orders
ORDER BY timestamp_ns DESC, id DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Printf("order repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	result := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CustomerName, &o.PhoneNumber, &o.Address, &o.Notes, &o.TotalAmount, &o.Timestamp); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := r.items(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Items = items[result[i].ID]
	}
	r.logger.Printf("order repo: list count=%d", len(result))
	return result, nil
}

func (r *postgresRepo) items(ctx context.Context, where string, args ...any) (map[int64][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT order_id, product_name, quantity FROM order_items `+where+` ORDER BY order_id, position`, args...)
	if err != nil {
		r.logger.Printf("order repo: items error=%v", err)
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]domain.OrderItem)
	for rows.Next() {
		var (
			orderID int64
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductName, &item.Quantity); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], item)
	}
	return out, rows.Err()
}
