package kv

import (
	"context"
	"errors"
	"io"
	"log"

	"storefront/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// NewPostgres returns a Store backed by the kv_slots table.
func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresStore{pool: pool, logger: logger}
}

func (s *postgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM kv_slots WHERE key = $1`
	var v []byte
	if err := s.pool.QueryRow(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		s.logger.Printf("kv store: get key=%s error=%v", key, err)
		return nil, err
	}
	return v, nil
}

func (s *postgresStore) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO kv_slots (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
`
	if _, err := s.pool.Exec(ctx, q, key, value); err != nil {
		s.logger.Printf("kv store: set key=%s error=%v", key, err)
		return err
	}
	return nil
}

func (s *postgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_slots WHERE key = $1`, key); err != nil {
		s.logger.Printf("kv store: delete key=%s error=%v", key, err)
		return err
	}
	return nil
}
