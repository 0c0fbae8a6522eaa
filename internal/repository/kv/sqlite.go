package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"storefront/internal/domain"
)

// SQLiteStore keeps slots in a local sqlite file, used for per-machine
// state such as the admin CLI's last-seen marker.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if needed) the sqlite file at dsn.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	const schema = `
CREATE TABLE IF NOT EXISTS kv_slots(
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  updated_at TEXT DEFAULT CURRENT_TIMESTAMP
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure kv schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.GetContext(ctx, &v, `SELECT value FROM kv_slots WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_slots(key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`, key, value)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_slots WHERE key = ?`, key)
	return err
}
