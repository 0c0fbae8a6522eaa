package kv

import "context"

// Store is a small named-slot store. Get returns domain.ErrNotFound for a
// slot that was never written or has been deleted. Set always replaces.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
