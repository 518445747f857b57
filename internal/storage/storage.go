// Package storage provides on-device key-value blob storage. Values are
// opaque byte slices keyed by string; encoding is the caller's concern.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no value exists under the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is the persistence contract. Save overwrites any prior value,
// Load returns ErrNotFound for absent keys, Remove is a no-op for
// absent keys. There is no atomicity across keys.
type Store interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}
