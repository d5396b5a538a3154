package cachestore

import (
	"context"
	"time"
)

// Store is the key-value cache the registrar persists permission snapshots
// into. It is a shared, out-of-process resource in production (Redis); all
// writers under the same key follow last-write-wins semantics.
type Store interface {
	// Get retrieves the value for key. The second return is false when the
	// key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the given TTL. A zero TTL means no
	// expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
