// Package kvstore is the key-value cache behind position snapshots: opaque
// values with a time-to-live, replaced whole on every write.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a TTL-bounded key-value cache.
type Store interface {
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Ping(ctx context.Context) error
	Close() error
}
