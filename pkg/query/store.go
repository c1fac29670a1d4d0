// Package query caches remote query results per key with stale times,
// request coalescing and resource-wide invalidation.
package query

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss indicates that a cache key was not found.
var ErrCacheMiss = errors.New("query cache key not found")

// Store is a pluggable byte-oriented backend for query results.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}
