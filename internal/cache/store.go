// Package cache implements the cache-aside layer in front of the trend,
// statistics and comparison computations. The backing store is a generic
// key-value abstraction with TTL and prefix deletion; store failures fail
// open so a broken cache never fails a request.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is the key-value boundary contract. Implementations must treat an
// expired key as a miss and tolerate concurrent writers: last write wins,
// which is acceptable because every cached value is recomputable.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// DeleteByPrefix removes every key starting with prefix and returns
	// the number of deleted keys.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}
