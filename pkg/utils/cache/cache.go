// Package cache defines a keyed read-through cache. The track resolver uses
// it to keep resolved geometry per track id.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned when no loader can provide a value
var ErrCacheMiss = errors.New("cache miss")

type Cache[K comparable, V any] interface {
	// Get returns the cached value or loads it
	Get(ctx context.Context, key K) (*V, error)
	Invalidate(ctx context.Context, key K)
	// InvalidateAll drops every entry, e.g. after a catalog reload
	InvalidateAll(ctx context.Context)
}
