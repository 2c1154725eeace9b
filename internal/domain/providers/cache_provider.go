package providers

import (
	"context"
)

// CacheProvider is the byte-level cache used for provider responses and
// whole search result sets. Values are opaque JSON; every entry carries
// a TTL so stale place data ages out on its own.
type CacheProvider interface {
	// Get returns the cached value, or an error on miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// Delete drops a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
