// Package cache provides content-addressed caching for instrumented source
// and rendered scene artifacts.
//
// Backends:
//   - FileCache: entries under a local directory (CLI and single-host serve)
//   - RedisCache: shared entries for multi-instance hosts
//   - MemoryCache: in-process map, used by tests and short-lived sessions
//   - NullCache: caching disabled
//
// Keys are produced by a Keyer so that every backend sees the same layout:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.InstrumentKey("/App.tsx", cache.InstrumentKeyOpts{TextHash: cache.Hash(text)})
//	data, hit, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry type.
const (
	// TTLInstrument is long: an entry is keyed by the exact text, so it
	// never goes stale, it only stops being asked for.
	TTLInstrument = 7 * 24 * time.Hour

	// TTLArtifact bounds rendered scene diagrams.
	TTLArtifact = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the cached bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
