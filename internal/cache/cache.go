// Package cache provides the read cache used by the ledger layer.
//
// Cached read results live for the lifetime of the underlying data:
// every write purges the affected entries immediately rather than
// waiting for the TTL. The TTL and the janitor only bound memory use.
package cache

import (
	"context"
	"time"
)

// Cache is a generic read cache keyed by request string.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)

	// PurgePrefix removes every entry whose key starts with prefix.
	// Used to invalidate all cached reads for one user after a write.
	PurgePrefix(prefix string)

	Size() int
}

// Cleaner is implemented by caches that support expired-entry cleanup.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans expired entries from registered caches.
type Janitor struct {
	caches []Cleaner
}

func NewJanitor() *Janitor {
	return &Janitor{}
}

// Register adds a cache to the janitor's cleanup rotation.
func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Run cleans expired entries every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, c := range j.caches {
				c.CleanExpired()
			}
		case <-ctx.Done():
			return nil
		}
	}
}
