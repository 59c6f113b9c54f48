package security

import (
	"context"
	"sync"
	"time"
)

// DEKCache is a time-bounded cache of unwrapped DEKs keyed by org.
// Caching raw DEKs in memory is a deliberate tradeoff against
// re-unwrapping on every request; the TTL bounds how long the raw bytes
// stay resident. Constructed once at startup with an injected TTL and
// clock so tests can control time.
type DEKCache struct {
	keys *KeyStore
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	dek     []byte
	expires time.Time
}

// NewDEKCache builds a cache over the given KeyStore. A nil now func
// defaults to time.Now.
func NewDEKCache(keys *KeyStore, ttl time.Duration, now func() time.Time) *DEKCache {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 20 * time.Minute
	}
	return &DEKCache{
		keys:    keys,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the org's unwrapped DEK, loading and caching it when
// absent or expired. The returned slice is shared between concurrent
// readers and must be treated as read-only.
func (c *DEKCache) Get(ctx context.Context, orgID string) ([]byte, error) {
	c.mu.Lock()
	if e, ok := c.entries[orgID]; ok {
		if c.now().Before(e.expires) {
			dek := e.dek
			c.mu.Unlock()
			return dek, nil
		}
		// The slice may still be referenced by an in-flight request, so
		// eviction drops the reference and leaves the wipe to GC.
		delete(c.entries, orgID)
	}
	c.mu.Unlock()

	dek, err := c.keys.LoadDEK(ctx, orgID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[orgID] = &cacheEntry{dek: dek, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return dek, nil
}

// Invalidate drops any cached entry for the org. Rotation calls this
// synchronously with the rewrap.
func (c *DEKCache) Invalidate(orgID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, orgID)
}

// Len reports the number of live entries; used by tests and telemetry.
func (c *DEKCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
