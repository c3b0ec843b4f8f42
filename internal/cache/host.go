package cache

import (
	"sync"
	"time"
)

// HostEntry is a cached hostname classification. Negative results are cached
// too: Verified=false entries keep repeated lookups for unverified domains
// off the database.
type HostEntry struct {
	WorkspaceID string
	DomainID    string
	Verified    bool
	cachedAt    time.Time
}

// HostCache is the process-local TTL cache in front of custom domain
// lookups. It is the only shared mutable state on the redirect path and is
// safe for concurrent use. It is not a security boundary: a stale verified
// entry may outlive an unverification by at most the TTL.
type HostCache struct {
	mu      sync.RWMutex
	entries map[string]HostEntry
	ttl     time.Duration

	now func() time.Time
}

// NewHostCache creates a HostCache whose entries go stale after ttl.
func NewHostCache(ttl time.Duration) *HostCache {
	return &HostCache{
		entries: make(map[string]HostEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the entry for a hostname and whether it is still fresh. A
// stale entry is reported as absent; the caller re-resolves and overwrites.
func (c *HostCache) Get(host string) (HostEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[host]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.cachedAt) > c.ttl {
		return HostEntry{}, false
	}
	return entry, true
}

// Put stores an entry for a hostname, stamping it with the current time.
func (c *HostCache) Put(host string, entry HostEntry) {
	entry.cachedAt = c.now()

	c.mu.Lock()
	c.entries[host] = entry
	c.mu.Unlock()
}

// Invalidate removes the entry for one hostname. External update paths call
// this when a domain is verified or removed, to bound staleness tighter
// than the TTL.
func (c *HostCache) Invalidate(host string) {
	c.mu.Lock()
	delete(c.entries, host)
	c.mu.Unlock()
}

// InvalidateAll clears the whole cache.
func (c *HostCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]HostEntry)
	c.mu.Unlock()
}

// Len returns the number of entries, fresh or stale.
func (c *HostCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
