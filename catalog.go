package llmgate

import "sync"

// QuotaEntry is a named quota tier assigned to an API key.
type QuotaEntry struct {
	// Name is a human-readable tier label, e.g. "Default Tier".
	Name string

	// Quota is the per-window allowance for the key.
	Quota Quota
}

// Catalog is a concurrency-safe registry mapping API keys to quota tiers.
// Keys absent from the catalog are unknown; how unknown keys are treated
// is the caller's policy. The gateway admits them without rate limiting
// unless configured to reject them.
type Catalog struct {
	mu   sync.RWMutex
	keys map[string]QuotaEntry
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{keys: make(map[string]QuotaEntry)}
}

// DefaultCatalog returns a catalog preloaded with the built-in test keys.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Set("test-key-1", QuotaEntry{
		Name:  "Default Tier",
		Quota: Quota{RPM: 500, InputTPM: 60000, OutputTPM: 20000},
	})
	c.Set("test-key-2", QuotaEntry{
		Name:  "High-Throughput Tier",
		Quota: Quota{RPM: 1000, InputTPM: 200000, OutputTPM: 80000},
	})
	c.Set("unlimited-key", QuotaEntry{
		Name:  "Unlimited Test",
		Quota: Quota{RPM: 999999, InputTPM: 99999999, OutputTPM: 99999999},
	})
	c.Set("free-tier-key", QuotaEntry{
		Name:  "Free Tier",
		Quota: Quota{RPM: 20, InputTPM: 4000, OutputTPM: 1000},
	})
	return c
}

// Lookup returns the quota entry for key and whether the key is known.
func (c *Catalog) Lookup(key string) (QuotaEntry, bool) {
	c.mu.RLock()
	entry, ok := c.keys[key]
	c.mu.RUnlock()
	return entry, ok
}

// Set adds or replaces the quota entry for key.
func (c *Catalog) Set(key string, entry QuotaEntry) {
	c.mu.Lock()
	c.keys[key] = entry
	c.mu.Unlock()
}

// Delete removes key from the catalog.
func (c *Catalog) Delete(key string) {
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
}

// Len returns the number of registered keys.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// QuotaFunc adapts the catalog for WithQuotaFunc, so a limiter resolves
// each key's quota at admission time and picks up catalog changes without
// a restart.
func (c *Catalog) QuotaFunc() func(key string) (Quota, bool) {
	return func(key string) (Quota, bool) {
		entry, ok := c.Lookup(key)
		return entry.Quota, ok
	}
}
