// Package cache provides an L1 in-process denial cache that wraps any Limiter.
//
// A saturated tenant keeps sending traffic after its first 429, and every one
// of those requests costs a store round-trip just to be denied again. The
// LocalCache remembers denials and serves repeats locally (~50ns) until the
// denial's RetryAfter (or the configured TTL, whichever is smaller) expires.
//
//	Request → L1 denial cache (in-process, ~50ns) → shared store (~1ms) → Decision
//
// Allowed requests always go through to the inner limiter: admission consumes
// quota, and quota lives in the shared store, so allows cannot be served from
// process-local state. The cache is therefore an opt-in shield for denial
// storms, not a general result cache.
//
// Usage:
//
//	baseLimiter, _ := llmgate.NewHybridSlidingWindow(quota, llmgate.WithRedis(client))
//	limiter := cache.New(baseLimiter, cache.WithTTL(time.Second))
//	// limiter implements llmgate.Limiter
//	result, err := limiter.Allow(ctx, "api-key", usage)
package cache

import (
	"context"
	"sync"
	"time"

	llmgate "github.com/krishna-kudari/llmgate"
)

// CacheOption configures the LocalCache.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	ttl     time.Duration
	maxKeys int
}

// WithTTL caps how long a denial may be served locally. After this duration
// the next request for that key goes back to the backend. Lower values =
// more accurate, higher values = less store load. Default: 1s.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *cacheConfig) { c.ttl = ttl }
}

// WithMaxKeys sets the maximum number of cached denials. When exceeded, the
// oldest entries are evicted. Default: 100000.
func WithMaxKeys(maxKeys int) CacheOption {
	return func(c *cacheConfig) { c.maxKeys = maxKeys }
}

// LocalCache is an L1 in-process denial cache that wraps any Limiter.
// It implements llmgate.Limiter so it can be used as a drop-in replacement.
//
// On each Allow call:
//  1. Cached denial, still fresh → serve the 429 locally (sub-microsecond)
//  2. Otherwise → delegate to the backend; cache the result when denied
type LocalCache struct {
	inner   llmgate.Limiter
	config  cacheConfig
	mu      sync.Mutex
	entries map[string]*cacheEntry
	closeCh chan struct{}
	closed  bool
}

type cacheEntry struct {
	result    *llmgate.Result
	fetchedAt time.Time
}

// New wraps an existing Limiter with a local denial cache layer.
func New(inner llmgate.Limiter, opts ...CacheOption) *LocalCache {
	cfg := cacheConfig{
		ttl:     time.Second,
		maxKeys: 100000,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	lc := &LocalCache{
		inner:   inner,
		config:  cfg,
		entries: make(map[string]*cacheEntry),
		closeCh: make(chan struct{}),
	}
	go lc.evictionLoop()
	return lc
}

// Allow checks whether a request for key should be admitted. A fresh cached
// denial is returned without touching the backend.
func (lc *LocalCache) Allow(ctx context.Context, key string, usage llmgate.Usage) (*llmgate.Result, error) {
	lc.mu.Lock()
	if e, ok := lc.entries[key]; ok && !lc.isExpired(e) {
		lc.mu.Unlock()
		return lc.cloneResult(e.result), nil
	}
	lc.mu.Unlock()

	result, err := lc.inner.Allow(ctx, key, usage)
	if err != nil {
		return result, err
	}

	if !result.Allowed {
		lc.mu.Lock()
		lc.entries[key] = &cacheEntry{
			result:    result,
			fetchedAt: time.Now(),
		}
		lc.evictIfOverCapacity()
		lc.mu.Unlock()
	}

	return lc.cloneResult(result), nil
}

// Reset clears rate limit state for key in both cache and backend.
func (lc *LocalCache) Reset(ctx context.Context, key string) error {
	lc.mu.Lock()
	delete(lc.entries, key)
	lc.mu.Unlock()
	return lc.inner.Reset(ctx, key)
}

// Close stops the background eviction goroutine.
func (lc *LocalCache) Close() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if !lc.closed {
		lc.closed = true
		close(lc.closeCh)
	}
}

// Stats returns current cache statistics.
func (lc *LocalCache) Stats() CacheStats {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return CacheStats{
		Keys: len(lc.entries),
	}
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Keys int
}

func (lc *LocalCache) isExpired(e *cacheEntry) bool {
	ttl := lc.config.ttl

	// Re-check with the backend as soon as it might admit again.
	if e.result.RetryAfter > 0 && e.result.RetryAfter < ttl {
		ttl = e.result.RetryAfter
	}

	return time.Since(e.fetchedAt) >= ttl
}

func (lc *LocalCache) cloneResult(r *llmgate.Result) *llmgate.Result {
	return &llmgate.Result{
		Allowed:    r.Allowed,
		Reason:     r.Reason,
		Limit:      r.Limit,
		RetryAfter: r.RetryAfter,
	}
}

func (lc *LocalCache) evictIfOverCapacity() {
	if len(lc.entries) <= lc.config.maxKeys {
		return
	}
	// Evict oldest entries to get back under capacity
	var oldestKey string
	var oldestTime time.Time
	for k, e := range lc.entries {
		if oldestKey == "" || e.fetchedAt.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.fetchedAt
		}
	}
	if oldestKey != "" {
		delete(lc.entries, oldestKey)
	}
}

func (lc *LocalCache) evictionLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lc.evictExpired()
		case <-lc.closeCh:
			return
		}
	}
}

func (lc *LocalCache) evictExpired() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	for k, e := range lc.entries {
		if lc.isExpired(e) {
			delete(lc.entries, k)
		}
	}
}
