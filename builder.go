package llmgate

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/krishna-kudari/llmgate/store"
)

type algorithm int

const (
	algoNone algorithm = iota
	algoHybridSlidingWindow
)

// Builder provides a fluent API for constructing a Limiter.
//
//	limiter, err := llmgate.NewBuilder().
//	    HybridSlidingWindow(llmgate.Quota{RPM: 500, InputTPM: 60000, OutputTPM: 20000}).
//	    Redis(client).
//	    HashTag().
//	    Build()
type Builder struct {
	algo  algorithm
	quota Quota
	opts  []Option
}

// NewBuilder returns a new Builder with default options.
func NewBuilder() *Builder {
	return &Builder{}
}

// ─── Algorithm selectors ─────────────────────────────────────────────────────

// HybridSlidingWindow configures the hybrid sliding window algorithm.
// quota is the default per-key allowance; combine with QuotaFunc to vary
// it per key.
func (b *Builder) HybridSlidingWindow(quota Quota) *Builder {
	b.algo = algoHybridSlidingWindow
	b.quota = quota
	return b
}

// ─── Option setters ──────────────────────────────────────────────────────────

// Redis sets the Redis backend. Accepts any redis.UniversalClient.
func (b *Builder) Redis(client redis.UniversalClient) *Builder {
	b.opts = append(b.opts, WithRedis(client))
	return b
}

// Store sets a custom store.Store backend.
func (b *Builder) Store(s store.Store) *Builder {
	b.opts = append(b.opts, WithStore(s))
	return b
}

// KeyPrefix sets the prefix prepended to all storage keys.
func (b *Builder) KeyPrefix(prefix string) *Builder {
	b.opts = append(b.opts, WithKeyPrefix(prefix))
	return b
}

// HashTag enables Redis Cluster hash-tag wrapping on keys.
func (b *Builder) HashTag() *Builder {
	b.opts = append(b.opts, WithHashTag())
	return b
}

// FailOpen sets the fail-open/fail-closed behavior when the backend is unreachable.
func (b *Builder) FailOpen(v bool) *Builder {
	b.opts = append(b.opts, WithFailOpen(v))
	return b
}

// QuotaFunc sets a per-key quota resolver, e.g. Catalog.QuotaFunc.
func (b *Builder) QuotaFunc(f func(key string) (Quota, bool)) *Builder {
	b.opts = append(b.opts, WithQuotaFunc(f))
	return b
}

// Window overrides the sliding window span.
func (b *Builder) Window(window time.Duration) *Builder {
	b.opts = append(b.opts, WithWindow(window))
	return b
}

// CalibrationInterval overrides the counter recalibration cadence.
func (b *Builder) CalibrationInterval(interval time.Duration) *Builder {
	b.opts = append(b.opts, WithCalibrationInterval(interval))
	return b
}

// ─── Build ───────────────────────────────────────────────────────────────────

// Build validates the configuration and returns the configured Limiter.
func (b *Builder) Build() (Limiter, error) {
	switch b.algo {
	case algoHybridSlidingWindow:
		return NewHybridSlidingWindow(b.quota, b.opts...)
	default:
		return nil, fmt.Errorf("llmgate: no algorithm selected; call HybridSlidingWindow before Build")
	}
}
