package llmgate

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/krishna-kudari/llmgate/store"
)

// Options holds the shared limiter configuration applied via Option values.
type Options struct {
	// RedisClient selects shared-store mode backed by Redis. Any
	// UniversalClient works (standalone, cluster, sentinel).
	RedisClient redis.UniversalClient

	// Store selects shared-store mode backed by a custom Store.
	// Takes precedence over RedisClient when both are set.
	Store store.Store

	// KeyPrefix namespaces all persisted keys. Default "rl".
	KeyPrefix string

	// HashTag wraps the api key in {braces}. The admission script touches
	// several keys per decision, so Redis Cluster deployments need this to
	// keep all of a key's objects in one slot.
	HashTag bool

	// FailOpen admits requests when the backend is unreachable. Default
	// true: a sick limiter degrades to no rate limiting instead of an
	// outage.
	FailOpen bool

	// QuotaFunc resolves a per-key quota at admission time. Keys the
	// resolver does not know, and resolved quotas with a non-positive RPM,
	// fall back on the limiter's default quota.
	QuotaFunc func(key string) (Quota, bool)

	// Window is the sliding window span. Default 60s.
	Window time.Duration

	// CalibrationInterval is the per-key interval between counter rebuilds
	// from the event logs. Default 30s.
	CalibrationInterval time.Duration
}

func defaultOptions() *Options {
	return &Options{
		KeyPrefix:           "rl",
		FailOpen:            true,
		Window:              60 * time.Second,
		CalibrationInterval: 30 * time.Second,
	}
}

// Option configures a limiter.
type Option func(*Options)

func applyOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRedis selects the Redis backend. Accepts any redis.UniversalClient.
func WithRedis(client redis.UniversalClient) Option {
	return func(o *Options) { o.RedisClient = client }
}

// WithStore selects a custom store.Store backend.
func WithStore(s store.Store) Option {
	return func(o *Options) { o.Store = s }
}

// WithKeyPrefix sets the prefix prepended to all persisted keys.
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) { o.KeyPrefix = prefix }
}

// WithHashTag enables Redis Cluster hash-tag wrapping on keys.
func WithHashTag() Option {
	return func(o *Options) { o.HashTag = true }
}

// WithFailOpen sets behavior when the backend is unreachable: true admits
// (the default), false denies and surfaces the error to the caller.
func WithFailOpen(v bool) Option {
	return func(o *Options) { o.FailOpen = v }
}

// WithQuotaFunc sets a per-key quota resolver, e.g. Catalog.QuotaFunc.
// The resolver runs on every admission, so catalog changes apply without
// a restart.
func WithQuotaFunc(f func(key string) (Quota, bool)) Option {
	return func(o *Options) { o.QuotaFunc = f }
}

// WithWindow overrides the sliding window span. Production quotas are
// per-minute; shorter windows are mainly useful in tests.
func WithWindow(window time.Duration) Option {
	return func(o *Options) { o.Window = window }
}

// WithCalibrationInterval overrides how often per-key counters are rebuilt
// from the event logs.
func WithCalibrationInterval(interval time.Duration) Option {
	return func(o *Options) { o.CalibrationInterval = interval }
}

// FormatKey returns the storage key for an api key: "prefix:key", or
// "prefix:{key}" when hash tags are enabled.
func (o *Options) FormatKey(key string) string {
	if o.HashTag {
		return o.KeyPrefix + ":{" + key + "}"
	}
	return o.KeyPrefix + ":" + key
}

// FormatKeySuffix returns the storage key for a per-key object:
// "prefix:key:suffix", or "prefix:{key}:suffix" with hash tags.
func (o *Options) FormatKeySuffix(key, suffix string) string {
	return o.FormatKey(key) + ":" + suffix
}

// resolveQuota returns the quota to enforce for key.
func (o *Options) resolveQuota(key string, def Quota) Quota {
	if o.QuotaFunc != nil {
		if q, ok := o.QuotaFunc(key); ok && q.RPM > 0 {
			return q
		}
	}
	return def
}
