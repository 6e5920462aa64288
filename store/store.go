// Package store defines the backend storage contract for the rate limiter.
//
// The Store interface abstracts what the admission path needs from a shared
// backend: atomic server-side scripting for the admission decision, sorted
// sets for the exact event logs, integer counters for the fast path, and
// per-key TTLs. The primary implementation is RedisStore (in store/redis),
// which supports standalone Redis, Redis Cluster, and Redis Sentinel via
// redis.UniversalClient.
//
// A MemoryStore (in store/memory) is provided for testing and
// single-process deployments that don't need distributed state. It cannot
// run scripts; the limiter detects that and drives the same algorithm
// through the individual commands instead.
package store

import (
	"context"
	"time"
)

// Store abstracts the backend for rate limit state persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// Eval executes a Lua script atomically with the given keys and args.
	// Implementations that don't support scripting (e.g. MemoryStore)
	// should return ErrScriptNotSupported.
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)

	// EvalSha executes a pre-cached script by its SHA1 hash.
	EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) (interface{}, error)

	// ScriptLoad loads a script into the backend's script cache, returning its SHA1.
	ScriptLoad(ctx context.Context, script string) (string, error)

	// Get returns the string value for key, or ("", ErrKeyNotFound) if not found.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with optional TTL (0 = no expiry).
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Del deletes one or more keys.
	Del(ctx context.Context, keys ...string) error

	// IncrBy atomically increments key by n, returning the new value.
	// Creates the key with value n if it doesn't exist.
	IncrBy(ctx context.Context, key string, n int64) (int64, error)

	// Expire sets a TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns the remaining TTL for a key.
	// Returns -1 if the key has no TTL, -2 if the key doesn't exist.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// ZAdd adds a member with score to the sorted set at key.
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZCard returns the number of members in the sorted set at key.
	ZCard(ctx context.Context, key string) (int64, error)

	// ZRemRangeByScore removes sorted set members with scores in [min, max].
	// min and max accept "-inf"/"+inf".
	ZRemRangeByScore(ctx context.Context, key, min, max string) error

	// ZRangeWithScores returns members with scores for the index range
	// [start, stop]; negative indexes count from the end, Redis-style.
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ZEntry, error)

	// Close releases any resources held by the store.
	Close() error
}

// ZEntry represents a sorted set member with its score. For the limiter's
// event logs the score is the admission time in µs and the member carries
// the token contribution as a ":<n>" suffix.
type ZEntry struct {
	Score  float64
	Member string
}

// ErrKeyNotFound is returned by Get when the key doesn't exist.
type ErrKeyNotFound struct {
	Key string
}

func (e *ErrKeyNotFound) Error() string {
	return "store: key not found: " + e.Key
}

// ErrScriptNotSupported is returned by Eval/EvalSha/ScriptLoad when the
// store doesn't support server-side scripting.
type ErrScriptNotSupported struct{}

func (e *ErrScriptNotSupported) Error() string {
	return "store: scripting not supported by this backend"
}
