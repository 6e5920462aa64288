package llmgate

import (
	"context"
	"time"
)

// Usage reports the token cost of a single request. The zero value is
// valid and counts the request against the rpm dimension only.
type Usage struct {
	// InputTokens is the estimated prompt cost, charged against input_tpm.
	InputTokens int64

	// OutputTokens is the estimated completion cost, charged against output_tpm.
	OutputTokens int64
}

// Limiter is the interface implemented by the hybrid sliding window limiter,
// for both the in-memory and Redis backends.
type Limiter interface {
	// Allow reports whether a request with the given usage may proceed for
	// key. Admission checks all three quota dimensions and, when admitted,
	// records the request and its usage atomically.
	Allow(ctx context.Context, key string, usage Usage) (*Result, error)

	// Reset clears all rate limit state for key.
	Reset(ctx context.Context, key string) error
}

// Result describes the outcome of an admission attempt.
type Result struct {
	// Allowed reports whether the request was admitted.
	Allowed bool

	// Reason identifies the first exhausted dimension when Allowed is
	// false, or ReasonAllowed otherwise.
	Reason Reason

	// Limit is the quota for the exhausted dimension, or the rpm quota
	// when the request was admitted.
	Limit int64

	// RetryAfter is how long the caller should wait before retrying.
	// Zero when Allowed is true.
	RetryAfter time.Duration
}
