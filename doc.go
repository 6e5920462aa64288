// Package llmgate provides multi-dimensional rate limiting for LLM API
// gateways, with in-memory and Redis backends and drop-in middleware for
// net/http, Gin, Echo, Fiber, and gRPC.
//
// Every API key is checked against three sliding-window quotas at once:
//
//   - rpm — requests per minute
//   - input_tpm — input (prompt) tokens per minute
//   - output_tpm — output (completion) tokens per minute
//
// A request is admitted only when all three dimensions have headroom; the
// first exhausted dimension (checked in the order above) names the denial.
//
// # Quick Start
//
//	limiter, err := llmgate.NewHybridSlidingWindow(llmgate.Quota{
//	    RPM:       500,
//	    InputTPM:  60000,
//	    OutputTPM: 20000,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := limiter.Allow(ctx, "api-key-1", llmgate.Usage{
//	    InputTokens:  120,
//	    OutputTokens: 50,
//	})
//	if result.Allowed {
//	    // serve request
//	}
//
// # With Redis
//
//	limiter, _ := llmgate.NewHybridSlidingWindow(quota,
//	    llmgate.WithRedis(redisClient),
//	)
//
// On Redis the admission decision runs as a single Lua script, so the
// check-and-record step is atomic across all gateway instances sharing the
// store. Counters serve the fast path in O(1); every 30 seconds per key the
// script recalibrates them from the underlying event logs, evicting entries
// older than the window.
//
// # Per-Key Quotas
//
//	catalog := llmgate.DefaultCatalog()
//	limiter, _ := llmgate.NewHybridSlidingWindow(llmgate.Quota{RPM: 100},
//	    llmgate.WithRedis(client),
//	    llmgate.WithQuotaFunc(catalog.QuotaFunc()),
//	)
//
// # Builder API
//
//	limiter, _ := llmgate.NewBuilder().
//	    HybridSlidingWindow(llmgate.Quota{RPM: 500, InputTPM: 60000, OutputTPM: 20000}).
//	    Redis(client).
//	    Build()
//
// The limiter implements the [Limiter] interface and returns a [Result]
// with Allowed, Reason, Limit, and RetryAfter fields.
package llmgate
