package llmgate_test

import (
	"context"
	"fmt"
	"time"

	"github.com/krishna-kudari/llmgate"
)

func ExampleNewHybridSlidingWindow() {
	limiter, _ := llmgate.NewHybridSlidingWindow(llmgate.Quota{
		RPM:       500,
		InputTPM:  60000,
		OutputTPM: 20000,
	})
	result, _ := limiter.Allow(context.Background(), "test-key-1", llmgate.Usage{
		InputTokens:  120,
		OutputTokens: 50,
	})
	fmt.Printf("allowed=%v reason=%s limit=%d\n", result.Allowed, result.Reason, result.Limit)
	// Output: allowed=true reason=ALLOWED limit=500
}

func ExampleLimiter_denied() {
	limiter, _ := llmgate.NewHybridSlidingWindow(llmgate.Quota{RPM: 1, InputTPM: 100, OutputTPM: 100})
	ctx := context.Background()

	limiter.Allow(ctx, "test-key-1", llmgate.Usage{})
	result, _ := limiter.Allow(ctx, "test-key-1", llmgate.Usage{})
	fmt.Printf("allowed=%v reason=%s retry-after=%s\n", result.Allowed, result.Reason, result.RetryAfter)
	// Output: allowed=false reason=RPM_EXCEEDED retry-after=1m0s
}

func ExampleLimiter_reset() {
	ctx := context.Background()
	limiter, _ := llmgate.NewHybridSlidingWindow(llmgate.Quota{RPM: 1, InputTPM: 100, OutputTPM: 100})
	limiter.Allow(ctx, "test-key-1", llmgate.Usage{})

	result, _ := limiter.Allow(ctx, "test-key-1", llmgate.Usage{})
	fmt.Printf("before reset: allowed=%v\n", result.Allowed)

	_ = limiter.Reset(ctx, "test-key-1")
	result, _ = limiter.Allow(ctx, "test-key-1", llmgate.Usage{})
	fmt.Printf("after reset:  allowed=%v\n", result.Allowed)
	// Output:
	// before reset: allowed=false
	// after reset:  allowed=true
}

func ExampleNewBuilder() {
	limiter, _ := llmgate.NewBuilder().
		HybridSlidingWindow(llmgate.Quota{RPM: 100, InputTPM: 10000, OutputTPM: 5000}).
		KeyPrefix("api").
		Window(60 * time.Second).
		FailOpen(true).
		Build()

	result, _ := limiter.Allow(context.Background(), "test-key-1", llmgate.Usage{InputTokens: 25})
	fmt.Printf("allowed=%v limit=%d\n", result.Allowed, result.Limit)
	// Output: allowed=true limit=100
}

func ExampleWithQuotaFunc() {
	limiter, _ := llmgate.NewHybridSlidingWindow(llmgate.Quota{RPM: 5, InputTPM: 100, OutputTPM: 100},
		llmgate.WithQuotaFunc(func(key string) (llmgate.Quota, bool) {
			if key == "premium" {
				return llmgate.Quota{RPM: 1000, InputTPM: 200000, OutputTPM: 80000}, true
			}
			return llmgate.Quota{}, false
		}),
	)

	ctx := context.Background()
	r1, _ := limiter.Allow(ctx, "premium", llmgate.Usage{})
	r2, _ := limiter.Allow(ctx, "free", llmgate.Usage{})
	fmt.Printf("premium: limit=%d\nfree:    limit=%d\n", r1.Limit, r2.Limit)
	// Output:
	// premium: limit=1000
	// free:    limit=5
}

func ExampleCatalog_QuotaFunc() {
	catalog := llmgate.DefaultCatalog()
	limiter, _ := llmgate.NewHybridSlidingWindow(llmgate.Quota{RPM: 10},
		llmgate.WithQuotaFunc(catalog.QuotaFunc()),
	)

	result, _ := limiter.Allow(context.Background(), "free-tier-key", llmgate.Usage{InputTokens: 10})
	fmt.Printf("allowed=%v limit=%d\n", result.Allowed, result.Limit)
	// Output: allowed=true limit=20
}

func ExampleCatalog_Lookup() {
	catalog := llmgate.DefaultCatalog()
	entry, ok := catalog.Lookup("test-key-2")
	fmt.Printf("ok=%v name=%q rpm=%d\n", ok, entry.Name, entry.Quota.RPM)
	// Output: ok=true name="High-Throughput Tier" rpm=1000
}
