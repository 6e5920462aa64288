package llmgate

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
)

// ─── Single-key (serial) ─────────────────────────────────────────────────────

func BenchmarkHybridSlidingWindow(b *testing.B) {
	l, _ := NewHybridSlidingWindow(Quota{RPM: int64(b.N) + 1, InputTPM: 1 << 62, OutputTPM: 1 << 62})
	benchAllow(b, l, Usage{InputTokens: 120, OutputTokens: 50})
}

func BenchmarkHybridSlidingWindow_ZeroUsage(b *testing.B) {
	l, _ := NewHybridSlidingWindow(Quota{RPM: int64(b.N) + 1})
	benchAllow(b, l, Usage{})
}

func BenchmarkHybridSlidingWindow_QuotaFunc(b *testing.B) {
	catalog := DefaultCatalog()
	l, _ := NewHybridSlidingWindow(Quota{RPM: int64(b.N) + 1, InputTPM: 1 << 62, OutputTPM: 1 << 62},
		WithQuotaFunc(catalog.QuotaFunc()))
	benchAllow(b, l, Usage{InputTokens: 120, OutputTokens: 50})
}

// ─── Parallel (contended single key) ─────────────────────────────────────────

func BenchmarkHybridSlidingWindow_Parallel(b *testing.B) {
	l, _ := NewHybridSlidingWindow(Quota{RPM: 1 << 62, InputTPM: 1 << 62, OutputTPM: 1 << 62})
	benchAllowParallel(b, l, "shared")
}

// ─── Parallel (distinct keys — no lock contention) ───────────────────────────

func BenchmarkHybridSlidingWindow_DistinctKeys(b *testing.B) {
	l, _ := NewHybridSlidingWindow(Quota{RPM: 1 << 62, InputTPM: 1 << 62, OutputTPM: 1 << 62})
	benchAllowParallelDistinct(b, l)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func benchAllow(b *testing.B, l Limiter, usage Usage) {
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = l.Allow(ctx, "k", usage)
	}
}

func benchAllowParallel(b *testing.B, l Limiter, key string) {
	ctx := context.Background()
	usage := Usage{InputTokens: 120, OutputTokens: 50}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = l.Allow(ctx, key, usage)
		}
	})
}

func benchAllowParallelDistinct(b *testing.B, l Limiter) {
	ctx := context.Background()
	usage := Usage{InputTokens: 120, OutputTokens: 50}
	var seq atomic.Int64
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		id := seq.Add(1)
		key := "key:" + strconv.FormatInt(id, 10)
		for pb.Next() {
			_, _ = l.Allow(ctx, key, usage)
		}
	})
}
