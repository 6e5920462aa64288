package llmgate

import (
	"context"
	"testing"
	"time"
)

func TestBuilder_NoAlgorithm(t *testing.T) {
	_, err := NewBuilder().Build()
	if err == nil {
		t.Fatal("expected error when no algorithm selected")
	}
}

func TestBuilder_HybridSlidingWindow(t *testing.T) {
	l, err := NewBuilder().
		HybridSlidingWindow(Quota{RPM: 5, InputTPM: 1000, OutputTPM: 1000}).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	res, err := l.Allow(context.Background(), "k", Usage{InputTokens: 10, OutputTokens: 50})
	if err != nil || !res.Allowed {
		t.Fatalf("expected allowed, got %+v, err=%v", res, err)
	}
	if res.Limit != 5 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestBuilder_WindowOverrides(t *testing.T) {
	l, err := NewBuilder().
		HybridSlidingWindow(Quota{RPM: 1}).
		Window(100 * time.Millisecond).
		CalibrationInterval(50 * time.Millisecond).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	l.Allow(ctx, "k", Usage{})
	res, _ := l.Allow(ctx, "k", Usage{})
	if res.Allowed {
		t.Fatal("second request should be denied")
	}
	if res.RetryAfter != 100*time.Millisecond {
		t.Errorf("retry after: got %v, want the window span", res.RetryAfter)
	}
}

func TestBuilder_QuotaFunc(t *testing.T) {
	catalog := DefaultCatalog()
	l, err := NewBuilder().
		HybridSlidingWindow(Quota{RPM: 1}).
		QuotaFunc(catalog.QuotaFunc()).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	res, _ := l.Allow(context.Background(), "test-key-2", Usage{})
	if res.Limit != 1000 {
		t.Errorf("limit: got %d, want 1000", res.Limit)
	}
}

func TestBuilder_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (Limiter, error)
	}{
		{"zero quota", func() (Limiter, error) {
			return NewBuilder().HybridSlidingWindow(Quota{}).Build()
		}},
		{"negative rpm", func() (Limiter, error) {
			return NewBuilder().HybridSlidingWindow(Quota{RPM: -1}).Build()
		}},
		{"zero window", func() (Limiter, error) {
			return NewBuilder().HybridSlidingWindow(Quota{RPM: 10}).Window(0).Build()
		}},
		{"zero calibration interval", func() (Limiter, error) {
			return NewBuilder().HybridSlidingWindow(Quota{RPM: 10}).CalibrationInterval(0).Build()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			if err == nil {
				t.Error("expected error for invalid params")
			}
		})
	}
}

func TestBuilder_OptionChaining(t *testing.T) {
	l, err := NewBuilder().
		HybridSlidingWindow(Quota{RPM: 50, InputTPM: 1000, OutputTPM: 1000}).
		KeyPrefix("myapp").
		HashTag().
		FailOpen(false).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	res, _ := l.Allow(context.Background(), "k", Usage{})
	if !res.Allowed || res.Limit != 50 {
		t.Fatalf("unexpected result: %+v", res)
	}
}
