// Package metrics provides Prometheus instrumentation for rate limiters.
//
// Wrap any llmgate.Limiter to automatically record request counts, denial
// reasons, latency, and backend errors:
//
//	collector := metrics.NewCollector()
//	limiter, _ := llmgate.NewHybridSlidingWindow(quota)
//	limiter = metrics.Wrap(limiter, metrics.HybridSlidingWindow, collector)
//
// All metrics are partitioned by limiter name. Request counts carry an
// additional "decision" label (allowed / denied), and denials are further
// partitioned by the exhausted quota dimension.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	llmgate "github.com/krishna-kudari/llmgate"
)

// HybridSlidingWindow names the default limiter instance for the limiter label.
const HybridSlidingWindow = "hybrid_sliding_window"

// Collector holds Prometheus metric vectors for rate limiter instrumentation.
type Collector struct {
	requests *prometheus.CounterVec
	denials  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

type collectorConfig struct {
	namespace string
	subsystem string
	registry  prometheus.Registerer
	buckets   []float64
}

// CollectorOption configures a Collector.
type CollectorOption func(*collectorConfig)

// WithNamespace sets the Prometheus metric namespace (prefix).
func WithNamespace(ns string) CollectorOption {
	return func(c *collectorConfig) { c.namespace = ns }
}

// WithSubsystem sets the Prometheus metric subsystem.
func WithSubsystem(sub string) CollectorOption {
	return func(c *collectorConfig) { c.subsystem = sub }
}

// WithRegistry registers metrics with the given Registerer instead of
// prometheus.DefaultRegisterer.
func WithRegistry(r prometheus.Registerer) CollectorOption {
	return func(c *collectorConfig) { c.registry = r }
}

// WithBuckets sets custom histogram buckets for request duration.
func WithBuckets(b []float64) CollectorOption {
	return func(c *collectorConfig) { c.buckets = b }
}

var defaultBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

// NewCollector creates a Collector and registers its metrics.
//
// Metrics registered:
//   - {namespace}_requests_total            counter   (limiter, decision)
//   - {namespace}_denials_total             counter   (limiter, reason)
//   - {namespace}_request_duration_seconds  histogram (limiter)
//   - {namespace}_errors_total              counter   (limiter)
//
// Default namespace is "llmgate".
func NewCollector(opts ...CollectorOption) *Collector {
	cfg := &collectorConfig{
		namespace: "llmgate",
		registry:  prometheus.DefaultRegisterer,
		buckets:   defaultBuckets,
	}
	for _, o := range opts {
		o(cfg)
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "requests_total",
		Help:      "Total admission checks partitioned by limiter and decision.",
	}, []string{"limiter", "decision"})

	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "denials_total",
		Help:      "Total denied requests partitioned by limiter and quota dimension.",
	}, []string{"limiter", "reason"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "request_duration_seconds",
		Help:      "Latency of admission Allow calls in seconds.",
		Buckets:   cfg.buckets,
	}, []string{"limiter"})

	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      "errors_total",
		Help:      "Total rate limiter backend errors.",
	}, []string{"limiter"})

	cfg.registry.MustRegister(requests, denials, duration, errors)

	return &Collector{
		requests: requests,
		denials:  denials,
		duration: duration,
		errors:   errors,
	}
}

// Wrap returns a Limiter that transparently records Prometheus metrics
// for every Allow call delegated to inner.
func Wrap(inner llmgate.Limiter, name string, c *Collector) llmgate.Limiter {
	return &instrumentedLimiter{
		inner:     inner,
		name:      name,
		collector: c,
	}
}

type instrumentedLimiter struct {
	inner     llmgate.Limiter
	name      string
	collector *Collector
}

func (l *instrumentedLimiter) Allow(ctx context.Context, key string, usage llmgate.Usage) (*llmgate.Result, error) {
	start := time.Now()
	result, err := l.inner.Allow(ctx, key, usage)
	l.collector.duration.WithLabelValues(l.name).Observe(time.Since(start).Seconds())

	if err != nil {
		l.collector.errors.WithLabelValues(l.name).Inc()
		if result != nil {
			l.recordDecision(result)
		}
		return result, err
	}

	l.recordDecision(result)
	return result, nil
}

func (l *instrumentedLimiter) Reset(ctx context.Context, key string) error {
	return l.inner.Reset(ctx, key)
}

func (l *instrumentedLimiter) recordDecision(result *llmgate.Result) {
	decision := "denied"
	if result.Allowed {
		decision = "allowed"
	}
	l.collector.requests.WithLabelValues(l.name, decision).Inc()
	if !result.Allowed {
		l.collector.denials.WithLabelValues(l.name, string(result.Reason)).Inc()
	}
}
