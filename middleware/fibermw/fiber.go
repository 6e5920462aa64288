// Package fibermw provides Fiber middleware for LLM rate limiting.
//
// Separated from the middleware package so that importing the HTTP middleware
// does not pull in github.com/gofiber/fiber. Fiber uses fasthttp (not net/http),
// so a dedicated adapter is required.
//
// Usage:
//
//	quota := llmgate.Quota{RPM: 500, InputTPM: 60000, OutputTPM: 20000}
//	limiter, _ := llmgate.NewHybridSlidingWindow(quota, llmgate.WithRedis(client))
//	app := fiber.New()
//	app.Use(fibermw.AdmissionLimit(limiter, fibermw.KeyByBearer))
package fibermw

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	llmgate "github.com/krishna-kudari/llmgate"
)

// KeyFunc extracts the rate limiting key from a Fiber context.
type KeyFunc func(c *fiber.Ctx) string

// UsageFunc reports the token cost of a request. A nil UsageFunc charges
// zero tokens, so only the rpm dimension is enforced.
type UsageFunc func(c *fiber.Ctx) llmgate.Usage

// DeniedHandler is called when a request is rate limited.
type DeniedHandler func(c *fiber.Ctx, result *llmgate.Result) error

// ErrorHandler is called when the limiter returns an error.
type ErrorHandler func(c *fiber.Ctx, err error) error

// Config holds the admission middleware configuration.
type Config struct {
	// Limiter is the rate limiter instance (required).
	Limiter llmgate.Limiter

	// KeyFunc extracts the rate limit key (required).
	KeyFunc KeyFunc

	// UsageFunc estimates the token cost of the request.
	// Default: zero usage (rpm-only enforcement).
	UsageFunc UsageFunc

	// DeniedHandler is called on denial. Default: 429 JSON with the reason.
	DeniedHandler DeniedHandler

	// ErrorHandler is called on limiter error. Default: pass-through (fail open).
	ErrorHandler ErrorHandler

	// ExcludePaths are request paths that bypass rate limiting.
	ExcludePaths map[string]bool

	// Headers controls whether X-RateLimit-* headers are set.
	// Default: true.
	Headers *bool
}

// AdmissionLimit creates Fiber middleware with default settings.
func AdmissionLimit(limiter llmgate.Limiter, keyFunc KeyFunc) fiber.Handler {
	return AdmissionLimitWithConfig(Config{
		Limiter: limiter,
		KeyFunc: keyFunc,
	})
}

// AdmissionLimitWithConfig creates Fiber middleware with full configuration control.
func AdmissionLimitWithConfig(cfg Config) fiber.Handler {
	if cfg.Limiter == nil {
		panic("fibermw: Limiter is required")
	}
	if cfg.KeyFunc == nil {
		panic("fibermw: KeyFunc is required")
	}
	if cfg.UsageFunc == nil {
		cfg.UsageFunc = func(*fiber.Ctx) llmgate.Usage { return llmgate.Usage{} }
	}
	if cfg.DeniedHandler == nil {
		cfg.DeniedHandler = defaultDeniedHandler
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}
	sendHeaders := cfg.Headers == nil || *cfg.Headers

	return func(c *fiber.Ctx) error {
		if cfg.ExcludePaths != nil && cfg.ExcludePaths[c.Path()] {
			return c.Next()
		}

		key := cfg.KeyFunc(c)
		result, err := cfg.Limiter.Allow(c.UserContext(), key, cfg.UsageFunc(c))
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if sendHeaders {
			setHeaders(c, result)
		}

		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Set("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()+0.5), 10))
			}
			return cfg.DeniedHandler(c, result)
		}

		return c.Next()
	}
}

// ─── Built-in Key Extractors ─────────────────────────────────────────────────

// KeyByIP uses Fiber's IP() method which respects proxy headers.
func KeyByIP(c *fiber.Ctx) string {
	return c.IP()
}

// KeyByBearer extracts the API key from an "Authorization: Bearer <key>"
// header. It returns "" when the header is absent or not a bearer token.
func KeyByBearer(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// KeyByHeader returns a KeyFunc that extracts from a request header.
func KeyByHeader(header string) KeyFunc {
	return func(c *fiber.Ctx) string {
		return c.Get(header)
	}
}

// KeyByParam returns a KeyFunc that extracts from a route parameter.
func KeyByParam(param string) KeyFunc {
	return func(c *fiber.Ctx) string {
		return c.Params(param)
	}
}

// KeyByPathAndIP combines the request path and client IP.
func KeyByPathAndIP(c *fiber.Ctx) string {
	return c.Path() + ":" + c.IP()
}

// ─── Internals ───────────────────────────────────────────────────────────────

func setHeaders(c *fiber.Ctx, result *llmgate.Result) {
	c.Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	if !result.Allowed {
		c.Set("X-RateLimit-Reason", string(result.Reason))
	}
}

func defaultDeniedHandler(c *fiber.Ctx, result *llmgate.Result) error {
	return c.Status(fiber.StatusTooManyRequests).
		JSON(fiber.Map{"detail": "Rate limit exceeded: " + string(result.Reason)})
}

func defaultErrorHandler(c *fiber.Ctx, _ error) error {
	return c.Next()
}
