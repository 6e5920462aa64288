// Package echomw provides Echo middleware for LLM rate limiting.
//
// Separated from the middleware package so that importing the HTTP middleware
// does not pull in github.com/labstack/echo.
//
// Usage:
//
//	quota := llmgate.Quota{RPM: 500, InputTPM: 60000, OutputTPM: 20000}
//	limiter, _ := llmgate.NewHybridSlidingWindow(quota, llmgate.WithRedis(client))
//	e := echo.New()
//	e.Use(echomw.AdmissionLimit(limiter, echomw.KeyByBearer))
package echomw

import (
	"net/http"
	"strconv"
	"strings"

	llmgate "github.com/krishna-kudari/llmgate"
	"github.com/labstack/echo/v4"
)

// KeyFunc extracts the rate limiting key from an Echo context.
type KeyFunc func(c echo.Context) string

// UsageFunc reports the token cost of a request. A nil UsageFunc charges
// zero tokens, so only the rpm dimension is enforced.
type UsageFunc func(c echo.Context) llmgate.Usage

// DeniedHandler is called when a request is rate limited.
type DeniedHandler func(c echo.Context, result *llmgate.Result) error

// ErrorHandler is called when the limiter returns an error.
type ErrorHandler func(c echo.Context, err error) error

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

// AdmissionLimit creates Echo middleware with default settings.
func AdmissionLimit(limiter llmgate.Limiter, keyFunc KeyFunc) echo.MiddlewareFunc {
	return AdmissionLimitWithConfig(Config{
		Limiter: limiter,
		KeyFunc: keyFunc,
	})
}

// AdmissionLimitWithConfig creates Echo middleware with full configuration control.
func AdmissionLimitWithConfig(cfg Config) echo.MiddlewareFunc {
	if cfg.Limiter == nil {
		panic("echomw: Limiter is required")
	}
	if cfg.KeyFunc == nil {
		panic("echomw: KeyFunc is required")
	}
	if cfg.UsageFunc == nil {
		cfg.UsageFunc = func(echo.Context) llmgate.Usage { return llmgate.Usage{} }
	}
	if cfg.DeniedHandler == nil {
		cfg.DeniedHandler = defaultDeniedHandler
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}
	sendHeaders := cfg.Headers == nil || *cfg.Headers

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.ExcludePaths != nil && cfg.ExcludePaths[c.Request().URL.Path] {
				return next(c)
			}

			key := cfg.KeyFunc(c)
			result, err := cfg.Limiter.Allow(c.Request().Context(), key, cfg.UsageFunc(c))
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			if sendHeaders {
				setHeaders(c, result)
			}

			if !result.Allowed {
				if result.RetryAfter > 0 {
					c.Response().Header().Set("Retry-After",
						strconv.FormatInt(int64(result.RetryAfter.Seconds()+0.5), 10))
				}
				return cfg.DeniedHandler(c, result)
			}

			return next(c)
		}
	}
}

// ─── Built-in Key Extractors ─────────────────────────────────────────────────

// KeyByRealIP uses Echo's RealIP() which respects X-Forwarded-For / X-Real-IP.
func KeyByRealIP(c echo.Context) string {
	return c.RealIP()
}

// KeyByBearer extracts the API key from an "Authorization: Bearer <key>"
// header. It returns "" when the header is absent or not a bearer token.
func KeyByBearer(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// KeyByHeader returns a KeyFunc that extracts from a request header.
func KeyByHeader(header string) KeyFunc {
	return func(c echo.Context) string {
		return c.Request().Header.Get(header)
	}
}

// KeyByParam returns a KeyFunc that extracts from a path parameter.
func KeyByParam(param string) KeyFunc {
	return func(c echo.Context) string {
		return c.Param(param)
	}
}

// KeyByPathAndIP combines the request path and real IP.
func KeyByPathAndIP(c echo.Context) string {
	return c.Path() + ":" + c.RealIP()
}

// ─── Internals ───────────────────────────────────────────────────────────────

func setHeaders(c echo.Context, result *llmgate.Result) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	if !result.Allowed {
		h.Set("X-RateLimit-Reason", string(result.Reason))
	}
}

func defaultDeniedHandler(c echo.Context, result *llmgate.Result) error {
	return c.JSON(http.StatusTooManyRequests,
		map[string]string{"detail": "Rate limit exceeded: " + string(result.Reason)})
}

func defaultErrorHandler(c echo.Context, err error) error {
	return nil
}
