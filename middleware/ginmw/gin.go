// Package ginmw provides Gin middleware for LLM rate limiting.
//
// Separated from the middleware package so that importing the HTTP middleware
// does not pull in github.com/gin-gonic/gin.
//
// Usage:
//
//	quota := llmgate.Quota{RPM: 500, InputTPM: 60000, OutputTPM: 20000}
//	limiter, _ := llmgate.NewHybridSlidingWindow(quota, llmgate.WithRedis(client))
//	r := gin.Default()
//	r.Use(ginmw.AdmissionLimit(limiter, ginmw.KeyByBearer))
package ginmw

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	llmgate "github.com/krishna-kudari/llmgate"
)

// KeyFunc extracts the rate limiting key from a Gin context.
type KeyFunc func(c *gin.Context) string

// UsageFunc reports the token cost of a request. A nil UsageFunc charges
// zero tokens, so only the rpm dimension is enforced.
type UsageFunc func(c *gin.Context) llmgate.Usage

// DeniedHandler is called when a request is rate limited.
type DeniedHandler func(c *gin.Context, result *llmgate.Result)

// ErrorHandler is called when the limiter returns an error.
type ErrorHandler func(c *gin.Context, err error)

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

// AdmissionLimit creates Gin middleware with default settings.
func AdmissionLimit(limiter llmgate.Limiter, keyFunc KeyFunc) gin.HandlerFunc {
	return AdmissionLimitWithConfig(Config{
		Limiter: limiter,
		KeyFunc: keyFunc,
	})
}

// AdmissionLimitWithConfig creates Gin middleware with full configuration control.
func AdmissionLimitWithConfig(cfg Config) gin.HandlerFunc {
	if cfg.Limiter == nil {
		panic("ginmw: Limiter is required")
	}
	if cfg.KeyFunc == nil {
		panic("ginmw: KeyFunc is required")
	}
	if cfg.UsageFunc == nil {
		cfg.UsageFunc = func(*gin.Context) llmgate.Usage { return llmgate.Usage{} }
	}
	if cfg.DeniedHandler == nil {
		cfg.DeniedHandler = defaultDeniedHandler
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}
	sendHeaders := cfg.Headers == nil || *cfg.Headers

	return func(c *gin.Context) {
		if cfg.ExcludePaths != nil && cfg.ExcludePaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)
		result, err := cfg.Limiter.Allow(c.Request.Context(), key, cfg.UsageFunc(c))
		if err != nil {
			cfg.ErrorHandler(c, err)
			return
		}

		if sendHeaders {
			setHeaders(c, result)
		}

		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()+0.5), 10))
			}
			cfg.DeniedHandler(c, result)
			return
		}

		c.Next()
	}
}

// ─── Built-in Key Extractors ─────────────────────────────────────────────────

// KeyByClientIP uses Gin's ClientIP() which respects trusted proxies.
func KeyByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByBearer extracts the API key from an "Authorization: Bearer <key>"
// header. It returns "" when the header is absent or not a bearer token.
func KeyByBearer(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// KeyByHeader returns a KeyFunc that extracts from a request header.
func KeyByHeader(header string) KeyFunc {
	return func(c *gin.Context) string {
		return c.GetHeader(header)
	}
}

// KeyByParam returns a KeyFunc that extracts from a URL parameter.
func KeyByParam(param string) KeyFunc {
	return func(c *gin.Context) string {
		return c.Param(param)
	}
}

// KeyByPathAndIP combines the request path and client IP.
func KeyByPathAndIP(c *gin.Context) string {
	return c.FullPath() + ":" + c.ClientIP()
}

// ─── Internals ───────────────────────────────────────────────────────────────

func setHeaders(c *gin.Context, result *llmgate.Result) {
	c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	if !result.Allowed {
		c.Header("X-RateLimit-Reason", string(result.Reason))
	}
}

func defaultDeniedHandler(c *gin.Context, result *llmgate.Result) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests,
		gin.H{"detail": "Rate limit exceeded: " + string(result.Reason)})
}

func defaultErrorHandler(c *gin.Context, _ error) {
	c.Next()
}
