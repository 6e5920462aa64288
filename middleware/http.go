package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	llmgate "github.com/krishna-kudari/llmgate"
)

// KeyFunc extracts the rate limiting key from an HTTP request.
// The returned string identifies the caller (e.g. API key, IP, user ID).
type KeyFunc func(r *http.Request) string

// UsageFunc reports the token cost of a request, charged against the
// input_tpm and output_tpm dimensions. A nil UsageFunc charges zero
// tokens, so only the rpm dimension is enforced.
type UsageFunc func(r *http.Request) llmgate.Usage

// ErrorHandler is called when the limiter returns an error.
// Default behavior: 500 Internal Server Error.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DeniedHandler is called when a request is rate limited.
// Default behavior: 429 Too Many Requests with Retry-After header.
type DeniedHandler func(w http.ResponseWriter, r *http.Request, result *llmgate.Result)

// Config holds the admission middleware configuration.
type Config struct {
	// Limiter is the rate limiter instance (required).
	Limiter llmgate.Limiter

	// KeyFunc extracts the rate limit key from the request (required).
	KeyFunc KeyFunc

	// UsageFunc estimates the token cost of the request.
	// Default: zero usage (rpm-only enforcement).
	UsageFunc UsageFunc

	// ErrorHandler is called when the limiter returns an error.
	// Default: responds with 500.
	ErrorHandler ErrorHandler

	// DeniedHandler is called when a request is denied.
	// Default: responds with 429 and the denial reason.
	DeniedHandler DeniedHandler

	// ExcludePaths are request paths that bypass rate limiting.
	ExcludePaths map[string]bool

	// Headers controls whether X-RateLimit-* headers are set on responses.
	// Default: true.
	Headers *bool

	// Message is the response body for denied requests.
	// Default: "Rate limit exceeded: <REASON>".
	Message string

	// StatusCode is the HTTP status code for denied requests.
	// Default: 429.
	StatusCode int
}

// AdmissionLimit creates HTTP middleware with default settings.
// It sets rate limit headers and returns 429 on denial.
//
// Usage with net/http:
//
//	mux := http.NewServeMux()
//	mux.Handle("/api/", middleware.AdmissionLimit(limiter, middleware.KeyByBearer)(handler))
//
// Usage with chi:
//
//	r := chi.NewRouter()
//	r.Use(middleware.AdmissionLimit(limiter, middleware.KeyByBearer))
func AdmissionLimit(limiter llmgate.Limiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	return AdmissionLimitWithConfig(Config{
		Limiter: limiter,
		KeyFunc: keyFunc,
	})
}

// AdmissionLimitWithConfig creates HTTP middleware with full configuration control.
func AdmissionLimitWithConfig(cfg Config) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		panic("llmgate/middleware: Limiter is required")
	}
	if cfg.KeyFunc == nil {
		panic("llmgate/middleware: KeyFunc is required")
	}
	if cfg.UsageFunc == nil {
		cfg.UsageFunc = func(*http.Request) llmgate.Usage { return llmgate.Usage{} }
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}
	if cfg.DeniedHandler == nil {
		cfg.DeniedHandler = defaultDeniedHandler(cfg.Message, cfg.StatusCode)
	}
	sendHeaders := cfg.Headers == nil || *cfg.Headers

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.ExcludePaths != nil && cfg.ExcludePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.KeyFunc(r)
			result, err := cfg.Limiter.Allow(r.Context(), key, cfg.UsageFunc(r))
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			if sendHeaders {
				setRateLimitHeaders(w, result)
			}

			if !result.Allowed {
				if result.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()+0.5), 10))
				}
				cfg.DeniedHandler(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ─── Built-in Key Extractors ─────────────────────────────────────────────────

// KeyByIP extracts the client IP address as the rate limit key.
// It checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr.
func KeyByIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// KeyByHeader returns a KeyFunc that uses the value of the given header.
func KeyByHeader(header string) KeyFunc {
	return func(r *http.Request) string {
		return r.Header.Get(header)
	}
}

// KeyByBearer extracts the API key from an "Authorization: Bearer <key>"
// header. It returns "" when the header is absent or not a bearer token.
func KeyByBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// KeyByPathAndIP returns a KeyFunc that combines the request path and client IP.
// Useful for per-endpoint rate limiting.
func KeyByPathAndIP(r *http.Request) string {
	return r.URL.Path + ":" + KeyByIP(r)
}

// ─── Headers ─────────────────────────────────────────────────────────────────

func setRateLimitHeaders(w http.ResponseWriter, result *llmgate.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	if !result.Allowed {
		w.Header().Set("X-RateLimit-Reason", string(result.Reason))
	}
}

// ─── Default Handlers ────────────────────────────────────────────────────────

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func defaultDeniedHandler(message string, statusCode int) DeniedHandler {
	if statusCode == 0 {
		statusCode = http.StatusTooManyRequests
	}
	return func(w http.ResponseWriter, _ *http.Request, result *llmgate.Result) {
		body := message
		if body == "" {
			body = "Rate limit exceeded: " + string(result.Reason)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(statusCode)
		fmt.Fprintln(w, body)
	}
}
