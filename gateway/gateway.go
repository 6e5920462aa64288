// Package gateway is an OpenAI-compatible front door that rate limits chat
// completion traffic per API key before it would reach a model backend.
//
// Every POST /v1/chat/completions is authenticated by bearer token, priced
// by a token Estimator, and admitted through a llmgate.Limiter in a single
// atomic check across all three quota dimensions (requests, input tokens,
// output tokens). Admitted requests receive a mock completion; denied
// requests receive a 429 naming the exhausted dimension.
//
//	catalog := llmgate.DefaultCatalog()
//	limiter, _ := llmgate.NewHybridSlidingWindow(
//		llmgate.Quota{RPM: 60, InputTPM: 10000, OutputTPM: 5000},
//		llmgate.WithQuotaFunc(catalog.QuotaFunc()),
//	)
//	gw, _ := gateway.New(gateway.Config{Catalog: catalog, Limiter: limiter})
//	http.ListenAndServe(":8003", gw)
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	llmgate "github.com/krishna-kudari/llmgate"
)

// mockContent is the canned assistant reply returned for admitted requests.
const mockContent = "This is a mock response from the rate-limited gateway."

// Config configures a Gateway.
type Config struct {
	// Catalog maps API keys to quota tiers. Required.
	Catalog *llmgate.Catalog

	// Limiter admits or denies priced requests. Required.
	Limiter llmgate.Limiter

	// Estimator prices requests before admission. Defaults to the
	// 4-chars-per-token CharEstimator with a 50-token output reservation.
	Estimator Estimator

	// Logger receives structured request logs. Defaults to a no-op logger.
	Logger zerolog.Logger

	// DenyUnknownKeys rejects API keys absent from the catalog with 401.
	// When false (the default) unknown keys are admitted without rate
	// limiting, matching a deployment where key validation lives upstream.
	DenyUnknownKeys bool

	// Metrics, when set, is mounted at GET /metrics (typically
	// promhttp.Handler or promhttp.HandlerFor on a private registry).
	Metrics http.Handler

	// RedisPoolSize is reported by GET /health. Leave zero for the
	// in-memory engine.
	RedisPoolSize int
}

// Gateway is the HTTP front door. It implements http.Handler.
type Gateway struct {
	cfg    Config
	router *gin.Engine
}

// New builds a Gateway from cfg.
func New(cfg Config) (*Gateway, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("gateway: Catalog is required")
	}
	if cfg.Limiter == nil {
		return nil, errors.New("gateway: Limiter is required")
	}
	if cfg.Estimator == nil {
		cfg.Estimator = DefaultEstimator()
	}

	g := &Gateway{cfg: cfg}

	router := gin.New()
	router.Use(gin.Recovery())
	router.POST("/v1/chat/completions", g.chatCompletions)
	router.GET("/health", g.health)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	g.router = router

	return g, nil
}

// Router exposes the underlying gin engine, e.g. to register extra routes.
func (g *Gateway) Router() *gin.Engine {
	return g.router
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

func (g *Gateway) chatCompletions(c *gin.Context) {
	apiKey, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Missing or invalid authorization"})
		return
	}

	var req ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	if _, known := g.cfg.Catalog.Lookup(apiKey); !known {
		if g.cfg.DenyUnknownKeys {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid API key"})
			return
		}
		// Unknown keys bypass rate limiting entirely; no store round-trip.
		c.JSON(http.StatusOK, g.mockCompletion(&req))
		return
	}

	usage := llmgate.Usage{
		InputTokens:  g.cfg.Estimator.EstimateInput(&req),
		OutputTokens: g.cfg.Estimator.EstimateOutput(&req),
	}

	result, err := g.cfg.Limiter.Allow(c.Request.Context(), apiKey, usage)
	if err != nil {
		g.cfg.Logger.Error().Err(err).Str("api_key", apiKey).Msg("admission check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	if !result.Allowed {
		g.cfg.Logger.Warn().
			Str("api_key", apiKey).
			Str("reason", string(result.Reason)).
			Int64("limit", result.Limit).
			Msg("rate limit exceeded")
		c.Header("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()+0.5), 10))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"detail": "Rate limit exceeded: " + string(result.Reason),
		})
		return
	}

	g.cfg.Logger.Debug().
		Str("api_key", apiKey).
		Int64("input_tokens", usage.InputTokens).
		Int64("output_tokens", usage.OutputTokens).
		Msg("request admitted")
	c.JSON(http.StatusOK, g.mockCompletion(&req))
}

func (g *Gateway) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"timestamp":       float64(time.Now().UnixMicro()) / 1e6,
		"goroutines":      runtime.NumGoroutine(),
		"redis_pool_size": g.cfg.RedisPoolSize,
	})
}

func (g *Gateway) mockCompletion(req *ChatCompletionRequest) ChatCompletionResponse {
	now := time.Now().Unix()
	input := g.cfg.Estimator.EstimateInput(req)
	output := g.cfg.Estimator.EstimateOutput(req)
	return ChatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-%x", now),
		Object:  "chat.completion",
		Created: now,
		Model:   req.Model,
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: "assistant", Content: mockContent},
			FinishReason: "stop",
		}},
		Usage: Usage{
			PromptTokens:     input,
			CompletionTokens: output,
			TotalTokens:      input + output,
		},
	}
}

// bearerToken extracts the API key from an Authorization header.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
