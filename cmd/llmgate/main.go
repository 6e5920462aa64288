// Command llmgate runs the rate-limited OpenAI-compatible gateway.
//
// Configuration is environment-driven (a local .env file is honored):
//
//	PORT                 listen port                       (default 8003)
//	REDIS_ADDR           Redis address; empty = in-memory  (default localhost:6379)
//	REDIS_POOL_SIZE      Redis connection pool size        (default 500)
//	KEY_PREFIX           storage key namespace             (default rl)
//	FAIL_OPEN            admit on backend errors           (default true)
//	DENY_UNKNOWN_KEYS    401 keys absent from the catalog  (default false)
//	WINDOW_SECONDS       sliding window span               (default 60)
//	CALIBRATION_SECONDS  counter rebuild interval          (default 30)
//	LOG_LEVEL            zerolog level                     (default info)
//	METRICS              mount GET /metrics                (default true)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	llmgate "github.com/krishna-kudari/llmgate"
	"github.com/krishna-kudari/llmgate/gateway"
	"github.com/krishna-kudari/llmgate/metrics"
)

type config struct {
	port               string
	redisAddr          string
	redisPoolSize      int
	keyPrefix          string
	failOpen           bool
	denyUnknownKeys    bool
	windowSeconds      int
	calibrationSeconds int
	logLevel           string
	metrics            bool
}

func loadConfig() config {
	// Missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	return config{
		port:               envString("PORT", "8003"),
		redisAddr:          envString("REDIS_ADDR", "localhost:6379"),
		redisPoolSize:      envInt("REDIS_POOL_SIZE", 500),
		keyPrefix:          envString("KEY_PREFIX", "rl"),
		failOpen:           envBool("FAIL_OPEN", true),
		denyUnknownKeys:    envBool("DENY_UNKNOWN_KEYS", false),
		windowSeconds:      envInt("WINDOW_SECONDS", 60),
		calibrationSeconds: envInt("CALIBRATION_SECONDS", 30),
		logLevel:           envString("LOG_LEVEL", "info"),
		metrics:            envBool("METRICS", true),
	}
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(name string, def bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func main() {
	cfg := loadConfig()

	level, err := zerolog.ParseLevel(cfg.logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	catalog := llmgate.DefaultCatalog()

	opts := []llmgate.Option{
		llmgate.WithQuotaFunc(catalog.QuotaFunc()),
		llmgate.WithKeyPrefix(cfg.keyPrefix),
		llmgate.WithFailOpen(cfg.failOpen),
		llmgate.WithWindow(time.Duration(cfg.windowSeconds) * time.Second),
		llmgate.WithCalibrationInterval(time.Duration(cfg.calibrationSeconds) * time.Second),
	}

	poolSize := 0
	if cfg.redisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:            cfg.redisAddr,
			PoolSize:        cfg.redisPoolSize,
			ConnMaxIdleTime: 5 * time.Minute,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := client.Ping(ctx).Err(); err != nil {
			// Keep serving; per-request errors already fail open.
			logger.Warn().Err(err).Str("addr", cfg.redisAddr).
				Msg("redis unreachable at boot, continuing")
		}
		cancel()
		opts = append(opts, llmgate.WithRedis(client))
		poolSize = cfg.redisPoolSize
		defer client.Close()
	}

	// The default quota backstops keys the catalog resolver rejects.
	limiter, err := llmgate.NewHybridSlidingWindow(
		llmgate.Quota{RPM: 60, InputTPM: 10000, OutputTPM: 5000}, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("building limiter")
	}

	gwCfg := gateway.Config{
		Catalog:         catalog,
		Limiter:         limiter,
		Logger:          logger,
		DenyUnknownKeys: cfg.denyUnknownKeys,
		RedisPoolSize:   poolSize,
	}

	if cfg.metrics {
		registry := prometheus.NewRegistry()
		collector := metrics.NewCollector(metrics.WithRegistry(registry))
		gwCfg.Limiter = metrics.Wrap(limiter, metrics.HybridSlidingWindow, collector)
		gwCfg.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	gw, err := gateway.New(gwCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("building gateway")
	}

	server := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           gw,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.port).
			Str("redis_addr", cfg.redisAddr).
			Bool("fail_open", cfg.failOpen).
			Bool("metrics", cfg.metrics).
			Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
