package middleware

// Echo Adapter
//
// Echo supports net/http middleware via echo.WrapMiddleware, but the echomw
// subpackage provides a native adapter with the full Config surface:
//
//	import (
//	    "github.com/labstack/echo/v4"
//	    llmgate "github.com/krishna-kudari/llmgate"
//	    "github.com/krishna-kudari/llmgate/middleware/echomw"
//	)
//
//	func main() {
//	    quota := llmgate.Quota{RPM: 500, InputTPM: 60000, OutputTPM: 20000}
//	    limiter, _ := llmgate.NewHybridSlidingWindow(quota, llmgate.WithRedis(redisClient))
//
//	    e := echo.New()
//	    e.Use(echomw.AdmissionLimit(limiter, echomw.KeyByBearer))
//	    e.POST("/v1/chat/completions", handler)
//	    e.Start(":8003")
//	}
//
// For a hand-rolled middleware with custom behavior:
//
//	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
//	    return func(c echo.Context) error {
//	        key := c.Request().Header.Get("X-API-Key")
//	        result, err := limiter.Allow(c.Request().Context(), key, llmgate.Usage{})
//	        if err != nil {
//	            return next(c) // fail open
//	        }
//
//	        c.Response().Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
//
//	        if !result.Allowed {
//	            c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds()+0.5)))
//	            return c.JSON(429, map[string]string{"detail": "Rate limit exceeded: " + string(result.Reason)})
//	        }
//	        return next(c)
//	    }
//	})
