package middleware

// Gin Adapter
//
// Gin supports net/http middleware via gin.WrapH, but the ginmw subpackage
// provides a native adapter with the full Config surface:
//
//	import (
//	    "github.com/gin-gonic/gin"
//	    llmgate "github.com/krishna-kudari/llmgate"
//	    "github.com/krishna-kudari/llmgate/middleware/ginmw"
//	)
//
//	func main() {
//	    quota := llmgate.Quota{RPM: 500, InputTPM: 60000, OutputTPM: 20000}
//	    limiter, _ := llmgate.NewHybridSlidingWindow(quota, llmgate.WithRedis(redisClient))
//
//	    r := gin.Default()
//	    r.Use(ginmw.AdmissionLimit(limiter, ginmw.KeyByBearer))
//	    r.POST("/v1/chat/completions", handler)
//	    r.Run(":8003")
//	}
//
// For a hand-rolled middleware with custom behavior:
//
//	r.Use(func(c *gin.Context) {
//	    key := c.GetHeader("X-API-Key")
//	    result, err := limiter.Allow(c.Request.Context(), key, llmgate.Usage{})
//	    if err != nil {
//	        c.Next() // fail open
//	        return
//	    }
//
//	    c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
//
//	    if !result.Allowed {
//	        c.Header("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds()+0.5)))
//	        c.AbortWithStatusJSON(429, gin.H{"detail": "Rate limit exceeded: " + string(result.Reason)})
//	        return
//	    }
//	    c.Next()
//	})
