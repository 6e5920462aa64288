package middleware

// Fiber Adapter
//
// Fiber uses fasthttp (not net/http), so the core AdmissionLimit middleware
// cannot be wrapped directly. The fibermw subpackage provides a native
// adapter:
//
//	import (
//	    "github.com/gofiber/fiber/v2"
//	    llmgate "github.com/krishna-kudari/llmgate"
//	    "github.com/krishna-kudari/llmgate/middleware/fibermw"
//	)
//
//	func main() {
//	    quota := llmgate.Quota{RPM: 500, InputTPM: 60000, OutputTPM: 20000}
//	    limiter, _ := llmgate.NewHybridSlidingWindow(quota, llmgate.WithRedis(redisClient))
//
//	    app := fiber.New()
//	    app.Use(fibermw.AdmissionLimit(limiter, fibermw.KeyByBearer))
//	    app.Post("/v1/chat/completions", handler)
//	    app.Listen(":8003")
//	}
//
// For a hand-rolled middleware with custom behavior:
//
//	app.Use(func(c *fiber.Ctx) error {
//	    key := c.Get("X-API-Key")
//	    result, err := limiter.Allow(c.UserContext(), key, llmgate.Usage{})
//	    if err != nil {
//	        return c.Next() // fail open
//	    }
//
//	    c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
//
//	    if !result.Allowed {
//	        c.Set("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds()+0.5)))
//	        return c.Status(429).JSON(fiber.Map{"detail": "Rate limit exceeded: " + string(result.Reason)})
//	    }
//	    return c.Next()
//	})
