package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/threatflux/dockerComposePortsDump/internal/utils"
)

// RateLimit answers 429 when a client exceeds its limiter. A nil limiter disables it.
func RateLimit(limiter *utils.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(utils.GetClientIP(c)) {
			utils.TooManyRequests(c, "Rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
