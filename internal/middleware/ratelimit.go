package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"linkfeed.io/backend/internal/service"
	"linkfeed.io/backend/pkg/response"
)

// RateLimit guards a mutating endpoint with a per-user cooldown backed by
// redis. Requests inside the window get 429 plus the remaining wait.
func RateLimit(rdb *redis.Client, action string, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := response.GetUserID(c)
		if err != nil {
			// Unauthenticated requests are rejected by RequireAuth; nothing
			// for the limiter to key on here.
			c.Next()
			return
		}

		allowed, err := service.CheckAndSetRateLimit(c.Request.Context(), rdb, userID, action, window)
		if err != nil {
			// Redis being down must not take writes down with it.
			c.Next()
			return
		}
		if !allowed {
			ttl, _ := service.GetRateLimitTTL(c.Request.Context(), rdb, userID, action)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       fmt.Sprintf("too many %s requests, retry later", action),
				"retry_after": int64(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
