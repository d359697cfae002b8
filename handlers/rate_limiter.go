package handlers

import (
	"log/slog"
	"net/http"

	"realtime-scoring-backend/cache"
	"realtime-scoring-backend/identity"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware 限流中间件。先检查全局额度，再按用户（或客户端IP）限流
func RateLimitMiddleware(limiter *cache.UserRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := "ip:" + c.ClientIP()
		if id, ok := identity.FromContext(c); ok {
			key = "id:" + id.UserID
		}

		allowed, err := limiter.AllowUser(c.Request.Context(), key)
		if err != nil {
			// 限流器故障时放行，避免Redis问题影响投票
			slog.Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests", Code: "rate_limited", Retryable: true})
			return
		}
		c.Next()
	}
}
