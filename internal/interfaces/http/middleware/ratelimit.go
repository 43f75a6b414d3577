package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"astro-persona-api/internal/config"
	"astro-persona-api/pkg/errors"
	"astro-persona-api/pkg/logger"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitKeyFunc 由客户端与路由构造限流键
type RateLimitKeyFunc func(clientID, route string) string

// RateLimit 按客户端 IP + 路由的滑动窗口限流；limiter 为 nil 时不限流
func RateLimit(cfg config.RateLimitConfig, limiter RateLimiter, keyFn RateLimitKeyFunc) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.RequestsPerWindow <= 0 {
		cfg.RequestsPerWindow = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if keyFn == nil {
		keyFn = func(clientID, route string) string { return "ratelimit:" + clientID + ":" + route }
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := keyFn(c.ClientIP(), route)

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.RequestsPerWindow, cfg.Window)
		if err != nil {
			// 限流器故障时放行
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     http.StatusTooManyRequests,
				"message":  errors.ErrTooManyRequests.Message,
				"error":    gin.H{"error_code": errors.CodeTooManyRequests},
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
