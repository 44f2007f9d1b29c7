package security

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client

	// Requests allowed per identifier per window.
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  30,
		window: time.Minute,
	}
}

// FlowRateLimit throttles flow mutations per user (falling back to IP
// for unauthenticated probes). Fails open when Redis is unavailable.
func (r *RateLimiter) FlowRateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identifier := c.RealIP()
			if userID, ok := c.Get("user_id").(string); ok && userID != "" {
				identifier = fmt.Sprintf("user:%s", userID)
			}

			key := fmt.Sprintf("ratelimit:flow:%s", identifier)

			count, err := r.redis.Incr(context.Background(), key).Result()
			if err == nil {
				if count == 1 {
					r.redis.Expire(context.Background(), key, r.window)
				}
				if count > r.limit {
					return c.JSON(http.StatusTooManyRequests, map[string]string{
						"error": "Too many requests. Please try again later.",
					})
				}
			}

			return next(c)
		}
	}
}

// AntiBotMiddleware rejects obvious scripted clients.
func (r *RateLimiter) AntiBotMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userAgent := c.Request().Header.Get("User-Agent")
			if r.isSuspiciousUserAgent(userAgent) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "Access denied",
				})
			}
			return next(c)
		}
	}
}

func (r *RateLimiter) isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
