package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"casepay/internal/infrastructure/ratelimit"
	"casepay/pkg/errors"
	"casepay/pkg/logger"
	"casepay/pkg/response"
)

// RateLimit limits requests per client IP.
func RateLimit(limiter *ratelimit.KeyedLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			allowed, wait := limiter.Allow(ip)
			if !allowed {
				logger.Warn("rate limit exceeded", "ip", ip, "path", c.Path())
				retryAfter := int(wait.Round(time.Second) / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return response.Error(c, errors.New("RATE_LIMITED", "Rate limit exceeded", http.StatusTooManyRequests, nil))
			}

			return next(c)
		}
	}
}
