package middleware

import (
	"context"
	"net/http"

	applogger "StockDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit rejects requests over the per-client budget with 429. Limiter
// errors fail open.
func RateLimit(lim Limiter, l *applogger.Logger, skip func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}
			ok, err := lim.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				l.Warn("rate limiter unavailable", applogger.Error(err))
				return next(c)
			}
			if !ok {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
