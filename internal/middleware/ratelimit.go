package middleware

import (
	"github.com/anonto42/nano-midea/app/internal/ratelimit"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/labstack/echo/v4"
)

// RateLimit throttles requests per principal, falling back to the client IP
func RateLimit(limiter ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if p, ok := PrincipalFrom(c); ok {
				key = p.UID
			}
			if !limiter.Allow(key) {
				return apperrors.WrapWithCode(apperrors.ErrRateLimited, apperrors.CodeRateLimited, "Too many requests, slow down")
			}
			return next(c)
		}
	}
}
