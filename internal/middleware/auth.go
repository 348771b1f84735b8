package middleware

import (
	"context"
	"strings"

	"github.com/anonto42/nano-midea/app/internal/platform"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

// TokenVerifier checks a bearer token issued by the credential provider
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (platform.Principal, error)
}

// Principals reports who is signed in to the process session
type Principals interface {
	Current() (platform.Principal, bool)
}

// SessionAuth guards the bridge while a principal is signed in.
// Signed out, requests pass through untouched. Signed in, the request must carry
// a bearer token that verifies to that same principal.
func SessionAuth(verifier TokenVerifier, principals Principals) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			current, ok := principals.Current()
			if !ok {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperrors.Unauthenticated("Missing Authorization header")
			}

			// Expecting "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return apperrors.Unauthenticated("Invalid Authorization header format")
			}

			p, err := verifier.Verify(c.Request().Context(), parts[1])
			if err != nil {
				return apperrors.WrapWithCode(err, apperrors.CodeUnauthenticated, "Invalid or expired token")
			}
			if p.UID != current.UID {
				return apperrors.Unauthenticated("Token does not belong to the signed-in user")
			}

			c.Set(principalKey, current)
			return next(c)
		}
	}
}

// RequirePrincipal rejects requests that reached it without a verified principal
func RequirePrincipal() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := PrincipalFrom(c); !ok {
				return apperrors.Unauthenticated("Sign in to continue")
			}
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal SessionAuth stored on the request
func PrincipalFrom(c echo.Context) (platform.Principal, bool) {
	p, ok := c.Get(principalKey).(platform.Principal)
	return p, ok
}
