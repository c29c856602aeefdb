package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

// IdentityKey is the echo.Context key holding the caller's domain.Identity.
const IdentityKey = "identity"

// Auth verifies the bearer token with the configured identity provider and
// injects the resulting identity into the context.
func Auth(provider ports.IdentityProvider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			id, err := provider.Verify(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil || id == nil || id.UID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(IdentityKey, *id)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity set by Auth.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(IdentityKey).(domain.Identity)
	if !ok || id.UID == "" {
		return domain.Identity{}, false
	}
	return id, true
}
