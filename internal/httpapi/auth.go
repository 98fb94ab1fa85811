package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/sportwire/internal/auth"
)

// requireBasicAuth protects mutating admin routes with HTTP basic auth
// against the configured admin credentials. Requests are rejected when no
// password hash is configured at all.
func (s *Server) requireBasicAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.cfg == nil || s.cfg.AdminPasswordHash == "" {
				return fail(c, http.StatusForbidden, "Admin API is not configured", nil)
			}

			username, password, ok := c.Request().BasicAuth()
			if !ok {
				return unauthorizedResponse(c)
			}
			if auth.NormalizeUsername(username) != auth.NormalizeUsername(s.cfg.AdminUser) {
				return unauthorizedResponse(c)
			}
			if !auth.VerifyPassword(password, s.cfg.AdminPasswordHash) {
				return unauthorizedResponse(c)
			}

			return next(c)
		}
	}
}

func unauthorizedResponse(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="sportwire admin"`)
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}
