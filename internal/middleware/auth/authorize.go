package auth

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/labstack/echo/v4"
)

// Authorize checks an established identity against a required role.
func Authorize(id *domain.Identity, required string) error {
	if id == nil {
		return domain.ErrUnauthorized
	}
	if id.Role != required {
		return domain.ErrForbidden
	}
	return nil
}

// RequireRole must run after RequireAuth.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var idp *domain.Identity
			if id, ok := CurrentIdentity(c); ok {
				idp = &id
			}

			err := Authorize(idp, role)
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, domain.ErrForbidden):
				logging.FromContext(c.Request().Context()).Warn("access_denied", "required_role", role, "role", idp.Role)
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions").SetInternal(err)
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required").SetInternal(err)
			}
		}
	}
}
