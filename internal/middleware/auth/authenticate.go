package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/Skotchmaster/todo_backend/internal/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const AccessCookie = "access_token"

// Authenticator checks access tokens. It never touches the database, so a
// revoked session keeps working until its access token expires.
type Authenticator struct {
	Issuer *tokens.Issuer
}

func NewAuthenticator(issuer *tokens.Issuer) *Authenticator {
	return &Authenticator{Issuer: issuer}
}

// Authenticate turns a raw access token into the caller's identity.
func (a *Authenticator) Authenticate(raw string) (domain.Identity, error) {
	if raw == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	claims, err := a.Issuer.ParseAccess(raw)
	if err != nil {
		return domain.Identity{}, errors.Join(domain.ErrUnauthorized, err)
	}
	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}
	return domain.Identity{UserID: claims.UserID, Email: claims.Email, Role: role}, nil
}

// RequireAuth reads the access_token cookie, falling back to an
// Authorization: Bearer header.
func (a *Authenticator) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context())

		id, err := a.Authenticate(tokenFromRequest(c))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				l.Warn("auth_rejected", "reason", "token expired")
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired").SetInternal(domain.ErrUnauthorized)
			}
			l.Warn("auth_rejected", "reason", "missing or invalid token")
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required").SetInternal(domain.ErrUnauthorized)
		}

		ctx := WithIdentity(c.Request().Context(), id)
		ctx = logging.IntoContext(ctx, l.With("user_id", id.UserID))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func tokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
