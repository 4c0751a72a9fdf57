package auth

import (
	"context"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/labstack/echo/v4"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

// CurrentIdentity reads the identity RequireAuth attached to the request.
func CurrentIdentity(c echo.Context) (domain.Identity, bool) {
	return IdentityFromContext(c.Request().Context())
}
