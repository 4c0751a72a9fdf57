package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/Skotchmaster/todo_backend/internal/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestAuthenticator(t *testing.T, now func() time.Time) *Authenticator {
	t.Helper()
	iss, err := tokens.NewIssuer(tokens.Config{Secret: testSecret, AccessTTL: time.Hour, Now: now})
	require.NoError(t, err)
	return NewAuthenticator(iss)
}

func serve(t *testing.T, chain []echo.MiddlewareFunc, setup func(*http.Request)) (*httptest.ResponseRecorder, *domain.Identity) {
	t.Helper()
	e := echo.New()
	var seen *domain.Identity
	handler := func(c echo.Context) error {
		if id, ok := CurrentIdentity(c); ok {
			seen = &id
		}
		return c.NoContent(http.StatusOK)
	}
	e.GET("/api/x", handler, chain...)

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func withCookie(v string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessCookie, Value: v}) }
}

func signed(t *testing.T, claims jwt.Claims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	now := time.Now()
	a := newTestAuthenticator(t, func() time.Time { return now })
	future := jwt.NewNumericDate(now.Add(time.Hour))

	tok, err := a.Issuer.IssueAccess(4, "a@x.com", models.RoleAdmin)
	require.NoError(t, err)
	id, err := a.Authenticate(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{UserID: 4, Email: "a@x.com", Role: models.RoleAdmin}, id)

	// role defaults to user for older tokens
	id, err = a.Authenticate(signed(t, tokens.AccessClaims{UserID: 5, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, testSecret))
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, id.Role)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"bad signature":  signed(t, tokens.AccessClaims{UserID: 5, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, "wrong"),
		"expired":        signed(t, tokens.AccessClaims{UserID: 5, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}}, testSecret),
		"missing userid": signed(t, tokens.AccessClaims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, testSecret),
		"refresh typed":  signed(t, tokens.AccessClaims{UserID: 5, Type: tokens.TypeRefresh, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, testSecret),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(raw)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestRequireAuth_Cookie(t *testing.T) {
	a := newTestAuthenticator(t, time.Now)
	tok, err := a.Issuer.IssueAccess(9, "a@x.com", models.RoleUser)
	require.NoError(t, err)

	rec, seen := serve(t, []echo.MiddlewareFunc{a.RequireAuth}, withCookie(tok.Value))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, uint(9), seen.UserID)
}

func TestRequireAuth_BearerFallback(t *testing.T) {
	a := newTestAuthenticator(t, time.Now)
	tok, err := a.Issuer.IssueAccess(9, "a@x.com", models.RoleUser)
	require.NoError(t, err)

	rec, seen := serve(t, []echo.MiddlewareFunc{a.RequireAuth}, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Value)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
}

func TestRequireAuth_Rejects(t *testing.T) {
	now := time.Now()
	a := newTestAuthenticator(t, func() time.Time { return now })

	rec, seen := serve(t, []echo.MiddlewareFunc{a.RequireAuth}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	expired := signed(t, tokens.AccessClaims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Second))}}, testSecret)
	rec, _ = serve(t, []echo.MiddlewareFunc{a.RequireAuth}, withCookie(expired))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestAuthorize(t *testing.T) {
	assert.ErrorIs(t, Authorize(nil, models.RoleAdmin), domain.ErrUnauthorized)
	assert.ErrorIs(t, Authorize(&domain.Identity{UserID: 1, Role: models.RoleUser}, models.RoleAdmin), domain.ErrForbidden)
	assert.NoError(t, Authorize(&domain.Identity{UserID: 1, Role: models.RoleAdmin}, models.RoleAdmin))
}

// Admin passes, a plain user gets 403, no token gets 401.
func TestRequireRole_Chain(t *testing.T) {
	a := newTestAuthenticator(t, time.Now)
	chain := []echo.MiddlewareFunc{a.RequireAuth, RequireRole(models.RoleAdmin)}

	admin, err := a.Issuer.IssueAccess(1, "root@x.com", models.RoleAdmin)
	require.NoError(t, err)
	user, err := a.Issuer.IssueAccess(2, "a@x.com", models.RoleUser)
	require.NoError(t, err)

	rec, _ := serve(t, chain, withCookie(admin.Value))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(t, chain, withCookie(user.Value))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serve(t, chain, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_WithoutAuthenticator(t *testing.T) {
	rec, _ := serve(t, []echo.MiddlewareFunc{RequireRole(models.RoleAdmin)}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), domain.Identity{UserID: 3, Role: models.RoleUser})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(3), id.UserID)
}
