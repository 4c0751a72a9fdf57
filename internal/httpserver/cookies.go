package httpserver

import (
	"net/http"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/middleware/auth"
	"github.com/Skotchmaster/todo_backend/internal/service"
	"github.com/labstack/echo/v4"
)

const RefreshCookie = "refresh_token"

type CookieConfig struct {
	Path   string
	Domain string
	Secure bool
}

func (cc CookieConfig) path() string {
	if cc.Path == "" {
		return "/api"
	}
	return cc.Path
}

func (cc CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cc.path(),
		Domain:   cc.Domain,
		MaxAge:   maxAge,
		Secure:   cc.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// setSession writes both token cookies, each living as long as its token.
func (cc CookieConfig) setSession(c echo.Context, s *service.Session, now time.Time) {
	c.SetCookie(cc.cookie(auth.AccessCookie, s.Access.Value, secondsUntil(s.Access.ExpiresAt, now)))
	c.SetCookie(cc.cookie(RefreshCookie, s.Refresh.Value, secondsUntil(s.Refresh.ExpiresAt, now)))
}

// clearSession expires both cookies. MaxAge -1 is sent as Max-Age=0.
func (cc CookieConfig) clearSession(c echo.Context) {
	c.SetCookie(cc.cookie(auth.AccessCookie, "", -1))
	c.SetCookie(cc.cookie(RefreshCookie, "", -1))
}

func secondsUntil(t, now time.Time) int {
	s := int(t.Sub(now).Seconds())
	if s < 1 {
		return 1
	}
	return s
}
