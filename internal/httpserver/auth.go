package httpserver

import (
	"net/http"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/middleware/auth"
	"github.com/Skotchmaster/todo_backend/internal/service"
	"github.com/labstack/echo/v4"
)

type AuthHTTP struct {
	Svc     *service.AuthService
	Cookies CookieConfig
	Now     func() time.Time
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHTTP) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("login_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	sess, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	h.Cookies.setSession(c, sess, h.now())
	l.Info("login_successful", "user_id", sess.User.ID)
	return c.JSON(http.StatusOK, echo.Map{"user": sess.User})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	ck, err := c.Cookie(RefreshCookie)
	if err != nil || ck.Value == "" {
		l.Warn("refresh_error", "status", http.StatusUnauthorized, "reason", "no refresh cookie")
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing").SetInternal(domain.ErrTokenInvalid)
	}

	sess, err := h.Svc.Refresh(ctx, ck.Value)
	if err != nil {
		return fail(c, err)
	}

	h.Cookies.setSession(c, sess, h.now())
	return c.JSON(http.StatusOK, echo.Map{
		"message": "token refreshed",
		"user":    sess.User,
	})
}

// LogOut always succeeds from the client's point of view; a failed revoke
// is logged and the cookies are cleared regardless.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	if ck, err := c.Cookie(RefreshCookie); err == nil && ck.Value != "" {
		if err := h.Svc.LogOut(ctx, ck.Value); err != nil {
			l.Error("logout_failed", "reason", "cannot revoke refresh token", "error", err)
		}
	}

	h.Cookies.clearSession(c)
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return fail(c, domain.ErrUnauthorized)
	}
	u, err := h.Svc.Me(c.Request().Context(), id.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid body", err)
	}
	if err := c.Validate(req); err != nil {
		return invalid(err)
	}
	return nil
}
