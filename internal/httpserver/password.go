package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/middleware/auth"
	"github.com/Skotchmaster/todo_backend/internal/service"
	"github.com/labstack/echo/v4"
)

type PasswordHTTP struct {
	Svc *service.PasswordService
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,password"`
}

func (h *PasswordHTTP) Change(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "password_change")

	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return fail(c, domain.ErrUnauthorized)
	}

	var req changePasswordRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("password_change_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	if err := h.Svc.ChangePassword(ctx, id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}
