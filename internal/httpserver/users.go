package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/middleware/auth"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/Skotchmaster/todo_backend/internal/service"
	"github.com/Skotchmaster/todo_backend/internal/util"
	"github.com/labstack/echo/v4"
)

type UsersHTTP struct {
	Svc *service.UserService
}

type userRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"  validate:"required,notblank,max=100"`
}

func (h *UsersHTTP) List(c echo.Context) error {
	page, size := util.ParsePage(c.QueryParam("page"), c.QueryParam("size"))
	res, err := h.Svc.List(c.Request().Context(), c.QueryParam("q"), page, size)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *UsersHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_create")

	var req userRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("user_create_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	name := strings.TrimSpace(req.Name)
	u, password, err := h.Svc.Create(ctx, req.Email, &name, models.RoleUser)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"user":             u,
		"initial_password": password,
	})
}

func (h *UsersHTTP) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update_me")

	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return fail(c, domain.ErrUnauthorized)
	}

	var req userRequest
	if err := bindValid(c, &req); err != nil {
		l.Warn("user_update_error", "status", http.StatusBadRequest, "error", err)
		return err
	}

	name := strings.TrimSpace(req.Name)
	u, err := h.Svc.UpdateProfile(ctx, id.UserID, req.Email, &name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "profile updated",
		"user":    u,
	})
}

func (h *UsersHTTP) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return badRequest("invalid user id", err)
	}
	if err := h.Svc.Delete(c.Request().Context(), uint(id)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
