package httpserver

import (
	"errors"
	"net/http"

	"github.com/Skotchmaster/todo_backend/internal/domain"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/labstack/echo/v4"
)

// fail maps a service error to an HTTP error with a generic message.
// Unknown errors are logged here, with full context, and become a 500.
func fail(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	code, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		code, msg = http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, domain.ErrTokenInvalid):
		code, msg = http.StatusUnauthorized, "invalid or expired refresh token"
	case errors.Is(err, domain.ErrUnauthorized):
		code, msg = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrInvalidCurrentPassword):
		code, msg = http.StatusUnauthorized, "current password is incorrect"
	case errors.Is(err, domain.ErrForbidden):
		code, msg = http.StatusForbidden, "insufficient permissions"
	case errors.Is(err, domain.ErrCannotDeleteAdmin):
		code, msg = http.StatusForbidden, "admin users cannot be deleted"
	case errors.Is(err, domain.ErrUserNotFound):
		code, msg = http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrUserExists):
		code, msg = http.StatusConflict, "email already registered"
	case errors.Is(err, domain.ErrValidation):
		code, msg = http.StatusBadRequest, "validation error"
	default:
		logging.FromContext(c.Request().Context()).Error("unhandled_error",
			"method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return echo.NewHTTPError(code, msg).SetInternal(err)
}

func badRequest(msg string, err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
}

func invalid(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, echo.Map{
		"error":   "validation error",
		"details": fieldErrors(err),
	}).SetInternal(err)
}

// errorHandler writes every error as {"error": message}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var body any = echo.Map{"error": "internal server error"}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case echo.Map:
			body = m
		case string:
			body = echo.Map{"error": m}
		default:
			body = echo.Map{"error": http.StatusText(code)}
		}
	} else {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", err)
	}
}
