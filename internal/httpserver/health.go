package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/todo_backend/internal/db"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type HealthHTTP struct {
	DB *gorm.DB
}

// Check answers ok; with ?deep=1 it also pings the database.
func (h *HealthHTTP) Check(c echo.Context) error {
	if c.QueryParam("deep") == "" || h.DB == nil {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
	if err := db.Ping(c.Request().Context(), h.DB); err != nil {
		logging.FromContext(c.Request().Context()).Error("health_db_unreachable", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": "down"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": "up"})
}
