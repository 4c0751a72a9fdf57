package loggingmw

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/labstack/echo/v4"
)

// RequestLogger puts a request-scoped logger into the request context and
// writes one line per request once the response status is known.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := base.With(
				"method", req.Method,
				"path", c.Path(),
				"url", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			// handlers may have replaced the logger with one carrying user_id
			l = logging.FromContext(c.Request().Context())

			switch {
			case status >= http.StatusInternalServerError:
				l.Error("request_completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errString(err))
			case status >= http.StatusBadRequest:
				l.Warn("request_completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errString(err))
			default:
				l.Info("request_completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil {
		return he.Internal.Error()
	}
	return err.Error()
}
