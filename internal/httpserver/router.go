package httpserver

import (
	"log/slog"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/middleware/auth"
	"github.com/Skotchmaster/todo_backend/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/todo_backend/internal/middleware/logging"
	"github.com/Skotchmaster/todo_backend/internal/middleware/ratelimit"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/Skotchmaster/todo_backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type Deps struct {
	DB        *gorm.DB
	Logger    *slog.Logger
	Auth      *service.AuthService
	Passwords *service.PasswordService
	Users     *service.UserService
	Authn     *auth.Authenticator

	Cookies     CookieConfig
	CSRFEnabled bool

	// Limiter may be nil, which disables rate limiting.
	Limiter   ratelimit.Store
	RateLimit ratelimit.Config
	// AuthRateLimits apply to every /api/auth route, each with its own
	// counter prefix.
	AuthRateLimits []ratelimit.Config

	Now func() time.Time
}

// New builds an echo instance with the middleware chain and all routes.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler

	base := d.Logger
	if base == nil {
		base = logging.Discard()
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(base))
	if d.CSRFEnabled {
		e.Use(csrf.Middleware(csrf.Config{
			CookiePath: "/",
			Domain:     d.Cookies.Domain,
			Secure:     d.Cookies.Secure,
			SkipPaths:  []string{"/api/auth/login", "/api/auth/refresh"},
		}))
	}

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	authH := &AuthHTTP{Svc: d.Auth, Cookies: d.Cookies, Now: d.Now}
	pwH := &PasswordHTTP{Svc: d.Passwords}
	usersH := &UsersHTTP{Svc: d.Users}
	healthH := &HealthHTTP{DB: d.DB}

	requireAuth := d.Authn.RequireAuth
	adminOnly := auth.RequireRole(models.RoleAdmin)

	api := e.Group("/api")

	api.GET("/health", healthH.Check)

	authLimits := make([]echo.MiddlewareFunc, 0, len(d.AuthRateLimits))
	for _, cfg := range d.AuthRateLimits {
		authLimits = append(authLimits, ratelimit.Middleware(cfg, d.Limiter))
	}
	a := api.Group("/auth", authLimits...)
	a.POST("/login", authH.Login, ratelimit.Middleware(d.RateLimit, d.Limiter))
	a.POST("/refresh", authH.Refresh)
	a.POST("/logout", authH.LogOut)
	a.GET("/me", authH.Me, requireAuth)

	api.POST("/password/change", pwH.Change, requireAuth)

	users := api.Group("/users", requireAuth)
	users.PATCH("/me", usersH.UpdateMe)
	users.GET("", usersH.List, adminOnly)
	users.POST("", usersH.Create, adminOnly)
	users.DELETE("/:id", usersH.Delete, adminOnly)
}
