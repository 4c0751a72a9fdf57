package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/httpserver"
	"github.com/Skotchmaster/todo_backend/internal/middleware/auth"
	"github.com/Skotchmaster/todo_backend/internal/middleware/ratelimit"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	l := a.log
	users := a.userService()

	if a.cfg.AdminEmail != "" && a.cfg.AdminPasswordHash != "" {
		if _, _, err := users.EnsureAdmin(ctx, a.cfg.AdminEmail, a.cfg.AdminPasswordHash); err != nil {
			l.Error("admin_bootstrap_failed", "email", a.cfg.AdminEmail, "error", err)
		}
	} else {
		l.Warn("admin_bootstrap_skipped", "reason", "ADMIN_EMAIL or ADMIN_PASSWORD_HASH not set")
	}

	deps := &httpserver.Deps{
		DB:        a.db,
		Logger:    l,
		Auth:      a.authService(),
		Passwords: a.passwordService(),
		Users:     users,
		Authn:     auth.NewAuthenticator(a.issuer),
		Cookies: httpserver.CookieConfig{
			Path:   a.cfg.CookiePath,
			Domain: a.cfg.CookieDomain,
			Secure: a.cfg.CookieSecure,
		},
		CSRFEnabled: a.cfg.CSRFEnabled,
		RateLimit: ratelimit.Config{
			Enabled: a.cfg.RateLimitEnabled,
			Limit:   a.cfg.LoginPerMinute,
			Window:  time.Minute,
			Prefix:  "rl:login",
		},
		AuthRateLimits: []ratelimit.Config{
			{Enabled: a.cfg.RateLimitEnabled, Limit: a.cfg.AuthPerMinute, Window: time.Minute, Prefix: "rl:auth:min"},
			{Enabled: a.cfg.RateLimitEnabled, Limit: a.cfg.AuthPerHour, Window: time.Hour, Prefix: "rl:auth:hour"},
		},
	}
	if a.redis != nil {
		deps.Limiter = ratelimit.NewRedisStore(a.redis)
	} else if a.cfg.RateLimitEnabled {
		l.Warn("ratelimit_disabled", "reason", "redis unavailable")
	}

	e := httpserver.New(deps)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		l.Info("server_started", "addr", srv.Addr, "env", a.cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	l.Info("shutdown_complete")
	return nil
}
