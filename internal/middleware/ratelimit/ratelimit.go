package ratelimit

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Prefix  string
}

// Store counts hits per key inside a fixed window.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Hit increments key and starts its window on the first hit.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	ttl, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: redis ttl: %w", err)
	}
	// a negative ttl means the window was never started
	if count == 1 || ttl < 0 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("ratelimit: redis expire: %w", err)
		}
		ttl = window
	}
	return count, ttl, nil
}

// Middleware limits requests per client IP and route. With no store or when
// disabled it passes everything through; store errors fail open.
func Middleware(cfg Config, store Store) echo.MiddlewareFunc {
	if !cfg.Enabled || store == nil || cfg.Limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := cfg.Prefix + ":" + c.Path() + ":" + c.RealIP()

			count, ttl, err := store.Hit(ctx, key, cfg.Window)
			if err != nil {
				logging.FromContext(ctx).Warn("ratelimit_unavailable", "error", err)
				return next(c)
			}

			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				if ttl <= 0 {
					ttl = cfg.Window
				}
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
				logging.FromContext(ctx).Warn("ratelimit_exceeded", "key", key, "count", count)
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, try again later")
			}
			return next(c)
		}
	}
}
