package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Skotchmaster/todo_backend/internal/config"
	"github.com/Skotchmaster/todo_backend/internal/db"
	"github.com/Skotchmaster/todo_backend/internal/events"
	"github.com/Skotchmaster/todo_backend/internal/hash"
	"github.com/Skotchmaster/todo_backend/internal/logging"
	"github.com/Skotchmaster/todo_backend/internal/repo"
	"github.com/Skotchmaster/todo_backend/internal/search"
	"github.com/Skotchmaster/todo_backend/internal/service"
	"github.com/Skotchmaster/todo_backend/internal/tokens"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const redisPingTimeout = 2 * time.Second

// app holds the process-wide dependencies every command builds on.
// Kafka, Elasticsearch and Redis are optional and stay nil when unset or
// unreachable.
type app struct {
	cfg config.Config
	log *slog.Logger

	db     *gorm.DB
	repo   *repo.GormRepo
	hasher *hash.Hasher
	issuer *tokens.Issuer
	events events.Publisher
	users  *search.UserDirectory
	redis  *redis.Client
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp connects the database and, when configured, the optional backends.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	l := logging.New(cfg.LogLevel)
	a := &app{cfg: cfg, log: l, events: events.Nop{}}

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.db = gdb
	if db.IsSQLite(cfg.DatabaseURL) || cfg.DBAutoMigrate {
		if err := db.AutoMigrate(gdb); err != nil {
			a.close()
			return nil, err
		}
	}
	a.repo = repo.New(gdb)

	if a.hasher, err = hash.New(cfg.BcryptCost); err != nil {
		a.close()
		return nil, err
	}
	a.issuer, err = tokens.NewIssuer(tokens.Config{
		Secret:     cfg.JWTSecret,
		Algorithm:  cfg.JWTAlgorithm,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	if len(cfg.KafkaBrokers) > 0 {
		if err := events.EnsureTopic(cfg.KafkaBrokers[0], cfg.KafkaTopic); err != nil {
			l.Warn("kafka_topic_check_failed", "topic", cfg.KafkaTopic, "error", err)
		}
		prod, err := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			l.Warn("kafka_disabled", "error", err)
		} else {
			a.events = prod
		}
	}

	if cfg.ESURL != "" {
		es, err := search.NewClient(search.Config{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			l.Warn("elasticsearch_disabled", "error", err)
		} else {
			dir := search.NewUserDirectory(es, cfg.ESUserIndex)
			if err := dir.EnsureIndex(ctx); err != nil {
				l.Warn("elasticsearch_disabled", "error", err)
			} else {
				a.users = dir
			}
		}
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			l.Warn("redis_disabled", "addr", cfg.RedisAddr, "error", err)
			_ = rdb.Close()
		} else {
			a.redis = rdb
		}
	}

	return a, nil
}

func (a *app) authService() *service.AuthService {
	return &service.AuthService{Users: a.repo, Tokens: a.repo, Hasher: a.hasher, Issuer: a.issuer, Events: a.events}
}

func (a *app) passwordService() *service.PasswordService {
	return &service.PasswordService{
		Users:          a.repo,
		Tokens:         a.repo,
		Hasher:         a.hasher,
		Events:         a.events,
		RevokeSessions: a.cfg.RevokeOnPwChg,
	}
}

func (a *app) userService() *service.UserService {
	svc := &service.UserService{Repo: a.repo, Hasher: a.hasher, Events: a.events}
	if a.users != nil {
		svc.Index = a.users
	}
	return svc
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis_close_failed", "error", err)
		}
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Error("kafka_close_failed", "error", err)
		}
	}
	if a.db != nil {
		if err := db.Close(a.db); err != nil {
			a.log.Error("db_close_failed", "error", err)
		}
	}
}
