package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const placeholderSecret = "your-secret-key-change-this-in-production"

type Config struct {
	AppEnv     string
	ServerPort int
	LogLevel   string

	DatabaseURL   string
	DBAutoMigrate bool

	JWTSecret     string
	JWTAlgorithm  string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	BcryptCost    int
	CSRFEnabled   bool
	CookieSecure  bool
	CookieDomain  string
	CookiePath    string
	RevokeOnPwChg bool

	KafkaBrokers []string
	KafkaTopic   string

	ESURL       string
	ESUser      string
	ESPassword  string
	ESUserIndex string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitEnabled bool
	LoginPerMinute   int
	AuthPerMinute    int
	AuthPerHour      int

	AdminEmail        string
	AdminPasswordHash string
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("env_file_unreadable", "error", err)
	}

	cfg := Config{
		AppEnv:     EnvDefault("APP_ENV", "development"),
		ServerPort: EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBAutoMigrate: EnvBoolDefault("DB_AUTO_MIGRATE", false),

		JWTSecret:     EnvDefault("JWT_SECRET_KEY", placeholderSecret),
		JWTAlgorithm:  EnvDefault("JWT_ALGORITHM", "HS256"),
		AccessTTL:     time.Duration(EnvIntDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 1440)) * time.Minute,
		RefreshTTL:    time.Duration(EnvIntDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		BcryptCost:    EnvIntDefault("BCRYPT_COST", 12),
		CSRFEnabled:   EnvBoolDefault("CSRF_ENABLED", false),
		CookieSecure:  EnvBoolDefault("COOKIE_SECURE", false),
		CookieDomain:  os.Getenv("COOKIE_DOMAIN"),
		CookiePath:    EnvDefault("COOKIE_PATH", "/api"),
		RevokeOnPwChg: EnvBoolDefault("REVOKE_SESSIONS_ON_PASSWORD_CHANGE", false),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "user_events"),

		ESURL:       os.Getenv("ES_URL"),
		ESUser:      os.Getenv("ES_USER"),
		ESPassword:  os.Getenv("ES_PASSWORD"),
		ESUserIndex: EnvDefault("ES_USER_INDEX", "users"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       EnvIntDefault("REDIS_DB", 0),

		RateLimitEnabled: EnvBoolDefault("RATE_LIMIT_ENABLED", false),
		LoginPerMinute:   EnvIntDefault("RATE_LIMIT_LOGIN_PER_MINUTE", 10),
		AuthPerMinute:    EnvIntDefault("RATE_LIMIT_DEFAULT_PER_MINUTE", 50),
		AuthPerHour:      EnvIntDefault("RATE_LIMIT_DEFAULT_PER_HOUR", 200),

		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
	}
	return cfg, nil
}

func (c Config) IsProduction() bool { return c.AppEnv == "production" }

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET_KEY is empty")
	}
	if c.IsProduction() && c.JWTSecret == placeholderSecret {
		return errors.New("JWT_SECRET_KEY must be set in production")
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("JWT_ALGORITHM %q is not supported", c.JWTAlgorithm)
	}
	if c.AccessTTL <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.RefreshTTL <= 0 {
		return errors.New("REFRESH_TOKEN_EXPIRE_DAYS must be positive")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.ServerPort)
	}
	if c.LoginPerMinute <= 0 {
		return errors.New("RATE_LIMIT_LOGIN_PER_MINUTE must be positive")
	}
	if c.AuthPerMinute <= 0 || c.AuthPerHour <= 0 {
		return errors.New("RATE_LIMIT_DEFAULT_PER_MINUTE and RATE_LIMIT_DEFAULT_PER_HOUR must be positive")
	}
	return nil
}

// MustNonEmpty is for commands that cannot run without a given setting.
func MustNonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}
