package main

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/samber/oops"

	"github.com/playgate/gatekeeper"
	"github.com/playgate/gatekeeper/httpapi"
)

const envPrefix = "GATEKEEPER_"

type databaseConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
}

type serveConfig struct {
	databaseConfig

	Environment     string        `env:"ENV" envDefault:"development"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"720h"`
	SigningSecret   string        `env:"SIGNING_SECRET,required,unset"`
	RedisURL        string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"false"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	MaxLoginAttempts int           `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LoginCooldown    time.Duration `env:"LOGIN_COOLDOWN" envDefault:"15m"`
	IPThrottle       bool          `env:"IP_THROTTLE" envDefault:"false"`
	AuditLog         bool          `env:"AUDIT_LOG" envDefault:"true"`

	Compat httpapi.Compat `envPrefix:"COMPAT_"`
}

// loadDotenv reads path into the process environment. A missing file is
// not an error; variables already set win.
func loadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("CONFIG_INVALID").With("env_file", path).Wrap(err)
	}
	return nil
}

func loadServeConfig(path string) (serveConfig, error) {
	if err := loadDotenv(path); err != nil {
		return serveConfig{}, err
	}
	cfg := serveConfig{Compat: httpapi.DefaultCompat()}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return serveConfig{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

func loadDatabaseConfig(path string) (databaseConfig, error) {
	if err := loadDotenv(path); err != nil {
		return databaseConfig{}, err
	}
	var cfg databaseConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return databaseConfig{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

// engineConfig maps process settings onto the engine defaults.
func (c serveConfig) engineConfig() gatekeeper.Config {
	cfg := gatekeeper.DefaultConfig()
	cfg.Environment = gatekeeper.Environment(c.Environment)
	cfg.JWT.Lifetime = c.SessionLifetime
	cfg.JWT.PrivateKey = []byte(c.SigningSecret)
	cfg.Security.MaxLoginAttempts = c.MaxLoginAttempts
	cfg.Security.LoginCooldown = c.LoginCooldown
	cfg.Security.EnableIPThrottle = c.IPThrottle
	cfg.Audit.Enabled = c.AuditLog
	return cfg
}
