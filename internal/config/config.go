// Package config loads server settings from RENTZY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Listen     string `env:"RENTZY_LISTEN" envDefault:":8080"`
	RPCSocket  string `env:"RENTZY_RPC_SOCKET" envDefault:"./rentzy.sock"`
	DBPath     string `env:"RENTZY_DB" envDefault:"./rentzy.db"`
	AdminEmail string `env:"RENTZY_ADMIN_EMAIL" envDefault:"admin@rentzy.local"`
	AdminPass  string `env:"RENTZY_ADMIN_PASSWORD" envDefault:"admin123"`

	SessionTTL time.Duration `env:"RENTZY_SESSION_TTL" envDefault:"24h"`

	JWTSecret string        `env:"RENTZY_JWT_SECRET"`
	JWTIssuer string        `env:"RENTZY_JWT_ISSUER" envDefault:"rentzy-backoffice"`
	JWTTTL    time.Duration `env:"RENTZY_JWT_TTL" envDefault:"1h"`

	LogLevel  string `env:"RENTZY_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"RENTZY_LOG_FORMAT" envDefault:"text"`

	LoginRatePerSecond float64 `env:"RENTZY_LOGIN_RATE" envDefault:"1"`
	LoginBurst         int     `env:"RENTZY_LOGIN_BURST" envDefault:"5"`

	MetricsEnabled bool `env:"RENTZY_METRICS" envDefault:"true"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a reverse proxy that overwrites them.
	TrustProxyHeaders bool `env:"RENTZY_TRUST_PROXY_HEADERS" envDefault:"false"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.JWTSecret != "" {
		if len(c.JWTSecret) < 16 {
			errs = append(errs, errors.New("jwt secret must be at least 16 bytes"))
		}
		if c.JWTTTL <= 0 {
			errs = append(errs, errors.New("jwt ttl must be positive"))
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.LoginRatePerSecond <= 0 || c.LoginBurst <= 0 {
		errs = append(errs, errors.New("login rate and burst must be positive"))
	}
	return errors.Join(errs...)
}
