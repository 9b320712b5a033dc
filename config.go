package auth

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var _ Config = EnvConfig{}

// EnvConfig is the environment backed configuration for the storefront auth
// layer.
type EnvConfig struct {
	ProviderBaseURL   string        `env:"STOREFRONT_AUTH_PROVIDER_URL"    envDefault:"http://localhost:8000"`
	ForwardedHost     string        `env:"STOREFRONT_AUTH_FORWARDED_HOST"`
	UserPath          string        `env:"STOREFRONT_AUTH_USER_PATH"       envDefault:"/api/users/{id}"`
	SessionCookieName string        `env:"STOREFRONT_AUTH_SESSION_COOKIE"  envDefault:"storefront_sid"`
	SessionTTL        time.Duration `env:"STOREFRONT_AUTH_SESSION_TTL"     envDefault:"720h"`
	HTTPTimeout       time.Duration `env:"STOREFRONT_AUTH_HTTP_TIMEOUT"    envDefault:"10s"`
	RedisURL          string        `env:"STOREFRONT_AUTH_REDIS_URL"`
	DatabaseDSN       string        `env:"STOREFRONT_AUTH_DATABASE_DSN"`
	Locale            string        `env:"STOREFRONT_AUTH_LOCALE"          envDefault:"en"`
	ListenAddr        string        `env:"STOREFRONT_AUTH_ADDR"            envDefault:":3000"`
}

// LoadEnvConfig parses STOREFRONT_AUTH_* variables.
func LoadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return cfg, nil
}

func (c EnvConfig) GetProviderBaseURL() string   { return c.ProviderBaseURL }
func (c EnvConfig) GetForwardedHost() string     { return c.ForwardedHost }
func (c EnvConfig) GetUserPath() string          { return c.UserPath }
func (c EnvConfig) GetSessionCookieName() string { return c.SessionCookieName }
func (c EnvConfig) GetLocale() string            { return c.Locale }
