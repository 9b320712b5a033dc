package auth_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-headless-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvConfigDefaults(t *testing.T) {
	cfg, err := auth.LoadEnvConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.GetProviderBaseURL())
	assert.Equal(t, "/api/users/{id}", cfg.GetUserPath())
	assert.Equal(t, "storefront_sid", cfg.GetSessionCookieName())
	assert.Equal(t, "en", cfg.GetLocale())
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.GetForwardedHost())
}

func TestLoadEnvConfigOverrides(t *testing.T) {
	t.Setenv("STOREFRONT_AUTH_PROVIDER_URL", "https://auth.example.com")
	t.Setenv("STOREFRONT_AUTH_FORWARDED_HOST", "shop.example.com")
	t.Setenv("STOREFRONT_AUTH_SESSION_TTL", "2h")
	t.Setenv("STOREFRONT_AUTH_LOCALE", "de")
	t.Setenv("STOREFRONT_AUTH_REDIS_URL", "redis://localhost:6379/1")

	cfg, err := auth.LoadEnvConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://auth.example.com", cfg.ProviderBaseURL)
	assert.Equal(t, "shop.example.com", cfg.GetForwardedHost())
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "de", cfg.GetLocale())
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
}

func TestLoadEnvConfigInvalidDuration(t *testing.T) {
	t.Setenv("STOREFRONT_AUTH_HTTP_TIMEOUT", "soon")

	_, err := auth.LoadEnvConfig()
	assert.Error(t, err)
}

func TestManagerConfigSetsForwardedHost(t *testing.T) {
	manager := auth.NewSessionManager(nil,
		auth.WithManagerLogger(auth.NopLogger{}),
		auth.WithManagerConfig(auth.EnvConfig{ForwardedHost: "shop.example.com"}),
	)

	headers := manager.CreateHeaders("sess", "")
	assert.Equal(t, "shop.example.com", headers.Get(auth.HeaderForwardedHost))
	assert.Equal(t, "sess", headers.Get(auth.HeaderSessionToken))
}
