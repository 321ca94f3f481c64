package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/web/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, "http://localhost:8000", cfg.Upstream.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "accessToken", cfg.Cookies.AccessToken)
	assert.Equal(t, "gatherly_client", cfg.Cookies.ClientKey)
	assert.False(t, cfg.Cookies.Secure, "dev mode defaults to insecure cookies")
	assert.Equal(t, "INR", cfg.Checkout.Currency)
	assert.Equal(t, "http://localhost:8000/api/payments/verify", cfg.Checkout.CallbackURL)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 8080
env: production
upstream:
  base_url: https://api.gatherly.example/
  timeout_seconds: 30
  stub: false
cookies:
  secure: true
checkout:
  key_id: rzp_live_abc
allowed_origins:
  - "*.gatherly.example"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "https://api.gatherly.example", cfg.Upstream.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.False(t, cfg.Upstream.Stub)
	assert.True(t, cfg.Cookies.Secure)
	assert.Equal(t, "rzp_live_abc", cfg.Checkout.KeyID)
	assert.Equal(t, []string{"*.gatherly.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://api.gatherly.example/api/payments/verify", cfg.Checkout.CallbackURL)
}

func TestLoadEnvFallbacks(t *testing.T) {
	t.Setenv("GATHERLY_PORT", "4000")
	t.Setenv("GATHERLY_API_URL", "http://backend:9000")
	t.Setenv("GATHERLY_UPSTREAM_STUB", "true")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, "http://backend:9000", cfg.Upstream.BaseURL)
	assert.True(t, cfg.Upstream.Stub)
}
