package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML config at path, applies environment-variable fallbacks and
// defaults, and returns the normalized AppConfig. A missing file is not an error;
// the config is then assembled from env and defaults alone.
func Load(path string) (*AppConfig, error) {
	raw := rawAppConfig{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env/defaults
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return normalize(&raw), nil
}

func normalize(raw *rawAppConfig) *AppConfig {
	cfg := &AppConfig{
		Port:           firstInt(raw.Port, envInt("GATHERLY_PORT"), defaultPort),
		Env:            firstString(raw.Env, os.Getenv("GATHERLY_ENV"), os.Getenv("GO_ENV"), defaultEnv),
		DSN:            firstString(raw.DSN, raw.DatabaseURL, os.Getenv("GATHERLY_DSN"), defaultDSN),
		RedisURL:       firstString(raw.RedisURL, os.Getenv("GATHERLY_REDIS_URL"), defaultRedisURL),
		AllowedOrigins: raw.AllowedOrigins,
		JWTSecret:      firstString(raw.JWTSecret, os.Getenv("GATHERLY_JWT_SECRET")),
		Timezone:       firstString(raw.Timezone, os.Getenv("TZ")),
		LogDir:         strings.TrimSpace(raw.LogDir),
		StaticDir:      firstString(raw.StaticDir, "web"),
	}

	cfg.Upstream = UpstreamConfig{
		BaseURL: strings.TrimRight(firstString(raw.Upstream.BaseURL, raw.APIURL, os.Getenv("GATHERLY_API_URL"), defaultUpstreamBaseURL), "/"),
		Timeout: defaultUpstreamTimeout,
		Stub:    boolOr(raw.Upstream.Stub, envBool("GATHERLY_UPSTREAM_STUB")),
	}
	if raw.Upstream.TimeoutSeconds > 0 {
		cfg.Upstream.Timeout = time.Duration(raw.Upstream.TimeoutSeconds) * time.Second
	}

	cfg.Cookies = CookieConfig{
		AccessToken: firstString(raw.Cookies.AccessToken, defaultAccessTokenCookie),
		ClientKey:   firstString(raw.Cookies.ClientKey, defaultClientKeyCookie),
		Secure:      boolOr(raw.Cookies.Secure, !strings.EqualFold(firstString(raw.Env, defaultEnv), "development")),
	}

	cfg.Checkout = CheckoutConfig{
		KeyID:       firstString(raw.Checkout.KeyID, os.Getenv("GATHERLY_CHECKOUT_KEY_ID")),
		CallbackURL: firstString(raw.Checkout.CallbackURL, cfg.Upstream.BaseURL+"/api/payments/verify"),
		Currency:    firstString(raw.Checkout.Currency, defaultCheckoutCurrency),
		ThemeColor:  firstString(raw.Checkout.ThemeColor, defaultCheckoutTheme),
	}

	return cfg
}

func firstString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstInt(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func envInt(name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return 0
	}
	return n
}

func envBool(name string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(name)))
	return err == nil && b
}
