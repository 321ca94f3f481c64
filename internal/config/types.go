package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int
	Env            string // "development" | "production"
	DSN            string // MySQL DSN for the client-session store
	RedisURL       string
	Upstream       UpstreamConfig
	Cookies        CookieConfig
	Checkout       CheckoutConfig
	AllowedOrigins []string
	JWTSecret      string // signs stub-backend access tokens only
	Timezone       string
	LogDir         string
	StaticDir      string
}

// UpstreamConfig describes the backend API this gateway fronts.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
	// Stub runs an in-process fake backend instead of dialing BaseURL.
	Stub bool
}

// CookieConfig names the cookies the guard and session store key on.
type CookieConfig struct {
	// AccessToken is the backend session cookie the route guard checks for presence.
	AccessToken string
	// ClientKey identifies the browser's durable session record.
	ClientKey string
	Secure    bool
}

// CheckoutConfig feeds the hosted payment widget options.
type CheckoutConfig struct {
	KeyID       string
	CallbackURL string
	Currency    string
	ThemeColor  string
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

type rawAppConfig struct {
	Port           int               `yaml:"port"`
	Env            string            `yaml:"env"`
	DSN            string            `yaml:"dsn"`
	DatabaseURL    string            `yaml:"database_url"`
	RedisURL       string            `yaml:"redis_url"`
	Upstream       rawUpstreamConfig `yaml:"upstream"`
	APIURL         string            `yaml:"api_url"` // legacy flat form of upstream.base_url
	Cookies        rawCookieConfig   `yaml:"cookies"`
	Checkout       rawCheckoutConfig `yaml:"checkout"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	JWTSecret      string            `yaml:"jwt_secret"`
	Timezone       string            `yaml:"timezone"`
	LogDir         string            `yaml:"log_dir"`
	StaticDir      string            `yaml:"static_dir"`
}

type rawUpstreamConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Stub           *bool  `yaml:"stub"`
}

type rawCookieConfig struct {
	AccessToken string `yaml:"access_token"`
	ClientKey   string `yaml:"client_key"`
	Secure      *bool  `yaml:"secure"`
}

type rawCheckoutConfig struct {
	KeyID       string `yaml:"key_id"`
	CallbackURL string `yaml:"callback_url"`
	Currency    string `yaml:"currency"`
	ThemeColor  string `yaml:"theme_color"`
}
