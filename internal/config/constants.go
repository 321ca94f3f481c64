package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort            = 3000
	defaultEnv             = "development"
	defaultDSN             = "root:password@tcp(127.0.0.1:3306)/gatherly_web?charset=utf8mb4&parseTime=True&loc=Local"
	defaultRedisURL        = "redis://localhost:6379/0"
	defaultUpstreamBaseURL = "http://localhost:8000"
	defaultUpstreamTimeout = 15 * time.Second

	defaultAccessTokenCookie = "accessToken"
	defaultClientKeyCookie   = "gatherly_client"

	defaultCheckoutCurrency = "INR"
	defaultCheckoutTheme    = "#61dafb"
)
