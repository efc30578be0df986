package config

const (
	EnvPrefix = "storefront"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvPort            = "STOREFRONT_APP_PORT"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvUpstreamBaseURL = "STOREFRONT_UPSTREAM_BASE_URL"
	EnvUpstreamAPIKey  = "STOREFRONT_UPSTREAM_API_KEY"
	EnvUpstreamTimeout = "STOREFRONT_UPSTREAM_TIMEOUT"
)
