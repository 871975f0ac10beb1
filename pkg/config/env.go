package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvPort      = "STOREFRONT_APP_PORT"
	EnvLogLevel  = "STOREFRONT_LOG_LEVEL"
	EnvLogFormat = "STOREFRONT_LOG_FORMAT"
	EnvCORS      = "STOREFRONT_CORS_ALLOWED_ORIGINS"

	EnvDBDSN    = "STOREFRONT_DB_DSN"
	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBHost   = "STOREFRONT_DB_HOST"
	EnvDBUser   = "STOREFRONT_DB_USER"
	EnvDBName   = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvCartBackend        = "STOREFRONT_CART_BACKEND"
	EnvCartTTL            = "STOREFRONT_CART_TTL"
	EnvCartQuantityPolicy = "STOREFRONT_CART_QUANTITY_POLICY"
	EnvCartMaxQuantity    = "STOREFRONT_CART_MAX_QUANTITY"
	EnvCartMotorcycleFee  = "STOREFRONT_CART_MOTORCYCLE_FEE"
	EnvCartBicycleFee     = "STOREFRONT_CART_BICYCLE_FEE"

	EnvMarketplaceBaseURL = "STOREFRONT_MARKETPLACE_BASE_URL"
	EnvKafkaBrokers       = "STOREFRONT_KAFKA_BROKERS"
)

// legacyDBEnvVars are required when no DSN is supplied.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
