package config

// EnvPrefix is handed to envconfig; every tag already carries the full variable name.
const EnvPrefix = "MARKETPLACE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	BrokerPubSub = "pubsub"
	BrokerAMQP   = "amqp"

	DefaultTaxRate = "0.18"
)

const (
	EnvAppEnv   = "MARKETPLACE_APP_ENV"
	EnvPort     = "MARKETPLACE_APP_PORT"
	EnvLogLevel = "MARKETPLACE_LOG_LEVEL"

	EnvDBDSN  = "MARKETPLACE_DB_DSN"
	EnvDBHost = "MARKETPLACE_DB_HOST"
	EnvDBUser = "MARKETPLACE_DB_USER"
	EnvDBName = "MARKETPLACE_DB_NAME"

	EnvStoreTimeout = "MARKETPLACE_STORE_TIMEOUT"

	EnvRedisURL = "MARKETPLACE_REDIS_URL"

	EnvJWTSecret              = "MARKETPLACE_JWT_SECRET"
	EnvJWTIssuer              = "MARKETPLACE_JWT_ISSUER"
	EnvJWTExpMins             = "MARKETPLACE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MARKETPLACE_REFRESH_TOKEN_TTL_MINUTES"

	EnvPricingTaxRate = "MARKETPLACE_PRICING_TAX_RATE"
	EnvOutboxBroker   = "MARKETPLACE_OUTBOX_BROKER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
