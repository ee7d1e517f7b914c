package config

const (
	EnvPrefix = "BIDMART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "BIDMART_APP_ENV"
	EnvPort     = "BIDMART_APP_PORT"
	EnvLogLevel = "BIDMART_LOG_LEVEL"

	EnvDBDSN  = "BIDMART_DB_DSN"
	EnvDBHost = "BIDMART_DB_HOST"
	EnvDBUser = "BIDMART_DB_USER"
	EnvDBName = "BIDMART_DB_NAME"

	EnvUseSQLite = "BIDMART_USE_SQLITE"
	EnvRedisURL  = "BIDMART_REDIS_URL"

	EnvJWTSecret  = "BIDMART_JWT_SECRET"
	EnvJWTIssuer  = "BIDMART_JWT_ISSUER"
	EnvJWTExpMins = "BIDMART_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "BIDMART_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic       = "BIDMART_PUBSUB_ORDERS_TOPIC"
	EnvPubSubAdsTopic          = "BIDMART_PUBSUB_ADS_TOPIC"
	EnvPubSubNotificationSub   = "BIDMART_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsTopic    = "BIDMART_PUBSUB_ANALYTICS_TOPIC"
	EnvPubSubAnalyticsSub      = "BIDMART_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvRazorpayKeyID           = "BIDMART_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret       = "BIDMART_RAZORPAY_KEY_SECRET"
	EnvCheckoutOrphanAge       = "BIDMART_CHECKOUT_ORPHAN_AGE"
	EnvCORSAllowedOrigins      = "BIDMART_CORS_ALLOWED_ORIGINS"
	EnvRateLimitCheckoutLimit  = "BIDMART_RATE_LIMIT_CHECKOUT_LIMIT"
	EnvRateLimitCheckoutWindow = "BIDMART_RATE_LIMIT_CHECKOUT_WINDOW"
	EnvMetricsAddr             = "BIDMART_METRICS_ADDR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
