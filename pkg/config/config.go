package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Payment      PaymentConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Metrics      MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BIDMART_APP_ENV" required:"true"`
	Port         string `envconfig:"BIDMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BIDMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BIDMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BIDMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BIDMART_DB_DSN"`
	Driver string `envconfig:"BIDMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BIDMART_DB_HOST"`
	LegacyPort     int    `envconfig:"BIDMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BIDMART_DB_USER"`
	LegacyPassword string `envconfig:"BIDMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"BIDMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"BIDMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BIDMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BIDMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BIDMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BIDMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BIDMART_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL            string        `envconfig:"BIDMART_REDIS_URL" required:"true"`
	Address        string        `envconfig:"BIDMART_REDIS_ADDR"`
	Password       string        `envconfig:"BIDMART_REDIS_PASSWORD"`
	DB             int           `envconfig:"BIDMART_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"BIDMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"BIDMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"BIDMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"BIDMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"BIDMART_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"BIDMART_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BIDMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BIDMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BIDMART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BIDMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BIDMART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"BIDMART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BIDMART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BIDMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BIDMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"BIDMART_PUBSUB_ORDERS_TOPIC" required:"true"`
	AdsTopic                 string `envconfig:"BIDMART_PUBSUB_ADS_TOPIC" required:"true"`
	NotificationTopic        string `envconfig:"BIDMART_PUBSUB_NOTIFICATION_TOPIC" default:"bm-notification-events"`
	NotificationSubscription string `envconfig:"BIDMART_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	AnalyticsTopic           string `envconfig:"BIDMART_PUBSUB_ANALYTICS_TOPIC" required:"true"`
	AnalyticsSubscription    string `envconfig:"BIDMART_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset                string `envconfig:"BIDMART_BIGQUERY_DATASET" default:"bidmart"`
	MarketplaceEventsTable string `envconfig:"BIDMART_BIGQUERY_MARKETPLACE_TABLE" default:"marketplace_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"BIDMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"BIDMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"BIDMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"BIDMART_OUTBOX_RETENTION" default:"720h"`
}

// PaymentConfig configures the Razorpay orders API.
type PaymentConfig struct {
	KeyID     string        `envconfig:"BIDMART_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string        `envconfig:"BIDMART_RAZORPAY_KEY_SECRET" required:"true"`
	BaseURL   string        `envconfig:"BIDMART_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout   time.Duration `envconfig:"BIDMART_RAZORPAY_TIMEOUT" default:"10s"`
	Currency  string        `envconfig:"BIDMART_PAYMENT_CURRENCY" default:"INR"`
}

type CheckoutConfig struct {
	OrphanAttemptAge  time.Duration `envconfig:"BIDMART_CHECKOUT_ORPHAN_AGE" default:"15m"`
	ReconcileInterval time.Duration `envconfig:"BIDMART_CHECKOUT_RECONCILE_INTERVAL" default:"5m"`
	ReconcileBatch    int           `envconfig:"BIDMART_CHECKOUT_RECONCILE_BATCH" default:"100"`
}

type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"BIDMART_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"BIDMART_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
	OfferWindow    time.Duration `envconfig:"BIDMART_RATE_LIMIT_OFFER_WINDOW" default:"1m"`
	OfferLimit     int           `envconfig:"BIDMART_RATE_LIMIT_OFFER_LIMIT" default:"30"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BIDMART_CORS_ALLOWED_ORIGINS" default:"*"`
}

// MetricsConfig controls the Prometheus listener of the background binaries.
// An empty Addr disables it.
type MetricsConfig struct {
	Addr string `envconfig:"BIDMART_METRICS_ADDR"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = "file:bidmart.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
