package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed by the platform.
const EnvPrefix = "ISOKO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ISOKO_APP_ENV" required:"true"`
	Port         string `envconfig:"ISOKO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ISOKO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ISOKO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ISOKO_DB_DSN" required:"true"`
	Driver string `envconfig:"ISOKO_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"ISOKO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ISOKO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ISOKO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ISOKO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ISOKO_REDIS_URL"`
	Address      string        `envconfig:"ISOKO_REDIS_ADDR"`
	Password     string        `envconfig:"ISOKO_REDIS_PASSWORD"`
	DB           int           `envconfig:"ISOKO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ISOKO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ISOKO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ISOKO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ISOKO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ISOKO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ISOKO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ISOKO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ISOKO_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ISOKO_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"ISOKO_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ISOKO_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"ISOKO_PUBSUB_DOMAIN_TOPIC" default:"isoko-domain-events"`
	DomainSubscription string `envconfig:"ISOKO_PUBSUB_DOMAIN_SUBSCRIPTION" default:"isoko-domain-events-notifications"`
}

type StripeConfig struct {
	APIKey         string        `envconfig:"ISOKO_STRIPE_API_KEY"`
	Env            string        `envconfig:"ISOKO_STRIPE_ENV" default:"test"`
	RequestTimeout time.Duration `envconfig:"ISOKO_STRIPE_REQUEST_TIMEOUT" default:"10s"`
	MaxRetries     uint64        `envconfig:"ISOKO_STRIPE_MAX_RETRIES" default:"3"`
}

// Environment reports the configured processor environment.
func (s StripeConfig) Environment() string {
	return s.Env
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ISOKO_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ISOKO_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ISOKO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"ISOKO_CRON_INTERVAL" default:"24h"`
	NotificationRetention time.Duration `envconfig:"ISOKO_CRON_NOTIFICATION_RETENTION" default:"2160h"`
	OutboxRetention       time.Duration `envconfig:"ISOKO_CRON_OUTBOX_RETENTION" default:"336h"`
}
