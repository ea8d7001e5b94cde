package config

import (
	"fmt"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
)

// Store and driver selectors.
const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"

	SessionRedis  = "redis"
	SessionMemory = "memory"

	GatewayHTTP  = "http"
	GatewayOmise = "omise"
)

// Config is loaded from the environment (and a local .env when present).
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	RunLocal bool   `envconfig:"RUN_LOCAL" default:"false"`

	CORSAllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS"`

	BookingStore         string `envconfig:"BOOKING_STORE" default:"dynamodb"`
	BookingsTable        string `envconfig:"BOOKINGS_TABLE" default:"paid-bookings"`
	PaymentClaimsTable   string `envconfig:"PAYMENT_CLAIMS_TABLE" default:"payment-claims"`
	BookingsPaymentIndex string `envconfig:"BOOKINGS_PAYMENT_INDEX" default:"payment_id-index"`
	PostgresDSN          string `envconfig:"POSTGRES_DSN"`
	MongoURI             string `envconfig:"MONGO_URI"`
	MongoDatabase        string `envconfig:"MONGO_DATABASE" default:"bookings"`

	SessionStore  string        `envconfig:"SESSION_STORE" default:"redis"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"30m"`

	GatewayDriver   string        `envconfig:"GATEWAY_DRIVER" default:"http"`
	GatewayBaseURL  string        `envconfig:"GATEWAY_BASE_URL"`
	GatewayAppKey   string        `envconfig:"GATEWAY_APP_KEY"`
	GatewayAPIToken string        `envconfig:"GATEWAY_API_TOKEN"`
	GatewayTimeout  time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"15s"`
	OmisePublicKey  string        `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey  string        `envconfig:"OMISE_SECRET_KEY"`

	AWSRegion        string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSEndpoint      string `envconfig:"AWS_ENDPOINT_OVERRIDE"`
	EventsQueueURL   string `envconfig:"EVENTS_QUEUE_URL"`
	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"PaidBookings"`
	AdminJWTSecret   string `envconfig:"ADMIN_JWT_SECRET"`

	ReceiptBucket  string `envconfig:"RECEIPT_BUCKET" default:"receipts"`
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

// Load reads and validates the configuration.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects driver selections that are missing their required settings.
func (c Config) Validate() error {
	switch c.BookingStore {
	case StoreDynamoDB:
		if c.BookingsTable == "" || c.PaymentClaimsTable == "" {
			return fmt.Errorf("config: BOOKINGS_TABLE and PAYMENT_CLAIMS_TABLE are required for dynamodb store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required for postgres store")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("config: MONGO_URI is required for mongo store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown BOOKING_STORE %q", c.BookingStore)
	}

	switch c.SessionStore {
	case SessionRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: REDIS_ADDR is required for redis session store")
		}
	case SessionMemory:
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive")
	}

	switch c.GatewayDriver {
	case GatewayHTTP:
		if c.GatewayBaseURL == "" {
			return fmt.Errorf("config: GATEWAY_BASE_URL is required for http gateway")
		}
	case GatewayOmise:
		if c.OmisePublicKey == "" || c.OmiseSecretKey == "" {
			return fmt.Errorf("config: OMISE_PUBLIC_KEY and OMISE_SECRET_KEY are required for omise gateway")
		}
	default:
		return fmt.Errorf("config: unknown GATEWAY_DRIVER %q", c.GatewayDriver)
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("config: GATEWAY_TIMEOUT must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool { return c.AppEnv == "production" }
