package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string `env:"SERVER_PORT" env-default:"8080"`
	Environment     string `env:"ENVIRONMENT" env-default:"development"`
	FirebaseProject string `env:"FIREBASE_PROJECT_ID"`

	// Service account for token verification and the user directory.
	FirebaseCredentialsJSON string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseCredentialsFile string `env:"FIREBASE_SERVICE_ACCOUNT_PATH"`

	Log       LogConfig
	Database  DatabaseConfig
	Gateway   GatewayConfig
	Kafka     KafkaConfig
	Sweep     SweepConfig
	RateLimit RateLimitConfig
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info"`
	Format string `env:"LOG_FORMAT" env-default:"text"`
}

type DatabaseConfig struct {
	DSN            string `env:"DATABASE_DSN"`
	MigrationsPath string `env:"MIGRATIONS_PATH" env-default:"migrations"`
	MaxOpenConns   int    `env:"DATABASE_MAX_OPEN_CONNS" env-default:"20"`
	MaxIdleConns   int    `env:"DATABASE_MAX_IDLE_CONNS" env-default:"5"`
}

// GatewayConfig holds the payment gateway credentials and the fee defaults
// used when an order carries no amount of its own.
type GatewayConfig struct {
	BaseURL       string  `env:"GATEWAY_BASE_URL" env-default:"https://api.razorpay.com/v1"`
	KeyID         string  `env:"GATEWAY_KEY_ID"`
	KeySecret     string  `env:"GATEWAY_KEY_SECRET"`
	WebhookSecret string  `env:"GATEWAY_WEBHOOK_SECRET"`
	Currency      string  `env:"CURRENCY" env-default:"INR"`
	DefaultFee    float64 `env:"DEFAULT_REGISTRATION_FEE" env-default:"1000"`
}

type RateLimitConfig struct {
	PaymentRPS   float64 `env:"PAYMENT_RATE_LIMIT_RPS" env-default:"2"`
	PaymentBurst int     `env:"PAYMENT_RATE_LIMIT_BURST" env-default:"10"`
	WebhookRPS   float64 `env:"WEBHOOK_RATE_LIMIT_RPS" env-default:"50"`
	WebhookBurst int     `env:"WEBHOOK_RATE_LIMIT_BURST" env-default:"100"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `env:"KAFKA_CASE_TOPIC" env-default:"case-events"`
}

type SweepConfig struct {
	Interval  time.Duration `env:"SWEEP_INTERVAL" env-default:"1m"`
	BatchSize int           `env:"SWEEP_BATCH_SIZE" env-default:"100"`
}

func Load() (*Config, error) {
	godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate fails closed: production never runs without a webhook secret,
// otherwise any caller could forge gateway events.
func (c *Config) Validate() error {
	if c.Gateway.DefaultFee < 0 {
		return fmt.Errorf("DEFAULT_REGISTRATION_FEE must not be negative")
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if !c.IsProduction() {
		return nil
	}
	if c.Gateway.WebhookSecret == "" {
		return fmt.Errorf("GATEWAY_WEBHOOK_SECRET is required in production")
	}
	if c.Gateway.KeyID == "" || c.Gateway.KeySecret == "" {
		return fmt.Errorf("GATEWAY_KEY_ID and GATEWAY_KEY_SECRET are required in production")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required in production")
	}
	return nil
}
