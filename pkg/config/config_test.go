package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "INR", cfg.Gateway.Currency)
	assert.Equal(t, 1000.0, cfg.Gateway.DefaultFee)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	production := func() Config {
		return Config{
			Environment: "production",
			Database:    DatabaseConfig{DSN: "postgres://localhost/casepay"},
			Gateway: GatewayConfig{
				KeyID:         "rzp_live",
				KeySecret:     "secret",
				WebhookSecret: "whsec",
			},
			Sweep: SweepConfig{Interval: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "complete production config", mutate: func(*Config) {}},
		{
			name:    "production without webhook secret",
			mutate:  func(c *Config) { c.Gateway.WebhookSecret = "" },
			wantErr: "GATEWAY_WEBHOOK_SECRET",
		},
		{
			name:    "production without gateway keys",
			mutate:  func(c *Config) { c.Gateway.KeySecret = "" },
			wantErr: "GATEWAY_KEY_SECRET",
		},
		{
			name:    "production without database",
			mutate:  func(c *Config) { c.Database.DSN = "" },
			wantErr: "DATABASE_DSN",
		},
		{
			name:    "negative default fee",
			mutate:  func(c *Config) { c.Gateway.DefaultFee = -1 },
			wantErr: "DEFAULT_REGISTRATION_FEE",
		},
		{
			name:    "zero sweep interval",
			mutate:  func(c *Config) { c.Sweep.Interval = 0 },
			wantErr: "SWEEP_INTERVAL",
		},
		{
			name: "development tolerates missing secrets",
			mutate: func(c *Config) {
				c.Environment = "development"
				c.Gateway = GatewayConfig{}
				c.Database.DSN = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := production()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
