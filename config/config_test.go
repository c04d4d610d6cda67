package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
http:
  address: ":9090"
database:
  host: localhost
  port: 5432
  user: fare
  password: secret
  name: farehunter
  ssl_mode: disable
kafka:
  brokers: ["localhost:9092"]
  run_events_topic: run-events
search:
  concurrency: 4
  default_sources: [mock, skyscanner]
sources:
  skyscanner:
    max_in_flight: 3
    interval_millis: 1500
    base_url: https://www.skyscanner.com.br
`

func TestParseAndDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	cfg.SetDefaults()

	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, 4, cfg.Search.Concurrency)
	assert.Equal(t, []string{"mock", "skyscanner"}, cfg.Search.DefaultSources)
	assert.Equal(t, 6*time.Hour, cfg.Search.QuoteTTL())
	assert.Equal(t, 3, cfg.Sources.Skyscanner.MaxInFlight)
	assert.Equal(t, 1500*time.Millisecond, cfg.Sources.Skyscanner.Interval())
	assert.Equal(t, 30*time.Second, cfg.Sources.Skyscanner.Timeout())
	assert.Equal(t, "https://www.skyscanner.com.br", cfg.Sources.Skyscanner.BaseURL)
	assert.Equal(t, 1, cfg.Sources.GoogleFlights.MaxInFlight)
	assert.Equal(t, 15*time.Second, cfg.Sources.GoogleFlights.WaitTimeout())
	assert.Equal(t, cfg.Search.DefaultSources, cfg.Worker.Sources)
	assert.Equal(t, 48*time.Hour, cfg.Worker.StaleAfter())
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "host=localhost port=5432 user=fare password=secret dbname=farehunter sslmode=disable", cfg.Database.DSN())
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	env := map[string]string{
		"DATABASE_URL":      "postgres://u:p@db:5432/fh",
		"REDIS_PASSWORD":    "hunter2",
		"KAFKA_BROKERS":     "k1:9092,k2:9092",
		"GMAIL_TO":          "a@example.com,b@example.com",
		"GMAIL_ENABLED":     "true",
		"WHATSAPP_PROVIDER": "callmebot",
		"CALLMEBOT_API_KEY": "123",
	}
	cfg.applyEnv(func(k string) string { return env[k] })
	cfg.SetDefaults()

	assert.Equal(t, "postgres://u:p@db:5432/fh", cfg.Database.DSN())
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Reports.Email.To)
	assert.True(t, cfg.Reports.Email.Enabled)
	assert.Equal(t, "callmebot", cfg.Reports.WhatsApp.Provider)
	assert.Equal(t, "123", cfg.Reports.WhatsApp.CallMeBotAPIKey)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Search.Concurrency = -1 }},
		{"unknown source", func(c *Config) { c.Search.DefaultSources = []string{"kayak"} }},
		{"unknown worker source", func(c *Config) { c.Worker.Sources = []string{"kayak"} }},
		{"no in flight", func(c *Config) { c.Sources.Mock.MaxInFlight = -1 }},
		{"negative interval", func(c *Config) { c.Sources.Skyscanner.IntervalMillis = -5 }},
		{"whatsapp provider", func(c *Config) { c.Reports.WhatsApp.Provider = "telegram" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.SetDefaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Address)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
