package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Search   SearchConfig   `yaml:"search"`
	Sources  SourcesConfig  `yaml:"sources"`
	Worker   WorkerConfig   `yaml:"worker"`
	Reports  ReportsConfig  `yaml:"reports"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address     string `yaml:"address"`
	SwaggerFile string `yaml:"swagger_file"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DSN prefers an explicit URL over the discrete fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	RunEventsTopic string   `yaml:"run_events_topic"`
	GroupID        string   `yaml:"group_id"`
}

// Enabled reports whether run events should be published at all.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.RunEventsTopic != ""
}

type SearchConfig struct {
	Concurrency        int      `yaml:"concurrency"`
	DefaultSources     []string `yaml:"default_sources"`
	QuoteTTLHours      int      `yaml:"quote_ttl_hours"`
	RunCacheTTLSeconds int      `yaml:"run_cache_ttl_seconds"`
	LockTTLSeconds     int      `yaml:"lock_ttl_seconds"`
}

func (s SearchConfig) QuoteTTL() time.Duration {
	return time.Duration(s.QuoteTTLHours) * time.Hour
}

func (s SearchConfig) RunCacheTTL() time.Duration {
	return time.Duration(s.RunCacheTTLSeconds) * time.Second
}

func (s SearchConfig) LockTTL() time.Duration {
	return time.Duration(s.LockTTLSeconds) * time.Second
}

// SourceLimits bounds how hard one price source is hit.
type SourceLimits struct {
	MaxInFlight    int `yaml:"max_in_flight"`
	IntervalMillis int `yaml:"interval_millis"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

func (s SourceLimits) Interval() time.Duration {
	return time.Duration(s.IntervalMillis) * time.Millisecond
}

func (s SourceLimits) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type SourcesConfig struct {
	Mock          SourceLimits        `yaml:"mock"`
	Skyscanner    SkyscannerConfig    `yaml:"skyscanner"`
	GoogleFlights GoogleFlightsConfig `yaml:"google_flights"`
}

type SkyscannerConfig struct {
	SourceLimits `yaml:",inline"`
	BaseURL      string `yaml:"base_url"`
}

type GoogleFlightsConfig struct {
	SourceLimits       `yaml:",inline"`
	BaseURL            string `yaml:"base_url"`
	ChromePath         string `yaml:"chrome_path"`
	WaitTimeoutSeconds int    `yaml:"wait_timeout_seconds"`
}

func (g GoogleFlightsConfig) WaitTimeout() time.Duration {
	return time.Duration(g.WaitTimeoutSeconds) * time.Second
}

type WorkerConfig struct {
	RuleID                int64    `yaml:"rule_id"`
	Sources               []string `yaml:"sources"`
	SearchIntervalMinutes int      `yaml:"search_interval_minutes"`
	ExpireIntervalMinutes int      `yaml:"expire_interval_minutes"`
	StaleAfterHours       int      `yaml:"stale_after_hours"`
}

func (w WorkerConfig) SearchInterval() time.Duration {
	return time.Duration(w.SearchIntervalMinutes) * time.Minute
}

func (w WorkerConfig) ExpireInterval() time.Duration {
	return time.Duration(w.ExpireIntervalMinutes) * time.Minute
}

func (w WorkerConfig) StaleAfter() time.Duration {
	return time.Duration(w.StaleAfterHours) * time.Hour
}

type ReportsConfig struct {
	Dir      string         `yaml:"dir"`
	Email    EmailConfig    `yaml:"email"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
}

type EmailConfig struct {
	Enabled      bool     `yaml:"enabled"`
	From         string   `yaml:"from"`
	To           []string `yaml:"to"`
	CC           []string `yaml:"cc"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RefreshToken string   `yaml:"refresh_token"`
}

type WhatsAppConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Provider          string `yaml:"provider"`
	To                string `yaml:"to"`
	TwilioAccountSID  string `yaml:"twilio_account_sid"`
	TwilioAuthToken   string `yaml:"twilio_auth_token"`
	TwilioFrom        string `yaml:"twilio_from"`
	CallMeBotAPIKey   string `yaml:"callmebot_api_key"`
	EvolutionURL      string `yaml:"evolution_url"`
	EvolutionAPIKey   string `yaml:"evolution_api_key"`
	EvolutionInstance string `yaml:"evolution_instance"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var knownSources = map[string]bool{"mock": true, "skyscanner": true, "google_flights": true, "all": true}

// LoadConfig reads .env (when present), the YAML file at path and the
// environment overrides, then fills defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(os.Getenv)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Database.URL, "DATABASE_URL")
	set(&c.Redis.Addr, "REDIS_ADDR")
	set(&c.Redis.Password, "REDIS_PASSWORD")
	set(&c.Log.Level, "LOG_LEVEL")
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	e := &c.Reports.Email
	set(&e.From, "GMAIL_FROM")
	set(&e.ClientID, "GMAIL_CLIENT_ID")
	set(&e.ClientSecret, "GMAIL_CLIENT_SECRET")
	set(&e.RefreshToken, "GMAIL_REFRESH_TOKEN")
	if v := getenv("GMAIL_TO"); v != "" {
		e.To = strings.Split(v, ",")
	}
	if v := getenv("GMAIL_CC"); v != "" {
		e.CC = strings.Split(v, ",")
	}

	w := &c.Reports.WhatsApp
	set(&w.Provider, "WHATSAPP_PROVIDER")
	set(&w.To, "WHATSAPP_TO")
	set(&w.TwilioAccountSID, "TWILIO_ACCOUNT_SID")
	set(&w.TwilioAuthToken, "TWILIO_AUTH_TOKEN")
	set(&w.TwilioFrom, "TWILIO_FROM")
	set(&w.CallMeBotAPIKey, "CALLMEBOT_API_KEY")
	set(&w.EvolutionURL, "EVOLUTION_URL")
	set(&w.EvolutionAPIKey, "EVOLUTION_API_KEY")
	set(&w.EvolutionInstance, "EVOLUTION_INSTANCE")
	if v, err := strconv.ParseBool(getenv("WHATSAPP_ENABLED")); err == nil {
		w.Enabled = v
	}
	if v, err := strconv.ParseBool(getenv("GMAIL_ENABLED")); err == nil {
		e.Enabled = v
	}
}

func (c *Config) SetDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Kafka.RunEventsTopic == "" {
		c.Kafka.RunEventsTopic = "run-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "farehunter-worker"
	}
	if c.Search.Concurrency == 0 {
		c.Search.Concurrency = 8
	}
	if len(c.Search.DefaultSources) == 0 {
		c.Search.DefaultSources = []string{"mock"}
	}
	if c.Search.QuoteTTLHours == 0 {
		c.Search.QuoteTTLHours = 6
	}
	if c.Search.RunCacheTTLSeconds == 0 {
		c.Search.RunCacheTTLSeconds = 600
	}
	if c.Search.LockTTLSeconds == 0 {
		c.Search.LockTTLSeconds = 10
	}

	defaultLimits(&c.Sources.Mock, 50, 0, 5)
	defaultLimits(&c.Sources.Skyscanner.SourceLimits, 2, 2000, 30)
	defaultLimits(&c.Sources.GoogleFlights.SourceLimits, 1, 3000, 60)
	if c.Sources.GoogleFlights.WaitTimeoutSeconds == 0 {
		c.Sources.GoogleFlights.WaitTimeoutSeconds = 15
	}

	if c.Worker.SearchIntervalMinutes == 0 {
		c.Worker.SearchIntervalMinutes = 360
	}
	if c.Worker.ExpireIntervalMinutes == 0 {
		c.Worker.ExpireIntervalMinutes = 60
	}
	if c.Worker.StaleAfterHours == 0 {
		c.Worker.StaleAfterHours = 48
	}
	if len(c.Worker.Sources) == 0 {
		c.Worker.Sources = c.Search.DefaultSources
	}

	if c.Reports.Dir == "" {
		c.Reports.Dir = "reports"
	}
	if c.Reports.WhatsApp.Provider == "" {
		c.Reports.WhatsApp.Provider = "twilio"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func defaultLimits(l *SourceLimits, inFlight, intervalMillis, timeoutSeconds int) {
	if l.MaxInFlight == 0 {
		l.MaxInFlight = inFlight
	}
	if l.IntervalMillis == 0 {
		l.IntervalMillis = intervalMillis
	}
	if l.TimeoutSeconds == 0 {
		l.TimeoutSeconds = timeoutSeconds
	}
}

func (c *Config) Validate() error {
	if c.Search.Concurrency < 1 {
		return fmt.Errorf("search.concurrency must be positive, got %d", c.Search.Concurrency)
	}
	for _, name := range append(append([]string{}, c.Search.DefaultSources...), c.Worker.Sources...) {
		if !knownSources[name] {
			return fmt.Errorf("unknown source %q", name)
		}
	}
	limits := map[string]SourceLimits{
		"mock":           c.Sources.Mock,
		"skyscanner":     c.Sources.Skyscanner.SourceLimits,
		"google_flights": c.Sources.GoogleFlights.SourceLimits,
	}
	for name, l := range limits {
		if l.MaxInFlight < 1 {
			return fmt.Errorf("sources.%s.max_in_flight must be positive", name)
		}
		if l.TimeoutSeconds < 1 {
			return fmt.Errorf("sources.%s.timeout_seconds must be positive", name)
		}
		if l.IntervalMillis < 0 {
			return fmt.Errorf("sources.%s.interval_millis must not be negative", name)
		}
	}
	switch c.Reports.WhatsApp.Provider {
	case "twilio", "callmebot", "evolution":
	default:
		return fmt.Errorf("unknown whatsapp provider %q", c.Reports.WhatsApp.Provider)
	}
	return nil
}
