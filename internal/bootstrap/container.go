package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/farehunter/config"
	"github.com/Domenick1991/farehunter/internal/cache"
	"github.com/Domenick1991/farehunter/internal/email"
	"github.com/Domenick1991/farehunter/internal/kafka"
	"github.com/Domenick1991/farehunter/internal/ledger"
	"github.com/Domenick1991/farehunter/internal/notify"
	"github.com/Domenick1991/farehunter/internal/report"
	"github.com/Domenick1991/farehunter/internal/repository"
	"github.com/Domenick1991/farehunter/internal/service/rules"
	"github.com/Domenick1991/farehunter/internal/service/runs"
	"github.com/Domenick1991/farehunter/internal/service/search"
	"github.com/Domenick1991/farehunter/internal/source"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/Domenick1991/farehunter/pkg/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	kafkaCheckTimeout    = 5 * time.Second
	eventPublishAttempts = 3
)

// Container owns every long-lived dependency of the app, the worker and the CLI.
type Container struct {
	Config   *config.Config
	Logger   logger.Logger
	Metrics  *metrics.Metrics
	Pool     *pgxpool.Pool
	Cache    *cache.RedisCache
	Producer *kafka.Producer

	Registry   *source.Registry
	Rules      repository.RuleRepository
	Runs       repository.RunRepository
	Quotes     repository.QuoteRepository
	Ledger     *ledger.Ledger
	Reporter   *report.Reporter
	Dispatcher *notify.Dispatcher

	RuleService *rules.RuleService
	RunService  *runs.RunService
	Search      *search.SearchService
}

type containerOptions struct {
	sendOnComplete bool
	progress       search.ProgressFunc
}

type ContainerOption func(*containerOptions)

// WithNotifications makes completed runs deliver their report in-process.
// Without it, delivery is left to the worker's event consumer.
func WithNotifications() ContainerOption {
	return func(o *containerOptions) {
		o.sendOnComplete = true
	}
}

func WithSearchProgress(fn search.ProgressFunc) ContainerOption {
	return func(o *containerOptions) {
		o.progress = fn
	}
}

func NewContainer(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Metrics, opts ...ContainerOption) (*Container, error) {
	var o containerOptions
	for _, opt := range opts {
		opt(&o)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	c := &Container{
		Config:  cfg,
		Logger:  log,
		Metrics: m,
		Pool:    pool,
		Cache:   cache.NewRedisCache(cfg.Redis, cfg.Search.RunCacheTTL(), cfg.Search.LockTTL()),
	}
	if err := c.Cache.Ping(ctx); err != nil {
		log.Warn("redis unavailable, falling back to in-process locks", "error", err)
		_ = c.Cache.Close()
		c.Cache = nil
	}

	c.Registry = NewRegistry(cfg, log)
	c.Rules = repository.NewRuleRepository(pool)
	c.Runs = repository.NewRunRepository(pool)
	c.Quotes = repository.NewQuoteRepository(pool)

	var locker ledger.Locker = ledger.NewKeyedMutex()
	if c.Cache != nil {
		locker = ledger.Chain(locker, c.Cache)
	}
	c.Ledger = ledger.New(repository.NewBestPriceRepository(pool), log,
		ledger.WithLocker(locker), ledger.WithMetrics(m))

	dispatcher, err := NewDispatcher(ctx, cfg.Reports, log, m)
	if err != nil {
		pool.Close()
		return nil, err
	}
	c.Dispatcher = dispatcher

	reporterOpts := []report.ReporterOption{}
	if o.sendOnComplete && dispatcher.Len() > 0 {
		reporterOpts = append(reporterOpts, report.WithSender(dispatcher))
	}
	c.Reporter = report.NewReporter(c.Quotes,
		report.NewGenerator(report.WithSourceLabels(c.Registry.Label)),
		cfg.Reports.Dir, log, reporterOpts...)

	searchOpts := []search.SearchServiceOption{
		search.WithReporter(c.Reporter),
		search.WithConcurrency(cfg.Search.Concurrency),
		search.WithMetrics(m),
	}
	if cfg.Kafka.Enabled() {
		c.Producer = kafka.NewProducer(cfg.Kafka.Brokers, log)
		checkCtx, cancel := context.WithTimeout(ctx, kafkaCheckTimeout)
		if err := c.Producer.CheckConnection(checkCtx); err != nil {
			log.Warn("kafka unreachable, run events will be retried per publish", "error", err)
		}
		cancel()
		searchOpts = append(searchOpts, search.WithEventPublisher(
			c.Producer.WithRetry(eventPublishAttempts), cfg.Kafka.RunEventsTopic))
	}
	if o.progress != nil {
		searchOpts = append(searchOpts, search.WithProgress(o.progress))
	}
	c.Search = search.NewSearchService(c.Runs, c.Quotes, c.Ledger, c.Registry, log, searchOpts...)

	c.RuleService = rules.NewRuleService(c.Rules)
	var runCache runs.RunCache
	if c.Cache != nil {
		runCache = c.Cache
	}
	c.RunService = runs.NewRunService(c.Runs, c.Quotes, c.Ledger, runCache, log)
	return c, nil
}

func (c *Container) Close() {
	if c.Producer != nil {
		if err := c.Producer.Close(); err != nil {
			c.Logger.Warn("close kafka producer", "error", err)
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Warn("close redis", "error", err)
		}
	}
	c.Pool.Close()
}

// NewRegistry registers every price source. Each source kind shares one gate
// across runs so concurrent runs cannot exceed its configured limits.
func NewRegistry(cfg *config.Config, log logger.Logger) *source.Registry {
	ttl := cfg.Search.QuoteTTL()
	sc := cfg.Sources

	mockGate := source.NewGate(int64(sc.Mock.MaxInFlight), sc.Mock.Interval())
	skyGate := source.NewGate(int64(sc.Skyscanner.MaxInFlight), sc.Skyscanner.Interval())
	gfGate := source.NewGate(int64(sc.GoogleFlights.MaxInFlight), sc.GoogleFlights.Interval())

	renderer := source.NewChromeRenderer(sc.GoogleFlights.Timeout(), sc.GoogleFlights.WaitTimeout())
	renderer.ExecPath = sc.GoogleFlights.ChromePath

	reg := source.NewRegistry()
	reg.Register(source.Mock, "Simulado", func() source.PriceSource {
		return source.Throttle(source.NewSynthetic(source.SyntheticConfig{
			MinLatency: 100 * time.Millisecond,
			MaxLatency: 300 * time.Millisecond,
			QuoteTTL:   ttl,
		}, log), mockGate)
	})
	reg.Register(source.Skyscanner, "Skyscanner", func() source.PriceSource {
		return source.Throttle(source.NewSkyscanner(source.SkyscannerConfig{
			BaseURL:  sc.Skyscanner.BaseURL,
			Timeout:  sc.Skyscanner.Timeout(),
			QuoteTTL: ttl,
		}, log), skyGate)
	})
	reg.Register(source.GoogleFlights, "Google Flights", func() source.PriceSource {
		return source.Throttle(source.NewGoogleFlights(source.GoogleFlightsConfig{
			BaseURL:  sc.GoogleFlights.BaseURL,
			QuoteTTL: ttl,
		}, renderer, log), gfGate)
	})
	return reg
}

// NewDispatcher builds the enabled notification channels.
func NewDispatcher(ctx context.Context, cfg config.ReportsConfig, log logger.Logger, m *metrics.Metrics) (*notify.Dispatcher, error) {
	var notifiers []notify.Notifier
	if cfg.Email.Enabled {
		sender, err := email.NewSender(ctx, email.Config{
			From:         cfg.Email.From,
			To:           cfg.Email.To,
			CC:           cfg.Email.CC,
			ClientID:     cfg.Email.ClientID,
			ClientSecret: cfg.Email.ClientSecret,
			RefreshToken: cfg.Email.RefreshToken,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("gmail sender: %w", err)
		}
		notifiers = append(notifiers, sender)
	}
	if cfg.WhatsApp.Enabled {
		w := cfg.WhatsApp
		notifiers = append(notifiers, notify.NewWhatsAppSender(notify.WhatsAppConfig{
			Provider:          w.Provider,
			To:                w.To,
			TwilioAccountSID:  w.TwilioAccountSID,
			TwilioAuthToken:   w.TwilioAuthToken,
			TwilioFrom:        w.TwilioFrom,
			CallMeBotAPIKey:   w.CallMeBotAPIKey,
			EvolutionURL:      w.EvolutionURL,
			EvolutionAPIKey:   w.EvolutionAPIKey,
			EvolutionInstance: w.EvolutionInstance,
		}, log))
	}
	return notify.NewDispatcher(log, m, notifiers...), nil
}
