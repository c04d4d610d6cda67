package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/farehunter/config"
	"github.com/Domenick1991/farehunter/internal/bootstrap"
	"github.com/Domenick1991/farehunter/internal/kafka"
	"github.com/Domenick1991/farehunter/internal/service/search"
	"github.com/Domenick1991/farehunter/internal/worker"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/Domenick1991/farehunter/pkg/metrics"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without an event stream the reports go out as soon as a run completes.
	var opts []bootstrap.ContainerOption
	if !cfg.Kafka.Enabled() {
		opts = append(opts, bootstrap.WithNotifications())
	}
	c, err := bootstrap.NewContainer(ctx, cfg, zl, metrics.New("farehunter"), opts...)
	if err != nil {
		zl.Fatal("init dependencies", "error", err)
	}
	defer c.Close()

	w := worker.New(worker.Config{
		RuleID:         cfg.Worker.RuleID,
		Sources:        cfg.Worker.Sources,
		SearchInterval: cfg.Worker.SearchInterval(),
		ExpireInterval: cfg.Worker.ExpireInterval(),
		StaleAfter:     cfg.Worker.StaleAfter(),
	}, c.RuleService, c.RunService, c.Search, c.Ledger, c.Reporter, c.Dispatcher, zl)

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.RunEventsTopic, zl)
		defer consumer.Close()

		go func() {
			if err := consumer.Consume(ctx, kafka.Decode[search.RunEvent](w.HandleRunEvent)); err != nil {
				zl.Error("consumer stopped", "error", err)
			}
		}()
	}

	zl.Info("worker started",
		"rule_id", cfg.Worker.RuleID,
		"search_interval", cfg.Worker.SearchInterval().String(),
		"expire_interval", cfg.Worker.ExpireInterval().String(),
	)
	w.Loop(ctx)
	zl.Info("worker stopped")
}
