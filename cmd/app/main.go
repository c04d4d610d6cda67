package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/farehunter/config"
	"github.com/Domenick1991/farehunter/internal/bootstrap"
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

	c, err := bootstrap.NewContainer(ctx, cfg, zl, metrics.New("farehunter"))
	if err != nil {
		zl.Fatal("init dependencies", "error", err)
	}
	defer c.Close()

	if err := bootstrap.Run(ctx, c); err != nil {
		zl.Fatal("server error", "error", err)
	}
}
