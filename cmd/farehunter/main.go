// Package main implements the farehunter command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/farehunter/config"
	"github.com/Domenick1991/farehunter/internal/bootstrap"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/Domenick1991/farehunter/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "farehunter",
	Short:         "Flight itinerary search and best-price tracking",
	Long:          "farehunter expands search rules into itinerary candidates, prices them across sources and keeps the cheapest fare ever seen per route and date pair.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "Path to the YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", configPath, err)
	}
	return cfg, nil
}

// connect builds the full dependency graph. Commands run once, so metrics go
// to a private registry.
func connect(ctx context.Context, cfg *config.Config, opts ...bootstrap.ContainerOption) (*bootstrap.Container, *logger.ZapLogger, error) {
	zl, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	m := metrics.NewWithRegistry("farehunter", prometheus.NewRegistry())
	c, err := bootstrap.NewContainer(ctx, cfg, zl, m, opts...)
	if err != nil {
		_ = zl.Sync()
		return nil, nil, err
	}
	return c, zl, nil
}
