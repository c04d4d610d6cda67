package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and maintain best prices",
}

var ledgerExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Invalidate best prices not seen recently",
	RunE:  runLedgerExpire,
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the best prices of a rule",
	RunE:  runLedgerShow,
}

var (
	ledgerMaxAge time.Duration
	ledgerRuleID int64
	ledgerAll    bool
	ledgerLimit  int
)

func init() {
	ledgerExpireCmd.Flags().DurationVar(&ledgerMaxAge, "max-age", 0, "Invalidate entries not observed within this age (default: config)")
	ledgerShowCmd.Flags().Int64Var(&ledgerRuleID, "rule-id", 0, "Search rule ID (default: highest priority active rule)")
	ledgerShowCmd.Flags().BoolVar(&ledgerAll, "all", false, "Include invalidated entries")
	ledgerShowCmd.Flags().IntVar(&ledgerLimit, "limit", 10, "Maximum entries to print")

	ledgerCmd.AddCommand(ledgerExpireCmd, ledgerShowCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func runLedgerExpire(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, zl, err := connect(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	defer c.Close()

	maxAge := ledgerMaxAge
	if maxAge <= 0 {
		maxAge = cfg.Worker.StaleAfter()
	}
	n, err := c.Ledger.ExpireStale(cmd.Context(), maxAge)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d best prices invalidated (not seen for %s)\n", n, maxAge)
	return nil
}

func runLedgerShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, zl, err := connect(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	defer c.Close()

	rule, err := c.RuleService.Resolve(cmd.Context(), ledgerRuleID)
	if err != nil {
		return fmt.Errorf("no search rule found: %w", err)
	}
	best, err := c.RunService.BestPrices(cmd.Context(), rule.ID, ledgerAll, ledgerLimit)
	if err != nil {
		return err
	}
	if len(best) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nenhum preço registrado.")
		return nil
	}
	printBestPrices(cmd.OutOrStdout(), best)
	return nil
}
