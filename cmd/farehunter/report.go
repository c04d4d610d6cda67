package main

import (
	"fmt"
	"strings"

	"github.com/Domenick1991/farehunter/internal/bootstrap"
	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/report"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render and deliver search reports",
}

var reportShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the report of a completed run",
	RunE:  runReportShow,
}

var reportSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send the report of a completed run by e-mail and/or WhatsApp",
	Long:  "Without --email or --whatsapp the channels enabled in the config are used. Without --run-id the latest completed run of the rule is sent.",
	RunE:  runReportSend,
}

var (
	reportRunID    string
	reportRuleID   int64
	reportFormat   string
	reportEmail    bool
	reportWhatsApp bool
	reportTo       string
)

func init() {
	for _, c := range []*cobra.Command{reportShowCmd, reportSendCmd} {
		c.Flags().StringVar(&reportRunID, "run-id", "", "Run ID (default: latest completed run of the rule)")
		c.Flags().Int64Var(&reportRuleID, "rule-id", 0, "Search rule ID used to find the latest run")
	}
	reportShowCmd.Flags().StringVarP(&reportFormat, "format", "f", report.FormatFull, "Report format: full, executive or whatsapp")
	reportSendCmd.Flags().BoolVar(&reportEmail, "email", false, "Send by e-mail")
	reportSendCmd.Flags().BoolVar(&reportWhatsApp, "whatsapp", false, "Send by WhatsApp")
	reportSendCmd.Flags().StringVar(&reportTo, "to", "", "Override the recipient (e-mail address or phone number)")

	reportCmd.AddCommand(reportShowCmd, reportSendCmd)
	rootCmd.AddCommand(reportCmd)
}

// findRun loads the requested run, or the newest completed run of the rule.
func findRun(cmd *cobra.Command, c *bootstrap.Container) (*domain.SearchRule, *domain.Run, error) {
	ctx := cmd.Context()
	if reportRunID != "" {
		id, err := uuid.Parse(reportRunID)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid run id %q: %w", reportRunID, err)
		}
		run, err := c.RunService.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		rule, err := c.RuleService.Get(ctx, run.RuleID)
		if err != nil {
			return nil, nil, err
		}
		return rule, run, nil
	}

	rule, err := c.RuleService.Resolve(ctx, reportRuleID)
	if err != nil {
		return nil, nil, fmt.Errorf("no search rule found: %w", err)
	}
	recent, err := c.RunService.ListByRule(ctx, rule.ID, 20)
	if err != nil {
		return nil, nil, err
	}
	for i := range recent {
		if recent[i].Status == domain.RunStatusCompleted {
			return rule, &recent[i], nil
		}
	}
	return nil, nil, fmt.Errorf("rule %d has no completed run", rule.ID)
}

func runReportShow(cmd *cobra.Command, _ []string) error {
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

	rule, run, err := findRun(cmd, c)
	if err != nil {
		return err
	}
	text, err := c.Reporter.Render(cmd.Context(), rule, run, reportFormat)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func runReportSend(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if reportEmail || reportWhatsApp {
		cfg.Reports.Email.Enabled = reportEmail
		cfg.Reports.WhatsApp.Enabled = reportWhatsApp
	}
	if reportTo != "" {
		if strings.Contains(reportTo, "@") {
			cfg.Reports.Email.To = []string{reportTo}
		} else {
			cfg.Reports.WhatsApp.To = reportTo
		}
	}
	if !cfg.Reports.Email.Enabled && !cfg.Reports.WhatsApp.Enabled {
		return fmt.Errorf("no channel enabled: use --email and/or --whatsapp")
	}

	c, zl, err := connect(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	defer c.Close()

	rule, run, err := findRun(cmd, c)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📊 Enviando relatório da busca %s...\n", run.ID)
	fmt.Fprintf(out, "📋 Regra: %s\n", rule.Name)

	if err := c.Reporter.Send(cmd.Context(), rule, run, c.Dispatcher); err != nil {
		return err
	}
	fmt.Fprintln(out, "✅ Relatório enviado")
	return nil
}
