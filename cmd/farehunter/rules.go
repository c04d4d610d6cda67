package main

import (
	"fmt"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage search rules",
}

var rulesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default Europe trip rule",
	RunE:  runRulesSeed,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List search rules",
	RunE:  runRulesList,
}

var rulesListActive bool

func init() {
	rulesListCmd.Flags().BoolVar(&rulesListActive, "active", false, "Only active rules")

	rulesCmd.AddCommand(rulesSeedCmd, rulesListCmd)
	rootCmd.AddCommand(rulesCmd)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// europeRule is the family trip the tool was first built for: nine passengers
// to Paris, London or Rome out of Sao Paulo or Rio.
func europeRule() *domain.SearchRule {
	rule := domain.NewSearchRule("Viagem Europa - 15 Anos da Clarice")
	rule.Description = "Busca automática de passagens para viagem em família (9 pessoas) para Paris, Londres e Roma. " +
		"Janela: 18-20/07/2026 (ida) e 01-03/08/2026 (volta)."
	rule.Departure = domain.DateWindow{From: date(2026, time.July, 18), To: date(2026, time.July, 20)}
	rule.Return = domain.DateWindow{From: date(2026, time.August, 1), To: date(2026, time.August, 3)}
	rule.Origins = []string{"GRU", "GIG"}
	rule.Destinations = []string{"CDG", "LHR", "FCO"}
	rule.Priority = 100
	return rule
}

func runRulesSeed(cmd *cobra.Command, _ []string) error {
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

	seed := europeRule()
	existing, err := c.RuleService.List(cmd.Context(), false)
	if err != nil {
		return err
	}
	for _, r := range existing {
		if r.Name == seed.Name {
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %q already exists (#%d)\n", r.Name, r.ID)
			return nil
		}
	}

	rule, err := c.RuleService.Create(cmd.Context(), seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ SearchRule %q criada (#%d)\n", rule.Name, rule.ID)
	return nil
}

func runRulesList(cmd *cobra.Command, _ []string) error {
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

	list, err := c.RuleService.List(cmd.Context(), rulesListActive)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range list {
		state := "inactive"
		if r.Active {
			state = "active"
		}
		fmt.Fprintf(out, "#%d\t%s\tpriority=%d\t%s\t%v -> %v\n", r.ID, r.Name, r.Priority, state, r.Origins, r.Destinations)
	}
	return nil
}
