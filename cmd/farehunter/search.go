package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Domenick1991/farehunter/internal/bootstrap"
	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/report"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Price every candidate of a search rule",
	Long:  "Runs one search synchronously: every candidate is priced on every selected source, the best prices are updated and the report is written to the reports directory.",
	RunE:  runSearch,
}

var (
	searchRuleID  int64
	searchSources string
	searchNotify  bool
	searchQuiet   bool
)

func init() {
	searchCmd.Flags().Int64Var(&searchRuleID, "rule-id", 0, "Search rule ID (default: highest priority active rule)")
	searchCmd.Flags().StringVarP(&searchSources, "source", "s", "", "Comma separated sources: mock, skyscanner, google_flights or all (default: config)")
	searchCmd.Flags().BoolVar(&searchNotify, "notify", false, "Send the report through the enabled channels when the run completes")
	searchCmd.Flags().BoolVarP(&searchQuiet, "quiet", "q", false, "Hide the progress line")

	rootCmd.AddCommand(searchCmd)
}

func progressPrinter(out io.Writer) func(done, total int) {
	return func(done, total int) {
		fmt.Fprintf(out, "\r⏳ %d/%d buscas", done, total)
		if done == total {
			fmt.Fprintln(out)
		}
	}
}

func runSearch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var opts []bootstrap.ContainerOption
	if searchNotify {
		opts = append(opts, bootstrap.WithNotifications())
	}
	if !searchQuiet {
		opts = append(opts, bootstrap.WithSearchProgress(progressPrinter(os.Stderr)))
	}
	c, zl, err := connect(cmd.Context(), cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	defer c.Close()

	rule, err := c.RuleService.Resolve(cmd.Context(), searchRuleID)
	if err != nil {
		return fmt.Errorf("no search rule found: %w", err)
	}
	names := cfg.Search.DefaultSources
	if searchSources != "" {
		names = strings.Split(searchSources, ",")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔍 Iniciando busca de passagens...")
	fmt.Fprintf(out, "📊 Regra: %s\n", rule.Name)
	fmt.Fprintf(out, "📡 Fonte(s): %s\n\n", strings.Join(names, ", "))

	start := time.Now()
	run, err := c.Search.Run(cmd.Context(), rule, names)
	if err != nil && run == nil {
		return err
	}
	fmt.Fprintf(out, "\n✅ Busca finalizada em %.1f segundos\n", time.Since(start).Seconds())
	printRunSummary(out, run)
	if err != nil {
		return err
	}
	if run.Status != domain.RunStatusCompleted {
		return fmt.Errorf("run %s %s: %s", run.ID, run.Status, run.ErrorMessage)
	}

	best, err := c.RunService.BestPrices(cmd.Context(), rule.ID, false, 5)
	if err != nil {
		return err
	}
	printBestPrices(out, best)
	return nil
}

func printRunSummary(out io.Writer, run *domain.Run) {
	fmt.Fprintln(out, "\n📋 RESUMO")
	fmt.Fprintf(out, "  ID: %s\n", run.ID)
	fmt.Fprintf(out, "  Status: %s\n", run.Status)
	fmt.Fprintf(out, "  Combinações testadas: %d\n", run.CandidatesTested)
	fmt.Fprintf(out, "  Resultados: %d\n", run.ResultsFound)
	fmt.Fprintf(out, "  Erros: %d\n", run.ErrorsCount)
	if run.LowestTotal.Valid {
		fmt.Fprintf(out, "  Menor total: %s\n", report.FormatBRL(run.LowestTotal.Decimal))
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "  Falha: %s\n", run.ErrorMessage)
	}
}

func printBestPrices(out io.Writer, best []domain.BestPrice) {
	if len(best) == 0 {
		return
	}
	fmt.Fprintln(out, "\n🏆 MELHORES PREÇOS")
	for i, b := range best {
		fmt.Fprintf(out, "  %d. %s → %s (%s) %s - %s | %s/pessoa | total %s | %s\n",
			i+1, b.Origin, b.Destination, report.City(b.Destination),
			b.DepartureDate.Format("02/01"), b.ReturnDate.Format("02/01"),
			report.FormatBRL(b.BestPricePerPerson), report.FormatBRL(b.BestTotal), b.Airline)
	}
}
