package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Domenick1991/farehunter/internal/combinator"
	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/report"
	"github.com/spf13/cobra"
)

var combinationsCmd = &cobra.Command{
	Use:   "combinations",
	Short: "List every itinerary candidate of a search rule",
	Long:  "Expands a search rule into its date pairs and route pairs. Without --rule-id the highest priority active rule is used; --sample uses the built-in Europe trip rule and needs no database.",
	RunE:  runCombinations,
}

var (
	combinationsRuleID  int64
	combinationsStats   bool
	combinationsJSON    bool
	combinationsSample  bool
	combinationsSources string
)

func init() {
	combinationsCmd.Flags().Int64Var(&combinationsRuleID, "rule-id", 0, "Search rule ID (default: highest priority active rule)")
	combinationsCmd.Flags().BoolVar(&combinationsStats, "stats", false, "Only print statistics")
	combinationsCmd.Flags().BoolVar(&combinationsJSON, "json", false, "Print candidates as JSON")
	combinationsCmd.Flags().BoolVar(&combinationsSample, "sample", false, "Use the built-in Europe trip rule")
	combinationsCmd.Flags().StringVar(&combinationsSources, "sources", "", "Comma separated sources used to estimate searches (default: config)")

	rootCmd.AddCommand(combinationsCmd)
}

func runCombinations(cmd *cobra.Command, _ []string) error {
	var (
		rule    *domain.SearchRule
		sources = 1
	)
	if combinationsSample {
		rule = europeRule()
		if combinationsSources != "" {
			sources = len(strings.Split(combinationsSources, ","))
		}
	} else {
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

		names := cfg.Search.DefaultSources
		if combinationsSources != "" {
			names = strings.Split(combinationsSources, ",")
		}
		expanded, err := c.Registry.Expand(names)
		if err != nil {
			return err
		}
		sources = len(expanded)
		if rule, err = c.RuleService.Resolve(cmd.Context(), combinationsRuleID); err != nil {
			return fmt.Errorf("no search rule found: %w", err)
		}
	}
	if err := rule.Validate(); err != nil {
		return err
	}

	candidates := combinator.Generate(rule)
	out := cmd.OutOrStdout()
	if combinationsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(candidates)
	}

	fmt.Fprintf(out, "🔍 Analisando SearchRule: %s\n\n", rule.Name)
	printStats(out, combinator.Summarize(candidates, sources), sources)
	if combinationsStats {
		return nil
	}
	fmt.Fprintln(out)
	printCandidates(out, candidates)
	return nil
}

func printStats(out io.Writer, st combinator.Statistics, sources int) {
	fmt.Fprintln(out, "📊 ESTATÍSTICAS")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total de Combinações\t%d\n", st.Total)
	fmt.Fprintf(tw, "Rotas Tradicionais\t%d\n", st.Traditional)
	fmt.Fprintf(tw, "Rotas Open-Jaw\t%d\n", st.OpenJaw)
	fmt.Fprintf(tw, "Buscas Estimadas (%d fontes)\t%d\n", sources, st.EstimatedSearches)
	_ = tw.Flush()

	fmt.Fprintln(out, "\n📅 POR Noites:")
	nights := make([]int, 0, len(st.ByNights))
	for n := range st.ByNights {
		nights = append(nights, n)
	}
	sort.Ints(nights)
	for _, n := range nights {
		fmt.Fprintf(out, "  • %d noites: %d combinações\n", n, st.ByNights[n])
	}

	fmt.Fprintln(out, "\n✈️  POR Origem:")
	for _, code := range sortedKeys(st.ByOrigin) {
		fmt.Fprintf(out, "  • %s: %d combinações\n", code, st.ByOrigin[code])
	}

	fmt.Fprintln(out, "\n🌍 POR Destino:")
	for _, code := range sortedKeys(st.ByDestination) {
		fmt.Fprintf(out, "  • %s (%s): %d combinações\n", report.City(code), code, st.ByDestination[code])
	}
}

func printCandidates(out io.Writer, candidates []domain.Candidate) {
	fmt.Fprintln(out, "🔢 TODAS AS COMBINAÇÕES")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tIda\tVolta\tNoites\tOrigem\tDest\tVolta\tOpen-Jaw")
	for i, c := range candidates {
		openJaw := ""
		if c.IsOpenJaw() {
			openJaw = "✓"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n", i+1,
			c.DepartureDate.Format("02/01/2006"), c.ReturnDate.Format("02/01/2006"),
			c.Nights, c.Origin, c.Destination, c.ReturnOrigin, openJaw)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\n✅ Total: %d combinações listadas\n", len(candidates))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
