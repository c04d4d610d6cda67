package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
)

const (
	FullLimit      = 20
	ExecutiveLimit = 5
	WhatsAppLimit  = 3
)

// Data is everything a report renders. Quotes must be ordered cheapest total first.
type Data struct {
	Rule   *domain.SearchRule
	Run    *domain.Run
	Quotes []domain.Quote
}

// Generator renders runs as plain text for files, email and chat.
type Generator struct {
	label func(source string) string
	now   func() time.Time
}

type GeneratorOption func(*Generator)

// WithSourceLabels replaces source identifiers with display names.
func WithSourceLabels(label func(string) string) GeneratorOption {
	return func(g *Generator) {
		g.label = label
	}
}

func WithNow(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		label: func(s string) string { return s },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank)
	}
}

func top(quotes []domain.Quote, n int) []domain.Quote {
	if len(quotes) > n {
		return quotes[:n]
	}
	return quotes
}

func (g *Generator) sources(run *domain.Run) string {
	labels := make([]string, 0, len(run.Sources))
	for _, s := range run.Sources {
		labels = append(labels, g.label(s))
	}
	return strings.Join(labels, ", ")
}

func stamp(run *domain.Run) time.Time {
	if run.CompletedAt != nil {
		return *run.CompletedAt
	}
	return run.UpdatedAt
}

func dm(t time.Time) string {
	return t.Format("02/01")
}

// Full is the complete text report: top 20 quotes and statistics by origin and destination.
func (g *Generator) Full(d Data) string {
	heavy, light := strings.Repeat("═", 60), strings.Repeat("─", 60)
	var lines []string
	add := func(l ...string) { lines = append(lines, l...) }

	add(heavy, "  RELATÓRIO DE BUSCA DE PASSAGENS", "  "+d.Rule.Name, heavy, "")
	add(
		"Data: "+stamp(d.Run).Format("02/01/2006 15:04"),
		fmt.Sprintf("Buscas realizadas: %d", d.Run.CandidatesTested),
		fmt.Sprintf("Resultados encontrados: %d", d.Run.ResultsFound),
		"Fontes: "+g.sources(d.Run),
		fmt.Sprintf("Duração: %ds", d.Run.DurationSeconds),
		"",
	)

	add(light, "🥇 MELHORES PREÇOS", light, "")
	best := top(d.Quotes, FullLimit)
	if len(best) == 0 {
		add("Nenhum preço encontrado.")
	}
	for i, q := range best {
		add(
			fmt.Sprintf("%s %s → %s %s → %s %s → %s", medal(i+1), FormatBRL(q.PricePerPerson),
				q.Origin, dm(q.DepartureDate), q.Destination, dm(q.ReturnDate), q.ReturnOrigin),
			fmt.Sprintf("   Total: %s (%d pessoas)", FormatBRL(q.Total), q.Passengers),
			fmt.Sprintf("   Fonte: %s | %d noites | %s", g.label(q.Source), q.Nights, q.Airline),
			"",
		)
	}

	st := Compute(d.Quotes)
	add(light, "📊 ESTATÍSTICAS", light, "")
	add(
		"Preço médio: "+FormatNumber(st.Avg, 2),
		"Menor preço: "+FormatNumber(st.Min, 2),
		"Maior preço: "+FormatNumber(st.Max, 2),
		fmt.Sprintf("Variação: %s (%s%%)", FormatNumber(st.Range, 2), FormatNumber(st.VariationPercent, 1)),
		"",
	)
	add("Por origem:")
	for _, a := range st.ByOrigin {
		add(fmt.Sprintf("  • %s: %s", a.Code, FormatNumber(a.Price, 2)))
	}
	add("", "Por destino:")
	for _, a := range st.ByDestination {
		add(fmt.Sprintf("  • %s (%s): %s", City(a.Code), a.Code, FormatNumber(a.Price, 2)))
	}
	add("", heavy, "Fim do relatório", heavy)
	return strings.Join(lines, "\n")
}

func bestDestination(st Stats) string {
	best, ok := st.BestDestination()
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%s (%s)", City(best.Code), FormatBRL(best.Price))
}

// Executive is the top 5 summary sent by email.
func (g *Generator) Executive(d Data) string {
	rule := strings.Repeat("═", 50)
	var lines []string
	add := func(l ...string) { lines = append(lines, l...) }

	add("📊 RELATÓRIO EXECUTIVO - "+d.Rule.Name, rule, "")
	add(
		"Data: "+stamp(d.Run).Format("02/01/2006 15:04"),
		fmt.Sprintf("Combinações testadas: %d", d.Run.CandidatesTested),
		fmt.Sprintf("Resultados encontrados: %d", d.Run.ResultsFound),
		"Fontes: "+g.sources(d.Run),
		fmt.Sprintf("Duração: %ds", d.Run.DurationSeconds),
		"",
	)

	add(rule, "🏆 MELHORES PREÇOS (TOP 5)", rule, "")
	best := top(d.Quotes, ExecutiveLimit)
	if len(best) == 0 {
		add("Nenhum preço encontrado.")
	}
	for i, q := range best {
		add(
			fmt.Sprintf("%s %s", medal(i+1), FormatBRL(q.PricePerPerson)),
			fmt.Sprintf("   %s %s → %s %s → %s", q.Origin, dm(q.DepartureDate), q.Destination, dm(q.ReturnDate), q.ReturnOrigin),
			fmt.Sprintf("   Total: %s (%d pessoas)", FormatBRL(q.Total), q.Passengers),
			fmt.Sprintf("   %d noites | %s", q.Nights, q.Airline),
			"",
		)
	}

	st := Compute(d.Quotes)
	add(rule, "📈 ESTATÍSTICAS", rule, "")
	add(
		"Menor preço: "+FormatNumber(st.Min, 2),
		"Preço médio: "+FormatNumber(st.Avg, 2),
		fmt.Sprintf("Variação: %s%%", FormatNumber(st.VariationPercent, 1)),
		"",
		"Melhor destino: "+bestDestination(st),
		"",
	)
	add(rule, "Gerado em: "+g.now().Format("02/01/2006 15:04:05"), rule)
	return strings.Join(lines, "\n")
}

// WhatsApp is the compact top 3 summary for chat.
func (g *Generator) WhatsApp(d Data) string {
	var lines []string
	add := func(l ...string) { lines = append(lines, l...) }

	add("✈️ *"+d.Rule.Name+"*", "")
	best := top(d.Quotes, WhatsAppLimit)
	if len(best) == 0 {
		add("❌ Nenhum preço encontrado.")
	} else {
		add("*🏆 MELHORES PREÇOS*", "")
		for i, q := range best {
			add(
				fmt.Sprintf("%s *%s*", medal(i+1), FormatBRL(q.PricePerPerson)),
				fmt.Sprintf("%s %s → %s → %s", q.Origin, dm(q.DepartureDate), q.Destination, q.ReturnOrigin),
				fmt.Sprintf("Total: *%s* | %d noites", FormatBRL(q.Total), q.Nights),
				"",
			)
		}
		st := Compute(d.Quotes)
		add(
			fmt.Sprintf("📊 Menor: %s | Média: %s", FormatNumber(st.Min, 2), FormatNumber(st.Avg, 2)),
			"Melhor destino: "+bestDestination(st),
		)
	}
	add("", "_Atualizado: "+stamp(d.Run).Format("02/01/2006 15:04")+"_")
	return strings.Join(lines, "\n")
}

// Subject is the email subject, with the cheapest per-person price when known.
func Subject(d Data) string {
	s := "📊 Relatório de Passagens - " + d.Rule.Name
	if len(d.Quotes) > 0 {
		s += " - A partir de " + FormatBRL(d.Quotes[0].PricePerPerson)
	}
	return s
}
