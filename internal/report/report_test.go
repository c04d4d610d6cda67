package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/notify"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in     string
		places int32
		want   string
	}{
		{"0", 2, "0,00"},
		{"999.5", 2, "999,50"},
		{"1234.56", 2, "1.234,56"},
		{"7512.3", 2, "7.512,30"},
		{"1234567.891", 2, "1.234.567,89"},
		{"-4500", 2, "-4.500,00"},
		{"12.345", 1, "12,3"},
		{"100000", 0, "100.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(decimal.RequireFromString(tt.in), tt.places), tt.in)
	}
	assert.Equal(t, "R$ 1.234,56", FormatBRL(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "Paris", City("CDG"))
	assert.Equal(t, "MAD", City("MAD"))
}

func quote(origin, dest string, ppp int64) domain.Quote {
	dep := time.Date(2026, 7, 18, 0, 0, 0, 0, time.UTC)
	q := domain.NewQuote("mock", domain.Candidate{
		Origin: origin, ReturnOrigin: origin, Destination: dest,
		DepartureDate: dep, ReturnDate: dep.AddDate(0, 0, 14), Nights: 14,
	}, decimal.NewFromInt(ppp), 9, dep, 0)
	q.Airline = "Latam"
	return *q
}

func TestCompute(t *testing.T) {
	st := Compute([]domain.Quote{
		quote("GRU", "CDG", 4000),
		quote("GIG", "CDG", 5000),
		quote("GRU", "LHR", 6000),
	})

	assert.Equal(t, 3, st.Count)
	assert.True(t, st.Min.Equal(decimal.NewFromInt(4000)))
	assert.True(t, st.Max.Equal(decimal.NewFromInt(6000)))
	assert.True(t, st.Avg.Equal(decimal.NewFromInt(5000)))
	assert.True(t, st.Range.Equal(decimal.NewFromInt(2000)))
	assert.True(t, st.VariationPercent.Equal(decimal.NewFromInt(50)))
	require.Len(t, st.ByOrigin, 2)
	assert.Equal(t, "GIG", st.ByOrigin[0].Code)
	assert.True(t, st.ByOrigin[1].Price.Equal(decimal.NewFromInt(5000)))

	best, ok := st.BestDestination()
	require.True(t, ok)
	assert.Equal(t, "CDG", best.Code)
	assert.True(t, best.Price.Equal(decimal.NewFromInt(4500)))
}

func TestCompute_Empty(t *testing.T) {
	st := Compute(nil)
	assert.Zero(t, st.Count)
	assert.True(t, st.Avg.IsZero())
	_, ok := st.BestDestination()
	assert.False(t, ok)
}

func TestBestDestination_TieGoesToSmallerCode(t *testing.T) {
	st := Compute([]domain.Quote{
		quote("GRU", "LHR", 5000),
		quote("GRU", "FCO", 5000),
		quote("GRU", "CDG", 5500),
	})
	best, ok := st.BestDestination()
	require.True(t, ok)
	assert.Equal(t, "FCO", best.Code)
}

func sampleData() Data {
	rule := domain.NewSearchRule("Viagem Europa")
	started := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	run := domain.NewRun(1, []string{"mock", "skyscanner"}, started)
	_ = run.Start(started)
	run.CandidatesTested = 36
	quotes := []domain.Quote{
		quote("GRU", "CDG", 4000),
		quote("GIG", "LHR", 4500),
		quote("GRU", "FCO", 5000),
		quote("GIG", "CDG", 5200),
	}
	_ = run.Complete(started.Add(90*time.Second), len(quotes), &quotes[0])
	return Data{Rule: rule, Run: run, Quotes: quotes}
}

func labels(s string) string {
	return map[string]string{"mock": "Mock (Teste)", "skyscanner": "Skyscanner"}[s]
}

func TestGenerator_Full(t *testing.T) {
	g := NewGenerator(WithSourceLabels(labels))
	out := g.Full(sampleData())

	assert.Contains(t, out, "  Viagem Europa")
	assert.Contains(t, out, "Data: 01/07/2026 08:01")
	assert.Contains(t, out, "Buscas realizadas: 36")
	assert.Contains(t, out, "Resultados encontrados: 4")
	assert.Contains(t, out, "Fontes: Mock (Teste), Skyscanner")
	assert.Contains(t, out, "Duração: 90s")
	assert.Contains(t, out, "🥇 R$ 4.000,00 → GRU 18/07 → CDG 01/08 → GRU")
	assert.Contains(t, out, "   Total: R$ 36.000,00 (9 pessoas)")
	assert.Contains(t, out, "   Fonte: Mock (Teste) | 14 noites | Latam")
	assert.Contains(t, out, "4. R$ 5.200,00")
	assert.Contains(t, out, "Menor preço: 4.000,00")
	assert.Contains(t, out, "Variação: 1.200,00 (30,0%)")
	assert.Contains(t, out, "  • GIG: 4.850,00")
	assert.Contains(t, out, "  • Londres (LHR): 4.500,00")
	assert.True(t, strings.HasSuffix(out, strings.Repeat("═", 60)))
}

func TestGenerator_ExecutiveAndWhatsApp(t *testing.T) {
	now := time.Date(2026, 7, 1, 9, 30, 15, 0, time.UTC)
	g := NewGenerator(WithNow(func() time.Time { return now }))
	d := sampleData()

	exec := g.Executive(d)
	assert.Contains(t, exec, "📊 RELATÓRIO EXECUTIVO - Viagem Europa")
	assert.Contains(t, exec, "Combinações testadas: 36")
	assert.Contains(t, exec, "   GIG 18/07 → LHR 01/08 → GIG")
	assert.Contains(t, exec, "Melhor destino: Londres (R$ 4.500,00)")
	assert.Contains(t, exec, "Gerado em: 01/07/2026 09:30:15")

	wa := g.WhatsApp(d)
	assert.Contains(t, wa, "✈️ *Viagem Europa*")
	assert.Contains(t, wa, "🥉 *R$ 5.000,00*")
	assert.NotContains(t, wa, "5.200,00*")
	assert.Contains(t, wa, "Total: *R$ 36.000,00* | 14 noites")
	assert.Contains(t, wa, "📊 Menor: 4.000,00 | Média: 4.675,00")

	assert.Equal(t, "📊 Relatório de Passagens - Viagem Europa - A partir de R$ 4.000,00", Subject(d))
}

func TestGenerator_NoQuotes(t *testing.T) {
	d := sampleData()
	d.Quotes = nil
	g := NewGenerator()

	assert.Contains(t, g.Full(d), "Nenhum preço encontrado.")
	assert.Contains(t, g.Executive(d), "Melhor destino: N/A")
	assert.Contains(t, g.WhatsApp(d), "❌ Nenhum preço encontrado.")
	assert.Equal(t, "📊 Relatório de Passagens - Viagem Europa", Subject(d))
}

type MockQuoteLister struct {
	mock.Mock
}

func (m *MockQuoteLister) ListByRun(ctx context.Context, runID uuid.UUID, limit int) ([]domain.Quote, error) {
	args := m.Called(ctx, runID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Quote), args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestReporter_RunCompleted(t *testing.T) {
	d := sampleData()
	lister := &MockQuoteLister{}
	lister.On("ListByRun", mock.Anything, d.Run.ID, 0).Return(d.Quotes, nil)
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m notify.Message) bool {
		return strings.HasPrefix(m.Subject, "📊 Relatório de Passagens") &&
			strings.Contains(m.Short, "MELHORES PREÇOS") &&
			len(m.Attachment) > 0
	})).Return(nil).Once()

	dir := t.TempDir()
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	r := NewReporter(lister, NewGenerator(), dir, logger.NewNop(),
		WithSender(sender), WithClock(func() time.Time { return now }))

	require.NoError(t, r.RunCompleted(context.Background(), d.Rule, d.Run))

	path := filepath.Join(dir, "search_"+d.Run.ID.String()+"_20260701_090000.txt")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "RELATÓRIO DE BUSCA DE PASSAGENS")
	sender.AssertExpectations(t)
}

func TestReporter_LoadError(t *testing.T) {
	d := sampleData()
	lister := &MockQuoteLister{}
	lister.On("ListByRun", mock.Anything, d.Run.ID, 0).Return(nil, errors.New("db down"))

	r := NewReporter(lister, NewGenerator(), t.TempDir(), logger.NewNop())
	err := r.RunCompleted(context.Background(), d.Rule, d.Run)
	assert.ErrorContains(t, err, "db down")
}

func TestReporter_SendRequiresCompletedRun(t *testing.T) {
	d := sampleData()
	d.Run.Status = domain.RunStatusFailed
	r := NewReporter(&MockQuoteLister{}, NewGenerator(), t.TempDir(), logger.NewNop())

	err := r.Send(context.Background(), d.Rule, d.Run, &MockSender{})
	assert.ErrorContains(t, err, "not completed")
}

func TestReporter_Render(t *testing.T) {
	d := sampleData()
	lister := &MockQuoteLister{}
	lister.On("ListByRun", mock.Anything, d.Run.ID, 0).Return(d.Quotes, nil)
	r := NewReporter(lister, NewGenerator(), t.TempDir(), logger.NewNop())

	out, err := r.Render(context.Background(), d.Rule, d.Run, FormatWhatsApp)
	require.NoError(t, err)
	assert.Contains(t, out, "MELHORES PREÇOS")

	_, err = r.Render(context.Background(), d.Rule, d.Run, "pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
