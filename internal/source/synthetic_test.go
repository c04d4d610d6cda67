package source

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestSynthetic(seed uint64) *Synthetic {
	return NewSynthetic(SyntheticConfig{Rand: rand.New(rand.NewPCG(seed, seed))}, logger.NewNop())
}

func TestSynthetic_TraditionalWeekday(t *testing.T) {
	// 2026-07-21 is a Tuesday.
	c := domain.Candidate{
		DepartureDate: day("2026-07-21"), ReturnDate: day("2026-08-04"), Nights: 14,
		Origin: "GRU", ReturnOrigin: "GRU", Destination: "CDG",
	}
	base := decimal.NewFromInt(7500).Mul(decimal.RequireFromString("1.10")).
		Mul(decimal.RequireFromString("0.95")).Mul(decimal.RequireFromString("1.02"))
	low := base.Mul(decimal.RequireFromString("0.90")).Round(2)
	high := base.Mul(decimal.RequireFromString("1.10")).Round(2)

	src := newTestSynthetic(1)
	src.Configure(9, domain.CabinEconomy)

	for i := 0; i < 50; i++ {
		q, err := src.Search(context.Background(), c)
		require.NoError(t, err)
		require.NotNil(t, q)

		assert.True(t, q.PricePerPerson.IsPositive())
		assert.True(t, q.PricePerPerson.GreaterThanOrEqual(low), q.PricePerPerson.String())
		assert.True(t, q.PricePerPerson.LessThanOrEqual(high), q.PricePerPerson.String())
		assert.True(t, q.Total.Equal(q.PricePerPerson.Mul(decimal.NewFromInt(9))))
		assert.Equal(t, 9, q.Passengers)
		assert.Equal(t, Mock, q.Source)
		assert.Contains(t, []string{"Air France", "Latam", "Azul", "TAP"}, q.Airline)
		assert.Contains(t, []int{0, 1}, q.Connections)
		assert.Equal(t, true, q.Metadata["mock"])
		assert.Regexp(t, `^https://example\.com/book/\d{4}$`, q.BookingURL)
	}
}

func TestSynthetic_Surcharges(t *testing.T) {
	src := newTestSynthetic(7)
	weekday := domain.Candidate{
		DepartureDate: day("2026-07-21"), Nights: 13,
		Origin: "GIG", ReturnOrigin: "GIG", Destination: "XXX",
	}
	assert.True(t, src.price(weekday, 13, 0).Equal(decimal.NewFromInt(7500)))

	friday := weekday
	friday.DepartureDate = day("2026-07-24")
	assert.True(t, src.price(friday, 13, 0).Equal(decimal.NewFromInt(7875)))

	openJaw := weekday
	openJaw.ReturnOrigin = "GRU"
	assert.True(t, src.price(openJaw, 13, 0).Equal(decimal.NewFromInt(7725)))

	longer := weekday
	longer.Nights = 16
	assert.True(t, src.price(longer, 13, 0).Equal(decimal.NewFromInt(7950)))
	assert.True(t, src.price(longer, 16, 0).Equal(decimal.NewFromInt(7500)))

	assert.True(t, src.price(weekday, 13, -10).Equal(decimal.NewFromInt(6750)))
	assert.True(t, src.price(weekday, 13, 10).Equal(decimal.NewFromInt(8250)))
}

func TestSynthetic_ConfigureForRuleSetsBaseNights(t *testing.T) {
	src := newTestSynthetic(3)
	rule := domain.NewSearchRule("r")
	rule.Nights = domain.NightsWindow{Min: 7, Max: 10}
	rule.Passengers = 2

	ConfigureForRule(Throttle(src, NewGate(1, 0)), rule)

	assert.Equal(t, 7, src.baseNights)
	assert.Equal(t, 2, src.passengers)
}

func TestSynthetic_ContextCancelledDuringLatency(t *testing.T) {
	src := NewSynthetic(SyntheticConfig{MinLatency: time.Second, MaxLatency: time.Second}, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q, err := src.Search(ctx, domain.Candidate{Origin: "GRU", ReturnOrigin: "GRU", Destination: "CDG"})
	assert.Nil(t, q)
	assert.ErrorIs(t, err, context.Canceled)
}
