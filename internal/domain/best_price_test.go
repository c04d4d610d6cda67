package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func quoteAt(total int64, source string) *Quote {
	return &Quote{
		Source: source,
		Candidate: Candidate{
			Origin: "GRU", ReturnOrigin: "GRU", Destination: "CDG",
			DepartureDate: day("2026-07-18"), ReturnDate: day("2026-08-01"), Nights: 14,
		},
		PricePerPerson: decimal.NewFromInt(total / 2),
		Passengers:     2,
		Total:          decimal.NewFromInt(total),
		Currency:       CurrencyBRL,
		Airline:        "Latam",
	}
}

func TestBestPrice_ObserveCheaper(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := NewBestPrice(7, quoteAt(2000, "mock"), t0)
	assert.Equal(t, 1, entry.TimesFound)
	assert.True(t, entry.Valid)

	improved := entry.Observe(quoteAt(1800, "skyscanner"), t0.Add(time.Hour))

	assert.True(t, improved)
	assert.Equal(t, 2, entry.TimesFound)
	assert.True(t, entry.BestTotal.Equal(decimal.NewFromInt(1800)))
	assert.Equal(t, "skyscanner", entry.Source)
	assert.Equal(t, t0, entry.FirstSeenAt)
	assert.Equal(t, t0.Add(time.Hour), entry.LastSeenAt)
}

func TestBestPrice_ObservePricier(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := NewBestPrice(7, quoteAt(2000, "mock"), t0)

	improved := entry.Observe(quoteAt(2500, "skyscanner"), t0.Add(time.Hour))

	assert.False(t, improved)
	assert.Equal(t, 2, entry.TimesFound)
	assert.True(t, entry.BestTotal.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, "mock", entry.Source)
	assert.Equal(t, t0.Add(time.Hour), entry.LastSeenAt)
}

func TestBestPrice_ObserveEqualOverwritesSource(t *testing.T) {
	entry := NewBestPrice(7, quoteAt(2000, "mock"), time.Now())
	assert.True(t, entry.Observe(quoteAt(2000, "google_flights"), time.Now()))
	assert.Equal(t, "google_flights", entry.Source)
}

func TestBestPrice_Validity(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := NewBestPrice(7, quoteAt(2000, "mock"), now)
	assert.True(t, entry.IsValid(now))

	future := now.Add(time.Hour)
	entry.ValidUntil = &future
	assert.True(t, entry.IsValid(now))
	assert.False(t, entry.IsValid(now.Add(2*time.Hour)))

	entry.Invalidate(now)
	assert.False(t, entry.Valid)
	assert.Equal(t, now, *entry.ValidUntil)
	assert.False(t, entry.IsValid(now))
}

func TestKeyOf(t *testing.T) {
	q := quoteAt(2000, "mock")
	q.ReturnOrigin = "GIG"
	key := KeyOf(7, q)
	assert.Equal(t, "7:GRU:CDG:2026-07-18:2026-08-01", key.String())
	assert.Equal(t, key, NewBestPrice(7, q, time.Now()).Key())
}
