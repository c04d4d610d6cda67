package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewQuote(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q := NewQuote("mock", Candidate{Origin: "GRU", ReturnOrigin: "GRU", Destination: "CDG"},
		decimal.RequireFromString("7837.50"), 9, now, 0)

	assert.True(t, q.Total.Equal(decimal.RequireFromString("70537.50")))
	assert.Equal(t, CurrencyBRL, q.Currency)
	assert.Equal(t, now.Add(6*time.Hour), q.ExpiresAt)
	assert.False(t, q.IsExpired(now.Add(time.Hour)))
	assert.True(t, q.IsExpired(now.Add(6*time.Hour)))
}

func TestQuote_Validate(t *testing.T) {
	now := time.Now()
	q := NewQuote("mock", Candidate{}, decimal.NewFromInt(100), 2, now, time.Hour)
	assert.ErrorIs(t, q.Validate(), ErrInvalidQuote)

	q.Airline = "Latam"
	assert.NoError(t, q.Validate())

	q.PricePerPerson = decimal.Zero
	assert.ErrorIs(t, q.Validate(), ErrInvalidQuote)
}
