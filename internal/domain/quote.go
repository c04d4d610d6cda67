package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CurrencyBRL     = "BRL"
	DefaultQuoteTTL = 6 * time.Hour
)

// Quote is a single price observation returned by one source for one candidate.
type Quote struct {
	ID     int64     `json:"id"`
	RunID  uuid.UUID `json:"run_id"`
	Source string    `json:"source"`
	Candidate
	PricePerPerson  decimal.Decimal        `json:"price_per_person"`
	Passengers      int                    `json:"passengers"`
	Total           decimal.Decimal        `json:"total"`
	Currency        string                 `json:"currency"`
	Airline         string                 `json:"airline"`
	Connections     int                    `json:"connections"`
	BaggageIncluded bool                   `json:"baggage_included"`
	BookingURL      string                 `json:"booking_url,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	ExpiresAt       time.Time              `json:"expires_at"`
}

// NewQuote prices a candidate for the given party size. Total is always
// price-per-person times passengers.
func NewQuote(source string, c Candidate, pricePerPerson decimal.Decimal, passengers int, now time.Time, ttl time.Duration) *Quote {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &Quote{
		Source:         source,
		Candidate:      c,
		PricePerPerson: pricePerPerson.Round(2),
		Passengers:     passengers,
		Total:          pricePerPerson.Round(2).Mul(decimal.NewFromInt(int64(passengers))),
		Currency:       CurrencyBRL,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		Metadata:       map[string]interface{}{},
	}
}

// Validate accepts a quote only with a positive price and a named airline.
func (q *Quote) Validate() error {
	if !q.PricePerPerson.IsPositive() {
		return fmt.Errorf("%w: price per person %s is not positive", ErrInvalidQuote, q.PricePerPerson)
	}
	if q.Airline == "" {
		return fmt.Errorf("%w: airline is empty", ErrInvalidQuote)
	}
	return nil
}

func (q *Quote) IsExpired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}
