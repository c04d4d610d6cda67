package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BestPriceKey identifies one ledger entry. At most one entry exists per key.
type BestPriceKey struct {
	RuleID        int64
	Origin        string
	Destination   string
	DepartureDate time.Time
	ReturnDate    time.Time
}

func KeyOf(ruleID int64, q *Quote) BestPriceKey {
	return BestPriceKey{
		RuleID:        ruleID,
		Origin:        q.Origin,
		Destination:   q.Destination,
		DepartureDate: Day(q.DepartureDate),
		ReturnDate:    Day(q.ReturnDate),
	}
}

func (k BestPriceKey) String() string {
	return fmt.Sprintf("%d:%s:%s:%s:%s", k.RuleID, k.Origin, k.Destination,
		k.DepartureDate.Format(time.DateOnly), k.ReturnDate.Format(time.DateOnly))
}

type BestPrice struct {
	ID                 int64           `json:"id"`
	RuleID             int64           `json:"rule_id"`
	Origin             string          `json:"origin"`
	Destination        string          `json:"destination"`
	DepartureDate      time.Time       `json:"departure_date"`
	ReturnDate         time.Time       `json:"return_date"`
	Nights             int             `json:"nights"`
	BestPricePerPerson decimal.Decimal `json:"best_price_per_person"`
	BestTotal          decimal.Decimal `json:"best_total"`
	Currency           string          `json:"currency"`
	Source             string          `json:"source"`
	Airline            string          `json:"airline"`
	QuoteID            *int64          `json:"quote_id,omitempty"`
	TimesFound         int             `json:"times_found"`
	FirstSeenAt        time.Time       `json:"first_seen_at"`
	LastSeenAt         time.Time       `json:"last_seen_at"`
	Valid              bool            `json:"valid"`
	ValidUntil         *time.Time      `json:"valid_until,omitempty"`
}

// NewBestPrice opens an entry from its first observation.
func NewBestPrice(ruleID int64, q *Quote, now time.Time) *BestPrice {
	key := KeyOf(ruleID, q)
	b := &BestPrice{
		RuleID:        key.RuleID,
		Origin:        key.Origin,
		Destination:   key.Destination,
		DepartureDate: key.DepartureDate,
		ReturnDate:    key.ReturnDate,
		TimesFound:    1,
		FirstSeenAt:   now,
		LastSeenAt:    now,
		Valid:         true,
	}
	b.take(q)
	return b
}

func (b *BestPrice) Key() BestPriceKey {
	return BestPriceKey{
		RuleID:        b.RuleID,
		Origin:        b.Origin,
		Destination:   b.Destination,
		DepartureDate: b.DepartureDate,
		ReturnDate:    b.ReturnDate,
	}
}

// Observe folds a later quote for the same key into the entry. Best fields move
// when the new total is lower or equal; the counter and last-seen always move.
// It reports whether the best fields were overwritten.
func (b *BestPrice) Observe(q *Quote, now time.Time) bool {
	b.TimesFound++
	b.LastSeenAt = now
	if q.Total.GreaterThan(b.BestTotal) {
		return false
	}
	b.take(q)
	return true
}

func (b *BestPrice) take(q *Quote) {
	b.Nights = q.Nights
	b.BestPricePerPerson = q.PricePerPerson
	b.BestTotal = q.Total
	b.Currency = q.Currency
	b.Source = q.Source
	b.Airline = q.Airline
	b.QuoteID = nil
	if q.ID != 0 {
		id := q.ID
		b.QuoteID = &id
	}
}

// Invalidate soft-expires the entry without dropping its history.
func (b *BestPrice) Invalidate(now time.Time) {
	b.Valid = false
	b.ValidUntil = &now
}

func (b *BestPrice) IsValid(now time.Time) bool {
	if !b.Valid {
		return false
	}
	return b.ValidUntil == nil || b.ValidUntil.After(now)
}
