package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

// DateWindow is an inclusive range of calendar days.
type DateWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (w DateWindow) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(w.From)) && !d.After(Day(w.To))
}

func (w DateWindow) Days() int {
	if Day(w.To).Before(Day(w.From)) {
		return 0
	}
	return DaysBetween(w.From, w.To) + 1
}

type NightsWindow struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (w NightsWindow) Contains(n int) bool {
	return n >= w.Min && n <= w.Max
}

type SearchRule struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name" validate:"max=255"`
	Description     string       `json:"description,omitempty"`
	Departure       DateWindow   `json:"departure"`
	Return          DateWindow   `json:"return"`
	Nights          NightsWindow `json:"nights"`
	Origins         []string     `json:"origins" validate:"dive,len=3,uppercase"`
	Destinations    []string     `json:"destinations" validate:"dive,len=3,uppercase"`
	Passengers      int          `json:"passengers" validate:"min=1,max=9"`
	Cabin           CabinClass   `json:"cabin" validate:"oneof=economy premium_economy business first"`
	MaxConnections  int          `json:"max_connections" validate:"min=0,max=3"`
	BaggageRequired bool         `json:"baggage_required"`
	Active          bool         `json:"active"`
	Priority        int          `json:"priority"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewSearchRule fills the defaults used when a rule is created without them.
func NewSearchRule(name string) *SearchRule {
	return &SearchRule{
		Name:            name,
		Nights:          NightsWindow{Min: 13, Max: 16},
		Passengers:      9,
		Cabin:           CabinEconomy,
		MaxConnections:  1,
		BaggageRequired: true,
		Active:          true,
	}
}

var validate = validator.New()

func (r *SearchRule) Validate() error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{Field: fe.Namespace(), Message: fmt.Sprintf("failed on %q", fe.Tag())}
		}
		return &ValidationError{Message: err.Error()}
	}

	if r.Departure.From.IsZero() || r.Departure.To.IsZero() {
		return &ValidationError{Field: "departure", Message: "window bounds are required"}
	}
	if r.Return.From.IsZero() || r.Return.To.IsZero() {
		return &ValidationError{Field: "return", Message: "window bounds are required"}
	}
	if Day(r.Departure.To).Before(Day(r.Departure.From)) {
		return &ValidationError{Field: "departure", Message: "window is empty"}
	}
	if Day(r.Return.To).Before(Day(r.Return.From)) {
		return &ValidationError{Field: "return", Message: "window is empty"}
	}
	if r.Nights.Min < 1 {
		return &ValidationError{Field: "nights", Message: "minimum must be positive"}
	}
	if r.Nights.Max < r.Nights.Min {
		return &ValidationError{Field: "nights", Message: "window is empty"}
	}
	return nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}
