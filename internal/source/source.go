package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	Mock          = "mock"
	Skyscanner    = "skyscanner"
	GoogleFlights = "google_flights"
	All           = "all"
)

var (
	ErrUnknownSource = errors.New("unknown price source")
	ErrBlocked       = errors.New("blocked by anti-automation")
	ErrRateLimited   = errors.New("rate limited")
	ErrNoPrice       = errors.New("no price in response")
	ErrInvalidPrice  = errors.New("invalid price")
)

// PriceSource prices one candidate. A nil quote with a nil error means the
// source legitimately found nothing; any error is a task failure.
type PriceSource interface {
	Name() string
	Configure(passengers int, cabin domain.CabinClass)
	Search(ctx context.Context, c domain.Candidate) (*domain.Quote, error)
}

// NightsAware sources scale their price from the rule's shortest stay.
type NightsAware interface {
	SetBaseNights(nights int)
}

// Wrapper is implemented by decorators so rule settings reach the inner source.
type Wrapper interface {
	Unwrap() PriceSource
}

// ConfigureForRule applies the rule's party and stay settings to src and every
// source it wraps.
func ConfigureForRule(src PriceSource, rule *domain.SearchRule) {
	src.Configure(rule.Passengers, rule.Cabin)
	for s := src; s != nil; {
		if na, ok := s.(NightsAware); ok {
			na.SetBaseNights(rule.Nights.Min)
		}
		w, ok := s.(Wrapper)
		if !ok {
			break
		}
		s = w.Unwrap()
	}
}

// FetchError describes a failed fetch against a remote source.
type FetchError struct {
	URL     string
	Status  int
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, msg, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, msg)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

func accept(q *domain.Quote) (*domain.Quote, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// ParseBRL converts a pt-BR price such as "R$ 7.512,30" into a decimal. Dots are
// thousands separators and the comma marks the decimals.
func ParseBRL(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(raw, "R$", "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '.' {
			return -1
		}
		return r
	}, s)
	s = strings.Replace(s, ",", ".", 1)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty price text", ErrInvalidPrice)
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	return price, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
