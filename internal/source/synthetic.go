package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/shopspring/decimal"
)

var (
	syntheticBasePrice = decimal.NewFromInt(7500)

	destinationMultipliers = map[string]decimal.Decimal{
		"CDG": decimal.RequireFromString("1.10"),
		"LHR": decimal.RequireFromString("1.15"),
		"FCO": decimal.RequireFromString("1.05"),
	}
	originMultipliers = map[string]decimal.Decimal{
		"GRU": decimal.RequireFromString("0.95"),
		"GIG": decimal.RequireFromString("1.00"),
	}

	nightSurcharge   = decimal.RequireFromString("0.02")
	weekendSurcharge = decimal.RequireFromString("1.05")
	openJawSurcharge = decimal.RequireFromString("1.03")

	airlinesByDestination = map[string][]string{
		"CDG": {"Air France", "Latam", "Azul", "TAP"},
		"LHR": {"British Airways", "Latam", "Azul", "TAP"},
		"FCO": {"Alitalia", "Latam", "Azul", "TAP"},
	}
	defaultAirlines = []string{"Latam", "Azul", "Gol", "TAP", "Air France", "British Airways", "Alitalia"}
)

const defaultBaseNights = 13

type SyntheticConfig struct {
	MinLatency time.Duration
	MaxLatency time.Duration
	QuoteTTL   time.Duration
	// Rand pins the jitter; nil seeds from the clock.
	Rand *rand.Rand
	Now  func() time.Time
}

// Synthetic prices candidates from a fixed base fare and route multipliers. It
// never fails on well-formed input.
type Synthetic struct {
	cfg    SyntheticConfig
	logger logger.Logger

	mu         sync.Mutex
	rnd        *rand.Rand
	passengers int
	cabin      domain.CabinClass
	baseNights int
}

func NewSynthetic(cfg SyntheticConfig, log logger.Logger) *Synthetic {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxLatency < cfg.MinLatency {
		cfg.MaxLatency = cfg.MinLatency
	}
	rnd := cfg.Rand
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Synthetic{
		cfg:        cfg,
		logger:     log.With("source", Mock),
		rnd:        rnd,
		passengers: 9,
		cabin:      domain.CabinEconomy,
		baseNights: defaultBaseNights,
	}
}

func (s *Synthetic) Name() string {
	return Mock
}

func (s *Synthetic) Configure(passengers int, cabin domain.CabinClass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passengers = passengers
	s.cabin = cabin
}

func (s *Synthetic) SetBaseNights(nights int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseNights = nights
}

type syntheticDraw struct {
	latency     time.Duration
	jitter      int
	airline     string
	connections int
	baggage     bool
	bookingRef  int
}

func (s *Synthetic) draw(destination string) syntheticDraw {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := syntheticDraw{latency: s.cfg.MinLatency}
	if spread := s.cfg.MaxLatency - s.cfg.MinLatency; spread > 0 {
		d.latency += time.Duration(s.rnd.Int64N(int64(spread) + 1))
	}
	d.jitter = s.rnd.IntN(21) - 10

	options, ok := airlinesByDestination[destination]
	if !ok {
		options = defaultAirlines
	}
	d.airline = options[s.rnd.IntN(len(options))]
	if s.rnd.IntN(11) >= 7 {
		d.connections = 1
	}
	d.baggage = s.rnd.IntN(2) == 1
	d.bookingRef = 1000 + s.rnd.IntN(9000)
	return d
}

func (s *Synthetic) Search(ctx context.Context, c domain.Candidate) (*domain.Quote, error) {
	d := s.draw(c.Destination)
	if err := sleepCtx(ctx, d.latency); err != nil {
		return nil, err
	}

	s.mu.Lock()
	passengers, baseNights := s.passengers, s.baseNights
	s.mu.Unlock()

	now := s.cfg.Now()
	q := domain.NewQuote(Mock, c, s.price(c, baseNights, d.jitter), passengers, now, s.cfg.QuoteTTL)
	q.Airline = d.airline
	q.Connections = d.connections
	q.BaggageIncluded = d.baggage
	q.BookingURL = fmt.Sprintf("https://example.com/book/%d", d.bookingRef)
	q.Metadata["mock"] = true
	q.Metadata["generated_at"] = now.Format(time.RFC3339)
	return accept(q)
}

// price applies the route multipliers, a 2% surcharge per night above
// baseNights, Friday and Saturday departures at +5%, the jitter in percent and
// +3% for open-jaw routes.
func (s *Synthetic) price(c domain.Candidate, baseNights, jitter int) decimal.Decimal {
	price := syntheticBasePrice
	if m, ok := destinationMultipliers[c.Destination]; ok {
		price = price.Mul(m)
	}
	if m, ok := originMultipliers[c.Origin]; ok {
		price = price.Mul(m)
	}

	extraNights := decimal.NewFromInt(int64(c.Nights - baseNights))
	price = price.Mul(decimal.NewFromInt(1).Add(extraNights.Mul(nightSurcharge)))

	if wd := c.DepartureDate.Weekday(); wd == time.Friday || wd == time.Saturday {
		price = price.Mul(weekendSurcharge)
	}

	price = price.Mul(decimal.NewFromInt(1).Add(decimal.New(int64(jitter), -2)))

	if c.IsOpenJaw() {
		price = price.Mul(openJawSurcharge)
	}
	return price.Round(2)
}

var (
	_ PriceSource = (*Synthetic)(nil)
	_ NightsAware = (*Synthetic)(nil)
)
