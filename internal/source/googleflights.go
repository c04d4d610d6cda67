package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/PuerkitoBio/goquery"
)

const (
	googleFlightsBaseURL = "https://www.google.com/travel/flights"

	resultCardSelector = ".yR1fYc"
	priceSelector      = ".YMlIz.FpEdX span"
	stopsSelector      = ".EfT7Ae"
	fullTextLimit      = 500
)

var stopsPattern = regexp.MustCompile(`(?i)(\d+)\s*(parada|stop)`)

// Renderer loads a page in a browser, waits for waitSelector and returns the
// rendered document. Implementations must release the browser before returning.
type Renderer interface {
	Render(ctx context.Context, pageURL, waitSelector string) (*RenderedPage, error)
}

type RenderedPage struct {
	URL  string
	HTML string
}

type GoogleFlightsConfig struct {
	BaseURL  string
	QuoteTTL time.Duration
	Now      func() time.Time
}

// GoogleFlightsSource reads the first result card of a rendered search page.
type GoogleFlightsSource struct {
	cfg      GoogleFlightsConfig
	renderer Renderer
	logger   logger.Logger

	mu         sync.RWMutex
	passengers int
	cabin      domain.CabinClass
}

func NewGoogleFlights(cfg GoogleFlightsConfig, renderer Renderer, log logger.Logger) *GoogleFlightsSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = googleFlightsBaseURL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &GoogleFlightsSource{
		cfg:        cfg,
		renderer:   renderer,
		logger:     log.With("source", GoogleFlights),
		passengers: 9,
		cabin:      domain.CabinEconomy,
	}
}

func (s *GoogleFlightsSource) Name() string {
	return GoogleFlights
}

func (s *GoogleFlightsSource) Configure(passengers int, cabin domain.CabinClass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passengers = passengers
	s.cabin = cabin
}

func (s *GoogleFlightsSource) searchURL(c domain.Candidate) string {
	q := url.Values{}
	q.Set("hl", "pt-BR")
	q.Set("gl", "br")
	q.Set("curr", "BRL")
	q.Set("departure", c.DepartureDate.Format(time.DateOnly))
	q.Set("return", c.ReturnDate.Format(time.DateOnly))
	q.Set("type", "1")
	return fmt.Sprintf("%s?q=Flights+from+%s+to+%s&%s", s.cfg.BaseURL,
		strings.ToUpper(c.Origin), strings.ToUpper(c.Destination), q.Encode())
}

func (s *GoogleFlightsSource) Search(ctx context.Context, c domain.Candidate) (*domain.Quote, error) {
	s.mu.RLock()
	passengers := s.passengers
	s.mu.RUnlock()

	pageURL := s.searchURL(c)
	page, err := s.renderer.Render(ctx, pageURL, resultCardSelector)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Message: "render failed", Cause: err}
	}

	card, err := firstCard(page.HTML)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Message: "no result card", Cause: err}
	}

	priceText := strings.TrimSpace(card.Find(priceSelector).First().Text())
	if priceText == "" {
		return nil, &FetchError{URL: pageURL, Message: "price element empty", Cause: ErrNoPrice}
	}
	price, err := ParseBRL(priceText)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Message: "price not parseable", Cause: err}
	}
	if !price.IsPositive() {
		return nil, &FetchError{URL: pageURL, Message: fmt.Sprintf("price %s from %q", price, priceText), Cause: ErrInvalidPrice}
	}

	fullText := strings.Join(strings.Fields(card.Text()), " ")
	stopsText := strings.TrimSpace(card.Find(stopsSelector).First().Text())

	now := s.cfg.Now()
	q := domain.NewQuote(GoogleFlights, c, price, passengers, now, s.cfg.QuoteTTL)
	q.Airline = carrierFromText(fullText, "Várias")
	q.Connections = connectionsFromStops(stopsText)
	q.BaggageIncluded = false
	q.BookingURL = page.URL
	if q.BookingURL == "" {
		q.BookingURL = pageURL
	}
	q.Metadata["scraped_at"] = now.Format(time.RFC3339)
	q.Metadata["stops_text"] = stopsText
	q.Metadata["browser"] = "chromium-headless"
	q.Metadata["full_text"] = truncateRunes(fullText, fullTextLimit)
	return accept(q)
}

func firstCard(html string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	card := doc.Find(resultCardSelector).First()
	if card.Length() == 0 {
		return nil, ErrNoPrice
	}
	return card, nil
}

// connectionsFromStops reads "direto"/"nonstop" as zero and "N paradas"/"N stops"
// as N. Anything else counts as one connection.
func connectionsFromStops(text string) int {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "direto") || strings.Contains(lower, "nonstop") {
		return 0
	}
	if m := stopsPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 1
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ PriceSource = (*GoogleFlightsSource)(nil)
