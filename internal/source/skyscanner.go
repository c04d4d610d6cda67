package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/PuerkitoBio/goquery"
)

const (
	skyscannerBaseURL     = "https://www.skyscanner.com.br"
	defaultAttempts       = 3
	defaultRetryDelay     = 2 * time.Second
	defaultRateLimitDelay = 5 * time.Second
	defaultHTTPTimeout    = 30 * time.Second
	maxBodyBytes          = 8 << 20
)

var (
	brlPricePattern   = regexp.MustCompile(`R\$\s*([\d.]+,\d+)`)
	plainPricePattern = regexp.MustCompile(`(\d+[.,]\d+)`)
	designatorPattern = regexp.MustCompile(`([A-Z]{2}\s*\d+)`)
	blockMarkers      = []string{"captcha", "Cloudflare"}
)

type SkyscannerConfig struct {
	BaseURL        string
	Timeout        time.Duration
	Attempts       int
	RetryDelay     time.Duration
	RateLimitDelay time.Duration
	QuoteTTL       time.Duration
	Client         *http.Client
	Now            func() time.Time
}

// SkyscannerSource fetches the public results page and reads the first price,
// carrier, stop and baggage signals out of its text.
type SkyscannerSource struct {
	cfg    SkyscannerConfig
	client *http.Client
	logger logger.Logger

	mu         sync.RWMutex
	passengers int
	cabin      domain.CabinClass
}

func NewSkyscanner(cfg SkyscannerConfig, log logger.Logger) *SkyscannerSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = skyscannerBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = defaultRateLimitDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &SkyscannerSource{
		cfg:        cfg,
		client:     client,
		logger:     log.With("source", Skyscanner),
		passengers: 9,
		cabin:      domain.CabinEconomy,
	}
}

func (s *SkyscannerSource) Name() string {
	return Skyscanner
}

func (s *SkyscannerSource) Configure(passengers int, cabin domain.CabinClass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passengers = passengers
	s.cabin = cabin
}

func (s *SkyscannerSource) params() (int, domain.CabinClass) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passengers, s.cabin
}

func (s *SkyscannerSource) searchURL(c domain.Candidate, passengers int, cabin domain.CabinClass) string {
	return fmt.Sprintf("%s/transporte/passagens-aereas/%s/%s/%s/%s?adults=%d&cabinclass=%s",
		strings.TrimRight(s.cfg.BaseURL, "/"),
		strings.ToLower(c.Origin),
		strings.ToLower(c.Destination),
		c.DepartureDate.Format(time.DateOnly),
		c.ReturnDate.Format(time.DateOnly),
		passengers,
		skyscannerCabin(cabin),
	)
}

func skyscannerCabin(cabin domain.CabinClass) string {
	switch cabin {
	case domain.CabinPremiumEconomy:
		return "premiumeconomy"
	case domain.CabinBusiness:
		return "business"
	case domain.CabinFirst:
		return "first"
	default:
		return "economy"
	}
}

// Search retries request errors, non-2xx replies and 429s up to the attempt
// budget, waiting longer after a 429. A block page or a page without a price
// fails at once.
func (s *SkyscannerSource) Search(ctx context.Context, c domain.Candidate) (*domain.Quote, error) {
	passengers, cabin := s.params()
	url := s.searchURL(c, passengers, cabin)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		status, body, err := s.fetch(ctx, url)
		delay := s.cfg.RetryDelay
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &FetchError{URL: url, Message: "request failed", Cause: err}
		case status == http.StatusTooManyRequests:
			lastErr = &FetchError{URL: url, Status: status, Message: "too many requests", Cause: ErrRateLimited}
			delay = s.cfg.RateLimitDelay
		case status < 200 || status > 299:
			lastErr = &FetchError{URL: url, Status: status, Message: "unexpected status"}
		default:
			if marker, blocked := blockMarker(body); blocked {
				return nil, &FetchError{URL: url, Status: status, Message: fmt.Sprintf("found %q", marker), Cause: ErrBlocked}
			}
			return s.parse(c, passengers, body, url)
		}

		s.logger.Warn("skyscanner attempt failed", "attempt", attempt, "candidate", c.String(), "error", lastErr)
		if attempt < s.cfg.Attempts {
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("skyscanner: %d attempts exhausted: %w", s.cfg.Attempts, lastErr)
}

func (s *SkyscannerSource) fetch(ctx context.Context, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, string(data), nil
}

func blockMarker(body string) (string, bool) {
	for _, m := range blockMarkers {
		if strings.Contains(body, m) {
			return m, true
		}
	}
	return "", false
}

func (s *SkyscannerSource) parse(c domain.Candidate, passengers int, body, url string) (*domain.Quote, error) {
	text := visibleText(body)

	match := brlPricePattern.FindStringSubmatch(text)
	if match == nil {
		match = plainPricePattern.FindStringSubmatch(text)
	}
	if match == nil {
		return nil, &FetchError{URL: url, Message: "price pattern not found", Cause: ErrNoPrice}
	}
	price, err := ParseBRL(match[1])
	if err != nil {
		return nil, &FetchError{URL: url, Message: "price not parseable", Cause: err}
	}

	airline := "Vários"
	if m := designatorPattern.FindStringSubmatch(text); m != nil {
		airline = CarrierName(m[1])
	}

	lower := strings.ToLower(text)
	connections := 1
	if strings.Contains(lower, "direto") || strings.Contains(lower, "diretamente") {
		connections = 0
	}

	now := s.cfg.Now()
	q := domain.NewQuote(Skyscanner, c, price, passengers, now, s.cfg.QuoteTTL)
	q.Airline = airline
	q.Connections = connections
	q.BaggageIncluded = strings.Contains(lower, "bagagem") || strings.Contains(lower, "malas")
	q.BookingURL = url
	q.Metadata["scraped_at"] = now.Format(time.RFC3339)

	quote, err := accept(q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuote) {
			return nil, &FetchError{URL: url, Message: "rejected quote", Cause: err}
		}
		return nil, err
	}
	return quote, nil
}

// visibleText drops scripts and styles and collapses whitespace. Bodies that do
// not parse as HTML are matched raw.
func visibleText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

var _ PriceSource = (*SkyscannerSource)(nil)
