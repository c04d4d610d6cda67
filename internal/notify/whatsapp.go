package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/farehunter/pkg/logger"
)

const (
	ProviderTwilio    = "twilio"
	ProviderCallMeBot = "callmebot"
	ProviderEvolution = "evolution"

	twilioBaseURL    = "https://api.twilio.com"
	callMeBotBaseURL = "https://api.callmebot.com"
)

type WhatsAppConfig struct {
	Provider          string
	To                string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFrom        string
	CallMeBotAPIKey   string
	EvolutionURL      string
	EvolutionAPIKey   string
	EvolutionInstance string

	// Overridable endpoints for tests.
	TwilioBaseURL    string
	CallMeBotBaseURL string
	Client           *http.Client
}

// WhatsAppSender posts the short form of a report through one of the
// supported WhatsApp gateways.
type WhatsAppSender struct {
	cfg    WhatsAppConfig
	client *http.Client
	logger logger.Logger
}

func NewWhatsAppSender(cfg WhatsAppConfig, log logger.Logger) *WhatsAppSender {
	if cfg.TwilioBaseURL == "" {
		cfg.TwilioBaseURL = twilioBaseURL
	}
	if cfg.CallMeBotBaseURL == "" {
		cfg.CallMeBotBaseURL = callMeBotBaseURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WhatsAppSender{cfg: cfg, client: client, logger: log.With("channel", "whatsapp")}
}

func (s *WhatsAppSender) Channel() string {
	return "whatsapp"
}

func (s *WhatsAppSender) Send(ctx context.Context, msg Message) error {
	text := msg.Short
	if text == "" {
		text = msg.Body
	}
	switch s.cfg.Provider {
	case ProviderTwilio:
		return s.sendTwilio(ctx, text)
	case ProviderCallMeBot:
		return s.sendCallMeBot(ctx, text)
	case ProviderEvolution:
		return s.sendEvolution(ctx, text)
	default:
		return fmt.Errorf("%w: unknown whatsapp provider %q", ErrNotConfigured, s.cfg.Provider)
	}
}

func (s *WhatsAppSender) sendTwilio(ctx context.Context, text string) error {
	c := s.cfg
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFrom == "" || c.To == "" {
		return fmt.Errorf("%w: twilio credentials missing", ErrNotConfigured)
	}
	form := url.Values{
		"From": {"whatsapp:" + c.TwilioFrom},
		"To":   {"whatsapp:" + c.To},
		"Body": {text},
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(c.TwilioBaseURL, "/"), c.TwilioAccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.TwilioAccountSID, c.TwilioAuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req, ProviderTwilio)
}

func (s *WhatsAppSender) sendCallMeBot(ctx context.Context, text string) error {
	c := s.cfg
	if c.CallMeBotAPIKey == "" || c.To == "" {
		return fmt.Errorf("%w: callmebot credentials missing", ErrNotConfigured)
	}
	q := url.Values{
		"phone":  {digits(c.To)},
		"text":   {text},
		"apikey": {c.CallMeBotAPIKey},
	}
	endpoint := strings.TrimRight(c.CallMeBotBaseURL, "/") + "/whatsapp.php?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return s.do(req, ProviderCallMeBot)
}

func (s *WhatsAppSender) sendEvolution(ctx context.Context, text string) error {
	c := s.cfg
	if c.EvolutionURL == "" || c.EvolutionAPIKey == "" || c.EvolutionInstance == "" || c.To == "" {
		return fmt.Errorf("%w: evolution credentials missing", ErrNotConfigured)
	}
	body, err := json.Marshal(map[string]string{
		"number": digits(c.To) + "@s.whatsapp.net",
		"text":   text,
	})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/message/sendText/%s", strings.TrimRight(c.EvolutionURL, "/"), c.EvolutionInstance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.EvolutionAPIKey)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, ProviderEvolution)
}

func (s *WhatsAppSender) do(req *http.Request, provider string) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s responded %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	s.logger.Debug("message accepted", "provider", provider, "status", resp.StatusCode)
	return nil
}

func digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var _ Notifier = (*WhatsAppSender)(nil)
