package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/Domenick1991/farehunter/internal/notify"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type Config struct {
	From         string
	To           []string
	CC           []string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (c Config) configured() bool {
	return c.From != "" && len(c.To) > 0 && c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Sender delivers reports through the Gmail API as the configured account.
type Sender struct {
	cfg    Config
	logger logger.Logger
	send   func(ctx context.Context, raw string) error
	now    func() time.Time
}

// NewSender builds a Gmail client from the refresh token. An incomplete config
// yields a sender whose Send returns notify.ErrNotConfigured.
func NewSender(ctx context.Context, cfg Config, log logger.Logger) (*Sender, error) {
	s := &Sender{cfg: cfg, logger: log.With("channel", "email"), now: time.Now}
	if !cfg.configured() {
		return s, nil
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken, Expiry: time.Now()})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	s.send = func(ctx context.Context, raw string) error {
		_, err := svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
		return err
	}
	return s, nil
}

func (s *Sender) Channel() string {
	return "email"
}

func (s *Sender) Send(ctx context.Context, msg notify.Message) error {
	if s.send == nil {
		return fmt.Errorf("%w: gmail credentials or recipients missing", notify.ErrNotConfigured)
	}
	raw, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.send(ctx, base64.URLEncoding.EncodeToString(raw)); err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	s.logger.Info("email sent", "to", strings.Join(s.cfg.To, ","), "subject", msg.Subject)
	return nil
}

// build renders an RFC 5322 message with a text body and an optional text attachment.
func (s *Sender) build(msg notify.Message) ([]byte, error) {
	var buf bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}

	header("From", s.cfg.From)
	header("To", strings.Join(s.cfg.To, ", "))
	if len(s.cfg.CC) > 0 {
		header("Cc", strings.Join(s.cfg.CC, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if len(msg.Attachment) == 0 {
		header("Content-Type", `text/plain; charset="utf-8"`)
		buf.WriteString("\r\n")
		buf.WriteString(msg.Body)
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	header("Content-Type", fmt.Sprintf(`multipart/mixed; boundary="%s"`, mw.Boundary()))
	buf.WriteString("\r\n")

	body, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {`text/plain; charset="utf-8"`}})
	if err != nil {
		return nil, err
	}
	if _, err := body.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}

	name := msg.AttachmentName
	if name == "" {
		name = "relatorio.txt"
	}
	att, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf(`text/plain; charset="utf-8"; name="%s"`, name)},
		"Content-Disposition":       {fmt.Sprintf(`attachment; filename="%s"`, name)},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := att.Write([]byte(base64.StdEncoding.EncodeToString(msg.Attachment))); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ notify.Notifier = (*Sender)(nil)
