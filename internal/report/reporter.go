package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/notify"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/google/uuid"
)

type QuoteLister interface {
	ListByRun(ctx context.Context, runID uuid.UUID, limit int) ([]domain.Quote, error)
}

type Sender interface {
	Send(ctx context.Context, msg notify.Message) error
}

// Reporter writes the full report of every completed run to disk and, when a
// sender is set, delivers the executive and chat summaries.
type Reporter struct {
	quotes    QuoteLister
	generator *Generator
	dir       string
	sender    Sender
	logger    logger.Logger
	now       func() time.Time
}

type ReporterOption func(*Reporter)

// WithSender delivers a notification after each completed run.
func WithSender(s Sender) ReporterOption {
	return func(r *Reporter) {
		r.sender = s
	}
}

func WithClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		r.now = now
	}
}

func NewReporter(quotes QuoteLister, generator *Generator, dir string, log logger.Logger, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		quotes:    quotes,
		generator: generator,
		dir:       dir,
		logger:    log.With("component", "report"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) Generator() *Generator {
	return r.generator
}

// Load collects the run's quotes, cheapest first.
func (r *Reporter) Load(ctx context.Context, rule *domain.SearchRule, run *domain.Run) (Data, error) {
	quotes, err := r.quotes.ListByRun(ctx, run.ID, 0)
	if err != nil {
		return Data{}, fmt.Errorf("load quotes of run %s: %w", run.ID, err)
	}
	return Data{Rule: rule, Run: run, Quotes: quotes}, nil
}

// Save writes the full report and returns its path.
func (r *Reporter) Save(d Data) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := fmt.Sprintf("search_%s_%s.txt", d.Run.ID, r.now().Format("20060102_150405"))
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, []byte(r.generator.Full(d)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Message packs the summaries of d for delivery, attaching the full report.
func (r *Reporter) Message(d Data) notify.Message {
	return notify.Message{
		Subject:        Subject(d),
		Body:           r.generator.Executive(d),
		Short:          r.generator.WhatsApp(d),
		AttachmentName: fmt.Sprintf("relatorio_%s.txt", d.Run.ID),
		Attachment:     []byte(r.generator.Full(d)),
	}
}

func (r *Reporter) RunCompleted(ctx context.Context, rule *domain.SearchRule, run *domain.Run) error {
	d, err := r.Load(ctx, rule, run)
	if err != nil {
		return err
	}
	path, err := r.Save(d)
	if err != nil {
		return err
	}
	r.logger.Info("report saved", "run_id", run.ID.String(), "path", path)

	if r.sender == nil {
		return nil
	}
	return r.sender.Send(ctx, r.Message(d))
}

// Send delivers the report of an already completed run.
func (r *Reporter) Send(ctx context.Context, rule *domain.SearchRule, run *domain.Run, sender Sender) error {
	if run.Status != domain.RunStatusCompleted {
		return fmt.Errorf("run %s is %s, not completed", run.ID, run.Status)
	}
	d, err := r.Load(ctx, rule, run)
	if err != nil {
		return err
	}
	return sender.Send(ctx, r.Message(d))
}

const (
	FormatFull      = "full"
	FormatExecutive = "executive"
	FormatWhatsApp  = "whatsapp"
)

var ErrUnknownFormat = errors.New("unknown report format")

// Render loads the run's quotes and renders them in the named format.
func (r *Reporter) Render(ctx context.Context, rule *domain.SearchRule, run *domain.Run, format string) (string, error) {
	var render func(Data) string
	switch format {
	case FormatFull, "":
		render = r.generator.Full
	case FormatExecutive:
		render = r.generator.Executive
	case FormatWhatsApp:
		render = r.generator.WhatsApp
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	d, err := r.Load(ctx, rule, run)
	if err != nil {
		return "", err
	}
	return render(d), nil
}
