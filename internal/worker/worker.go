package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/report"
	"github.com/Domenick1991/farehunter/internal/service/search"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/google/uuid"
)

type RuleResolver interface {
	Resolve(ctx context.Context, id int64) (*domain.SearchRule, error)
}

type RunLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Run, error)
}

type Searcher interface {
	Run(ctx context.Context, rule *domain.SearchRule, names []string) (*domain.Run, error)
}

type StaleExpirer interface {
	ExpireStale(ctx context.Context, maxAge time.Duration) (int, error)
}

type ReportSender interface {
	Send(ctx context.Context, rule *domain.SearchRule, run *domain.Run, sender report.Sender) error
}

type Config struct {
	RuleID         int64
	Sources        []string
	SearchInterval time.Duration
	ExpireInterval time.Duration
	StaleAfter     time.Duration
}

// Worker runs scheduled searches, expires stale best prices and delivers the
// reports of runs announced on the event stream.
type Worker struct {
	cfg      Config
	rules    RuleResolver
	runs     RunLoader
	search   Searcher
	ledger   StaleExpirer
	reports  ReportSender
	delivery report.Sender
	logger   logger.Logger
}

func New(cfg Config, rules RuleResolver, runs RunLoader, search Searcher, ledger StaleExpirer,
	reports ReportSender, delivery report.Sender, log logger.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		rules:    rules,
		runs:     runs,
		search:   search,
		ledger:   ledger,
		reports:  reports,
		delivery: delivery,
		logger:   log.With("component", "worker"),
	}
}

// Search runs the configured rule once.
func (w *Worker) Search(ctx context.Context) (*domain.Run, error) {
	rule, err := w.rules.Resolve(ctx, w.cfg.RuleID)
	if err != nil {
		return nil, fmt.Errorf("resolve rule %d: %w", w.cfg.RuleID, err)
	}
	return w.search.Run(ctx, rule, w.cfg.Sources)
}

func (w *Worker) Expire(ctx context.Context) (int, error) {
	return w.ledger.ExpireStale(ctx, w.cfg.StaleAfter)
}

// HandleRunEvent sends the report of a completed run. Other events are ignored.
func (w *Worker) HandleRunEvent(ctx context.Context, event search.RunEvent) error {
	if event.Status != domain.RunStatusCompleted {
		w.logger.Debug("ignoring run event", "run_id", event.RunID.String(), "status", event.Status)
		return nil
	}
	run, err := w.runs.Get(ctx, event.RunID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", event.RunID, err)
	}
	rule, err := w.rules.Resolve(ctx, run.RuleID)
	if err != nil {
		return fmt.Errorf("load rule %d: %w", run.RuleID, err)
	}
	if err := w.reports.Send(ctx, rule, run, w.delivery); err != nil {
		return fmt.Errorf("send report of run %s: %w", run.ID, err)
	}
	w.logger.Info("report delivered", "run_id", run.ID.String(), "rule_id", rule.ID)
	return nil
}

// Loop runs the search and expiry schedules until ctx is done. A zero
// interval disables its schedule.
func (w *Worker) Loop(ctx context.Context) {
	searchC, stopSearch := tick(w.cfg.SearchInterval)
	defer stopSearch()
	expireC, stopExpire := tick(w.cfg.ExpireInterval)
	defer stopExpire()

	for {
		select {
		case <-searchC:
			run, err := w.Search(ctx)
			if err != nil {
				w.logger.Error("scheduled search failed", "error", err)
				continue
			}
			w.logger.Info("scheduled search finished",
				"run_id", run.ID.String(), "status", run.Status, "results", run.ResultsFound)
		case <-expireC:
			n, err := w.Expire(ctx)
			if err != nil {
				w.logger.Error("expire best prices failed", "error", err)
				continue
			}
			if n > 0 {
				w.logger.Info("expired best prices", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func tick(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}
