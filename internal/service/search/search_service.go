package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Domenick1991/farehunter/internal/combinator"
	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/source"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/Domenick1991/farehunter/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SearchUseCase runs a rule against a set of price sources.
type SearchUseCase interface {
	Start(ctx context.Context, rule *domain.SearchRule, sources []string) (*domain.Run, error)
	Execute(ctx context.Context, rule *domain.SearchRule, run *domain.Run) (*domain.Run, error)
	Run(ctx context.Context, rule *domain.SearchRule, sources []string) (*domain.Run, error)
}

type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
}

type QuoteRepository interface {
	Create(ctx context.Context, q *domain.Quote) error
	CountByRun(ctx context.Context, runID uuid.UUID) (int, error)
	CheapestByRun(ctx context.Context, runID uuid.UUID) (*domain.Quote, error)
}

type Ledger interface {
	Record(ctx context.Context, ruleID int64, q *domain.Quote) error
}

type SourceFactory interface {
	Expand(names []string) ([]string, error)
	New(name string) (source.PriceSource, error)
}

// Reporter receives every completed run once its quote set is final.
type Reporter interface {
	RunCompleted(ctx context.Context, rule *domain.SearchRule, run *domain.Run) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// ProgressFunc is called after each task with the number of finished tasks.
type ProgressFunc func(done, total int)

// RunEvent is published when a run reaches a terminal status.
type RunEvent struct {
	Type        string           `json:"type"`
	RunID       uuid.UUID        `json:"run_id"`
	RuleID      int64            `json:"rule_id"`
	Status      domain.RunStatus `json:"status"`
	Results     int              `json:"results_found"`
	Errors      int              `json:"errors_count"`
	LowestTotal string           `json:"lowest_total,omitempty"`
	Error       string           `json:"error,omitempty"`
	At          time.Time        `json:"at"`
}

type SearchService struct {
	runs        RunRepository
	quotes      QuoteRepository
	ledger      Ledger
	sources     SourceFactory
	logger      logger.Logger
	metrics     *metrics.Metrics
	reporter    Reporter
	publisher   EventPublisher
	topic       string
	concurrency int
	progress    ProgressFunc
	now         func() time.Time
}

type SearchServiceOption func(*SearchService)

func WithReporter(r Reporter) SearchServiceOption {
	return func(s *SearchService) {
		s.reporter = r
	}
}

func WithEventPublisher(p EventPublisher, topic string) SearchServiceOption {
	return func(s *SearchService) {
		s.publisher = p
		s.topic = topic
	}
}

func WithConcurrency(n int) SearchServiceOption {
	return func(s *SearchService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) SearchServiceOption {
	return func(s *SearchService) {
		s.metrics = m
	}
}

func WithProgress(fn ProgressFunc) SearchServiceOption {
	return func(s *SearchService) {
		s.progress = fn
	}
}

func WithClock(now func() time.Time) SearchServiceOption {
	return func(s *SearchService) {
		s.now = now
	}
}

func NewSearchService(
	runs RunRepository,
	quotes QuoteRepository,
	ledger Ledger,
	sources SourceFactory,
	log logger.Logger,
	opts ...SearchServiceOption,
) *SearchService {
	s := &SearchService{
		runs:        runs,
		quotes:      quotes,
		ledger:      ledger,
		sources:     sources,
		logger:      log.With("component", "search"),
		concurrency: 8,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the request and persists a pending run. Configuration errors
// are returned before anything is written.
func (s *SearchService) Start(ctx context.Context, rule *domain.SearchRule, names []string) (*domain.Run, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	expanded, err := s.sources.Expand(names)
	if err != nil {
		return nil, err
	}
	for _, name := range expanded {
		if _, err := s.sources.New(name); err != nil {
			return nil, err
		}
	}

	run := domain.NewRun(rule.ID, expanded, s.now())
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RunsStarted.Inc()
	}
	s.logger.Info("run created", "run_id", run.ID.String(), "rule_id", rule.ID, "sources", expanded)
	return run, nil
}

// Run is Start followed by Execute.
func (s *SearchService) Run(ctx context.Context, rule *domain.SearchRule, names []string) (*domain.Run, error) {
	run, err := s.Start(ctx, rule, names)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, rule, run)
}

type task struct {
	source    source.PriceSource
	candidate domain.Candidate
}

// Execute drives a pending run to completed or failed. The returned error is
// non-nil only for run-fatal failures; the run is returned in both cases.
// ResultsFound counts stored quotes and ErrorsCount counts tasks that stored
// none, so a task is never counted in both.
func (s *SearchService) Execute(ctx context.Context, rule *domain.SearchRule, run *domain.Run) (*domain.Run, error) {
	log := s.logger.With("run_id", run.ID.String(), "rule_id", rule.ID)

	if err := run.Start(s.now()); err != nil {
		return run, err
	}
	if err := s.runs.Update(ctx, run); err != nil {
		return run, s.fail(ctx, log, rule, run, fmt.Errorf("mark run running: %w", err), nil)
	}

	candidates, err := generate(rule)
	if err != nil {
		return run, s.fail(ctx, log, rule, run, err, map[string]interface{}{"stage": "generate"})
	}
	run.CandidatesTested = len(candidates)
	if err := s.runs.Update(ctx, run); err != nil {
		return run, s.fail(ctx, log, rule, run, fmt.Errorf("record candidate count: %w", err), nil)
	}

	sources := make([]source.PriceSource, 0, len(run.Sources))
	for _, name := range run.Sources {
		src, err := s.sources.New(name)
		if err != nil {
			return run, s.fail(ctx, log, rule, run, err, map[string]interface{}{"stage": "sources"})
		}
		source.ConfigureForRule(src, rule)
		sources = append(sources, src)
	}

	tasks := make([]task, 0, len(candidates)*len(sources))
	for _, src := range sources {
		for _, c := range candidates {
			tasks = append(tasks, task{source: src, candidate: c})
		}
	}
	log.Info("run started", "candidates", len(candidates), "sources", run.Sources, "tasks", len(tasks))

	run.ErrorsCount = s.dispatch(ctx, log, rule, run.ID, tasks)

	if err := ctx.Err(); err != nil {
		return run, s.fail(ctx, log, rule, run, fmt.Errorf("run interrupted: %w", err), map[string]interface{}{"stage": "dispatch"})
	}

	found, err := s.quotes.CountByRun(ctx, run.ID)
	if err != nil {
		return run, s.fail(ctx, log, rule, run, fmt.Errorf("count quotes: %w", err), map[string]interface{}{"stage": "aggregate"})
	}
	best, err := s.quotes.CheapestByRun(ctx, run.ID)
	if err != nil {
		return run, s.fail(ctx, log, rule, run, fmt.Errorf("find cheapest quote: %w", err), map[string]interface{}{"stage": "aggregate"})
	}
	// Persist a completed copy first; run stays running until the store agrees.
	completed := *run
	if err := completed.Complete(s.now(), found, best); err != nil {
		return run, err
	}
	if err := s.runs.Update(ctx, &completed); err != nil {
		return run, s.fail(ctx, log, rule, run, fmt.Errorf("persist completed run: %w", err), map[string]interface{}{"stage": "complete"})
	}
	*run = completed

	fields := []interface{}{"results", run.ResultsFound, "errors", run.ErrorsCount, "duration_seconds", run.DurationSeconds}
	if run.LowestTotal.Valid {
		fields = append(fields, "lowest_total", run.LowestTotal.Decimal.StringFixed(2))
	}
	log.Info("run completed", fields...)
	s.finished(ctx, log, rule, run)
	return run, nil
}

func generate(rule *domain.SearchRule) (candidates []domain.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generate candidates: %v", r)
		}
	}()
	return combinator.Generate(rule), nil
}

// dispatch runs every task with bounded parallelism and returns the number of
// failed tasks. Task failures never cancel siblings.
func (s *SearchService) dispatch(ctx context.Context, log logger.Logger, rule *domain.SearchRule, runID uuid.UUID, tasks []task) int {
	var (
		g      errgroup.Group
		failed atomic.Int64
		done   atomic.Int64
		mu     sync.Mutex
	)
	g.SetLimit(s.concurrency)

	total := len(tasks)
	for _, t := range tasks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := s.runTask(ctx, log, rule, runID, t); err != nil {
				failed.Add(1)
			}
			n := done.Add(1)
			if s.progress != nil {
				mu.Lock()
				s.progress(int(n), total)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(failed.Load())
}

func (s *SearchService) runTask(ctx context.Context, log logger.Logger, rule *domain.SearchRule, runID uuid.UUID, t task) (err error) {
	name := t.source.Name()
	started := time.Now()
	outcome := "error"
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source %s panicked: %v", name, r)
			log.Error("search task failed", "source", name, "candidate", t.candidate.String(), "error", err)
		}
		if s.metrics != nil {
			s.metrics.Tasks.WithLabelValues(name, outcome).Inc()
			s.metrics.TaskDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
		}
	}()

	q, err := t.source.Search(ctx, t.candidate)
	if err != nil {
		log.Error("search task failed", "source", name, "candidate", t.candidate.String(), "error", err)
		return err
	}
	if q == nil {
		outcome = "empty"
		log.Warn("no price found", "source", name, "candidate", t.candidate.String())
		return nil
	}

	q.RunID = runID
	q.Candidate.RuleID = rule.ID
	if err := s.quotes.Create(ctx, q); err != nil {
		log.Error("persist quote", "source", name, "candidate", t.candidate.String(), "error", err)
		return err
	}
	outcome = "quote"
	// A stored quote is a result even when the ledger write fails.
	if err := s.ledger.Record(ctx, rule.ID, q); err != nil {
		log.Error("record best price", "source", name, "candidate", t.candidate.String(), "error", err)
	}

	log.Info("price found", "source", name, "candidate", t.candidate.String(),
		"total", q.Total.StringFixed(2), "airline", q.Airline)
	return nil
}

// fail moves the run to failed and persists it even when ctx is already done.
func (s *SearchService) fail(ctx context.Context, log logger.Logger, rule *domain.SearchRule, run *domain.Run, cause error, details map[string]interface{}) error {
	if err := run.Fail(s.now(), cause, details); err != nil {
		return errors.Join(cause, err)
	}
	log.Error("run failed", "error", cause)

	persistCtx := context.WithoutCancel(ctx)
	if err := s.runs.Update(persistCtx, run); err != nil {
		log.Error("persist failed run", "error", err)
		cause = errors.Join(cause, fmt.Errorf("persist failed run: %w", err))
	}
	s.finished(persistCtx, log, rule, run)
	return cause
}

// finished runs the post-terminal side effects. Their errors never change the run.
func (s *SearchService) finished(ctx context.Context, log logger.Logger, rule *domain.SearchRule, run *domain.Run) {
	if s.metrics != nil {
		s.metrics.RunsFinished.WithLabelValues(string(run.Status)).Inc()
	}

	if run.Status == domain.RunStatusCompleted && s.reporter != nil {
		if err := s.reporter.RunCompleted(ctx, rule, run); err != nil {
			log.Warn("report generation failed", "error", err)
		}
	}

	if s.publisher == nil || s.topic == "" {
		return
	}
	event := RunEvent{
		Type:    "run_" + string(run.Status),
		RunID:   run.ID,
		RuleID:  run.RuleID,
		Status:  run.Status,
		Results: run.ResultsFound,
		Errors:  run.ErrorsCount,
		Error:   run.ErrorMessage,
		At:      s.now(),
	}
	if run.LowestTotal.Valid {
		event.LowestTotal = run.LowestTotal.Decimal.StringFixed(2)
	}
	if err := s.publisher.Publish(ctx, s.topic, run.ID.String(), event); err != nil {
		log.Warn("publish run event failed", "error", err)
	}
}
