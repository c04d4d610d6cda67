package runs

import (
	"context"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/repository"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/google/uuid"
)

type RunUseCase interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	ListByRule(ctx context.Context, ruleID int64, limit int) ([]domain.Run, error)
	Quotes(ctx context.Context, id uuid.UUID, limit int) ([]domain.Quote, error)
	BestPrices(ctx context.Context, ruleID int64, all bool, limit int) ([]domain.BestPrice, error)
}

// RunCache holds finished runs, which no longer change.
type RunCache interface {
	GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	SetRun(ctx context.Context, run *domain.Run) error
}

type BestPrices interface {
	Best(ctx context.Context, ruleID int64, all bool, limit int) ([]domain.BestPrice, error)
}

type RunService struct {
	runs   repository.RunRepository
	quotes repository.QuoteRepository
	best   BestPrices
	cache  RunCache
	logger logger.Logger
}

func NewRunService(runs repository.RunRepository, quotes repository.QuoteRepository, best BestPrices, cache RunCache, log logger.Logger) *RunService {
	return &RunService{runs: runs, quotes: quotes, best: best, cache: cache, logger: log}
}

func (s *RunService) Get(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRun(ctx, id)
		if err != nil {
			s.logger.Warn("run cache read failed", "run_id", id.String(), "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetRun(ctx, run); err != nil {
			s.logger.Warn("run cache write failed", "run_id", id.String(), "error", err)
		}
	}
	return run, nil
}

func (s *RunService) ListByRule(ctx context.Context, ruleID int64, limit int) ([]domain.Run, error) {
	return s.runs.ListByRule(ctx, ruleID, limit)
}

// Quotes lists a run's quotes cheapest first; limit <= 0 means all.
func (s *RunService) Quotes(ctx context.Context, id uuid.UUID, limit int) ([]domain.Quote, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.quotes.ListByRun(ctx, id, limit)
}

func (s *RunService) BestPrices(ctx context.Context, ruleID int64, all bool, limit int) ([]domain.BestPrice, error) {
	return s.best.Best(ctx, ruleID, all, limit)
}

var _ RunUseCase = (*RunService)(nil)
