package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/repository"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Create(ctx context.Context, run *domain.Run) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockRunRepository) Update(ctx context.Context, run *domain.Run) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *MockRunRepository) ListByRule(ctx context.Context, ruleID int64, limit int) ([]domain.Run, error) {
	args := m.Called(ctx, ruleID, limit)
	return args.Get(0).([]domain.Run), args.Error(1)
}

type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) Create(ctx context.Context, q *domain.Quote) error {
	return m.Called(ctx, q).Error(0)
}

func (m *MockQuoteRepository) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	args := m.Called(ctx, runID)
	return args.Int(0), args.Error(1)
}

func (m *MockQuoteRepository) CheapestByRun(ctx context.Context, runID uuid.UUID) (*domain.Quote, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

func (m *MockQuoteRepository) ListByRun(ctx context.Context, runID uuid.UUID, limit int) ([]domain.Quote, error) {
	args := m.Called(ctx, runID, limit)
	return args.Get(0).([]domain.Quote), args.Error(1)
}

type MockRunCache struct {
	mock.Mock
}

func (m *MockRunCache) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *MockRunCache) SetRun(ctx context.Context, run *domain.Run) error {
	return m.Called(ctx, run).Error(0)
}

type MockBestPrices struct {
	mock.Mock
}

func (m *MockBestPrices) Best(ctx context.Context, ruleID int64, all bool, limit int) ([]domain.BestPrice, error) {
	args := m.Called(ctx, ruleID, all, limit)
	return args.Get(0).([]domain.BestPrice), args.Error(1)
}

func TestRunService_GetCacheHit(t *testing.T) {
	run := domain.NewRun(1, []string{"mock"}, time.Now())
	cache := &MockRunCache{}
	cache.On("GetRun", mock.Anything, run.ID).Return(run, nil).Once()
	runs := &MockRunRepository{}

	svc := NewRunService(runs, &MockQuoteRepository{}, &MockBestPrices{}, cache, logger.NewNop())
	got, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Same(t, run, got)
	runs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRunService_GetCacheMissFillsCache(t *testing.T) {
	run := domain.NewRun(1, []string{"mock"}, time.Now())
	cache := &MockRunCache{}
	cache.On("GetRun", mock.Anything, run.ID).Return(nil, nil).Once()
	cache.On("SetRun", mock.Anything, run).Return(nil).Once()
	runs := &MockRunRepository{}
	runs.On("GetByID", mock.Anything, run.ID).Return(run, nil).Once()

	svc := NewRunService(runs, &MockQuoteRepository{}, &MockBestPrices{}, cache, logger.NewNop())
	got, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Same(t, run, got)
	cache.AssertExpectations(t)
}

func TestRunService_GetSurvivesCacheErrors(t *testing.T) {
	run := domain.NewRun(1, []string{"mock"}, time.Now())
	cache := &MockRunCache{}
	cache.On("GetRun", mock.Anything, run.ID).Return(nil, errors.New("redis down"))
	cache.On("SetRun", mock.Anything, run).Return(errors.New("redis down"))
	runs := &MockRunRepository{}
	runs.On("GetByID", mock.Anything, run.ID).Return(run, nil)

	svc := NewRunService(runs, &MockQuoteRepository{}, &MockBestPrices{}, cache, logger.NewNop())
	_, err := svc.Get(context.Background(), run.ID)
	assert.NoError(t, err)
}

func TestRunService_QuotesOfUnknownRun(t *testing.T) {
	id := uuid.New()
	runs := &MockRunRepository{}
	runs.On("GetByID", mock.Anything, id).Return(nil, repository.ErrNotFound)
	quotes := &MockQuoteRepository{}

	svc := NewRunService(runs, quotes, &MockBestPrices{}, nil, logger.NewNop())
	_, err := svc.Quotes(context.Background(), id, 10)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	quotes.AssertNotCalled(t, "ListByRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunService_BestPrices(t *testing.T) {
	best := &MockBestPrices{}
	best.On("Best", mock.Anything, int64(4), false, 20).Return([]domain.BestPrice{{RuleID: 4}}, nil)

	svc := NewRunService(&MockRunRepository{}, &MockQuoteRepository{}, best, nil, logger.NewNop())
	got, err := svc.BestPrices(context.Background(), 4, false, 20)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
