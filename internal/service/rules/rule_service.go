package rules

import (
	"context"
	"time"

	"github.com/Domenick1991/farehunter/internal/combinator"
	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/repository"
)

type RuleUseCase interface {
	Create(ctx context.Context, rule *domain.SearchRule) (*domain.SearchRule, error)
	Get(ctx context.Context, id int64) (*domain.SearchRule, error)
	List(ctx context.Context, activeOnly bool) ([]domain.SearchRule, error)
	Resolve(ctx context.Context, id int64) (*domain.SearchRule, error)
	Combinations(ctx context.Context, id int64, sources int) (*Combinations, error)
}

// Combinations is the preview of what a run of the rule would search.
type Combinations struct {
	Rule       *domain.SearchRule    `json:"rule"`
	Statistics combinator.Statistics `json:"statistics"`
	Candidates []domain.Candidate    `json:"candidates"`
}

type RuleService struct {
	repo repository.RuleRepository
	now  func() time.Time
}

func NewRuleService(repo repository.RuleRepository) *RuleService {
	return &RuleService{repo: repo, now: time.Now}
}

func (s *RuleService) Create(ctx context.Context, rule *domain.SearchRule) (*domain.SearchRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	rule.CreatedAt, rule.UpdatedAt = now, now
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) Get(ctx context.Context, id int64) (*domain.SearchRule, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *RuleService) List(ctx context.Context, activeOnly bool) ([]domain.SearchRule, error) {
	return s.repo.List(ctx, activeOnly)
}

// Resolve loads rule id, or the highest priority active rule when id is zero.
func (s *RuleService) Resolve(ctx context.Context, id int64) (*domain.SearchRule, error) {
	if id == 0 {
		return s.repo.FindActiveByPriority(ctx)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *RuleService) Combinations(ctx context.Context, id int64, sources int) (*Combinations, error) {
	rule, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	candidates := combinator.Generate(rule)
	return &Combinations{
		Rule:       rule,
		Statistics: combinator.Summarize(candidates, sources),
		Candidates: candidates,
	}, nil
}

var _ RuleUseCase = (*RuleService)(nil)
