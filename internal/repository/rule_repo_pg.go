package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *domain.SearchRule) error
	GetByID(ctx context.Context, id int64) (*domain.SearchRule, error)
	List(ctx context.Context, activeOnly bool) ([]domain.SearchRule, error)
	FindActiveByPriority(ctx context.Context) (*domain.SearchRule, error)
}

type PGRuleRepository struct {
	db *pgxpool.Pool
}

func NewRuleRepository(db *pgxpool.Pool) RuleRepository {
	return &PGRuleRepository{db: db}
}

const ruleColumns = `id, name, description, departure_from, departure_to, return_from, return_to,
	min_nights, max_nights, origins, destinations, passengers, cabin, max_connections,
	baggage_required, active, priority, created_at, updated_at`

func scanRule(row pgx.Row) (*domain.SearchRule, error) {
	var r domain.SearchRule
	if err := row.Scan(&r.ID, &r.Name, &r.Description,
		&r.Departure.From, &r.Departure.To, &r.Return.From, &r.Return.To,
		&r.Nights.Min, &r.Nights.Max, &r.Origins, &r.Destinations, &r.Passengers, &r.Cabin,
		&r.MaxConnections, &r.BaggageRequired, &r.Active, &r.Priority, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *PGRuleRepository) Create(ctx context.Context, rule *domain.SearchRule) error {
	err := r.db.QueryRow(ctx, `INSERT INTO search_rules (name, description, departure_from, departure_to,
		return_from, return_to, min_nights, max_nights, origins, destinations, passengers, cabin,
		max_connections, baggage_required, active, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`,
		rule.Name, rule.Description, rule.Departure.From, rule.Departure.To, rule.Return.From, rule.Return.To,
		rule.Nights.Min, rule.Nights.Max, rule.Origins, rule.Destinations, rule.Passengers, rule.Cabin,
		rule.MaxConnections, rule.BaggageRequired, rule.Active, rule.Priority).
		Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

func (r *PGRuleRepository) GetByID(ctx context.Context, id int64) (*domain.SearchRule, error) {
	rule, err := scanRule(r.db.QueryRow(ctx, `SELECT `+ruleColumns+` FROM search_rules WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return rule, nil
}

func (r *PGRuleRepository) List(ctx context.Context, activeOnly bool) ([]domain.SearchRule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM search_rules
		WHERE ($1 = false OR active) ORDER BY priority DESC, id`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.SearchRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// FindActiveByPriority returns the active rule with the highest priority, oldest first on ties.
func (r *PGRuleRepository) FindActiveByPriority(ctx context.Context) (*domain.SearchRule, error) {
	rule, err := scanRule(r.db.QueryRow(ctx, `SELECT `+ruleColumns+` FROM search_rules
		WHERE active ORDER BY priority DESC, id LIMIT 1`))
	if err != nil {
		return nil, notFound(err)
	}
	return rule, nil
}

var _ RuleRepository = (*PGRuleRepository)(nil)
