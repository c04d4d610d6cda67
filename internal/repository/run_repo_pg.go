package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	ListByRule(ctx context.Context, ruleID int64, limit int) ([]domain.Run, error)
}

type PGRunRepository struct {
	db *pgxpool.Pool
}

func NewRunRepository(db *pgxpool.Pool) RunRepository {
	return &PGRunRepository{db: db}
}

const runColumns = `id, rule_id, status, started_at, completed_at, duration_seconds, sources,
	candidates_tested, results_found, errors_count, lowest_total, best_quote_id, error_message,
	error_details, created_at, updated_at`

func scanRun(row pgx.Row) (*domain.Run, error) {
	var r domain.Run
	if err := row.Scan(&r.ID, &r.RuleID, &r.Status, &r.StartedAt, &r.CompletedAt, &r.DurationSeconds,
		&r.Sources, &r.CandidatesTested, &r.ResultsFound, &r.ErrorsCount, &r.LowestTotal, &r.BestQuoteID,
		&r.ErrorMessage, &r.ErrorDetails, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *PGRunRepository) Create(ctx context.Context, run *domain.Run) error {
	_, err := r.db.Exec(ctx, `INSERT INTO search_runs (id, rule_id, status, sources, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.RuleID, run.Status, run.Sources, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (r *PGRunRepository) Update(ctx context.Context, run *domain.Run) error {
	tag, err := r.db.Exec(ctx, `UPDATE search_runs SET status=$2, started_at=$3, completed_at=$4,
		duration_seconds=$5, candidates_tested=$6, results_found=$7, errors_count=$8, lowest_total=$9,
		best_quote_id=$10, error_message=$11, error_details=$12, updated_at=$13
		WHERE id=$1`,
		run.ID, run.Status, run.StartedAt, run.CompletedAt, run.DurationSeconds, run.CandidatesTested,
		run.ResultsFound, run.ErrorsCount, run.LowestTotal, run.BestQuoteID, run.ErrorMessage,
		run.ErrorDetails, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

func (r *PGRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM search_runs WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return run, nil
}

func (r *PGRunRepository) ListByRule(ctx context.Context, ruleID int64, limit int) ([]domain.Run, error) {
	rows, err := r.db.Query(ctx, `SELECT `+runColumns+` FROM search_runs
		WHERE rule_id=$1 ORDER BY created_at DESC LIMIT $2`, ruleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

var _ RunRepository = (*PGRunRepository)(nil)
