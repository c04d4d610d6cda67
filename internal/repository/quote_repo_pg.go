package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuoteRepository interface {
	Create(ctx context.Context, quote *domain.Quote) error
	CountByRun(ctx context.Context, runID uuid.UUID) (int, error)
	// CheapestByRun returns nil, nil when the run has no quotes.
	CheapestByRun(ctx context.Context, runID uuid.UUID) (*domain.Quote, error)
	ListByRun(ctx context.Context, runID uuid.UUID, limit int) ([]domain.Quote, error)
}

type PGQuoteRepository struct {
	db *pgxpool.Pool
}

func NewQuoteRepository(db *pgxpool.Pool) QuoteRepository {
	return &PGQuoteRepository{db: db}
}

const quoteColumns = `id, run_id, source, rule_id, origin, return_origin, destination, departure_date,
	return_date, nights, price_per_person, passengers, total, currency, airline, connections,
	baggage_included, booking_url, metadata, created_at, expires_at`

func scanQuote(row pgx.Row) (*domain.Quote, error) {
	var q domain.Quote
	if err := row.Scan(&q.ID, &q.RunID, &q.Source, &q.RuleID, &q.Origin, &q.ReturnOrigin, &q.Destination,
		&q.DepartureDate, &q.ReturnDate, &q.Nights, &q.PricePerPerson, &q.Passengers, &q.Total, &q.Currency,
		&q.Airline, &q.Connections, &q.BaggageIncluded, &q.BookingURL, &q.Metadata, &q.CreatedAt,
		&q.ExpiresAt); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *PGQuoteRepository) Create(ctx context.Context, q *domain.Quote) error {
	err := r.db.QueryRow(ctx, `INSERT INTO quotes (run_id, source, rule_id, origin, return_origin,
		destination, departure_date, return_date, nights, price_per_person, passengers, total, currency,
		airline, connections, baggage_included, booking_url, metadata, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id`,
		q.RunID, q.Source, q.RuleID, q.Origin, q.ReturnOrigin, q.Destination, q.DepartureDate, q.ReturnDate,
		q.Nights, q.PricePerPerson, q.Passengers, q.Total, q.Currency, q.Airline, q.Connections,
		q.BaggageIncluded, q.BookingURL, q.Metadata, q.CreatedAt, q.ExpiresAt).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}
	return nil
}

func (r *PGQuoteRepository) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM quotes WHERE run_id=$1`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return n, nil
}

func (r *PGQuoteRepository) CheapestByRun(ctx context.Context, runID uuid.UUID) (*domain.Quote, error) {
	q, err := scanQuote(r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes
		WHERE run_id=$1 ORDER BY total, id LIMIT 1`, runID))
	if err != nil {
		if notFound(err) == ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find cheapest quote: %w", err)
	}
	return q, nil
}

// ListByRun returns the run's quotes cheapest first. limit <= 0 returns all.
func (r *PGQuoteRepository) ListByRun(ctx context.Context, runID uuid.UUID, limit int) ([]domain.Quote, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.db.Query(ctx, `SELECT `+quoteColumns+` FROM quotes
		WHERE run_id=$1 ORDER BY total, id LIMIT $2`, runID, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := make([]domain.Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

var _ QuoteRepository = (*PGQuoteRepository)(nil)
