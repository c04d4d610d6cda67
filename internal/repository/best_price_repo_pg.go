package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BestPriceRepository interface {
	// FindByKey returns nil, nil when no entry exists for key.
	FindByKey(ctx context.Context, key domain.BestPriceKey) (*domain.BestPrice, error)
	// Create returns ErrConflict when another writer inserted the key first.
	Create(ctx context.Context, entry *domain.BestPrice) error
	Update(ctx context.Context, entry *domain.BestPrice) error
	ListByRule(ctx context.Context, ruleID int64, validOnly bool, limit int) ([]domain.BestPrice, error)
	ListSeenBefore(ctx context.Context, cutoff time.Time) ([]domain.BestPrice, error)
}

type PGBestPriceRepository struct {
	db *pgxpool.Pool
}

func NewBestPriceRepository(db *pgxpool.Pool) BestPriceRepository {
	return &PGBestPriceRepository{db: db}
}

const bestPriceColumns = `id, rule_id, origin, destination, departure_date, return_date, nights,
	best_price_per_person, best_total, currency, source, airline, quote_id, times_found,
	first_seen_at, last_seen_at, valid, valid_until`

func scanBestPrice(row pgx.Row) (*domain.BestPrice, error) {
	var b domain.BestPrice
	if err := row.Scan(&b.ID, &b.RuleID, &b.Origin, &b.Destination, &b.DepartureDate, &b.ReturnDate,
		&b.Nights, &b.BestPricePerPerson, &b.BestTotal, &b.Currency, &b.Source, &b.Airline, &b.QuoteID,
		&b.TimesFound, &b.FirstSeenAt, &b.LastSeenAt, &b.Valid, &b.ValidUntil); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBestPriceRepository) FindByKey(ctx context.Context, key domain.BestPriceKey) (*domain.BestPrice, error) {
	b, err := scanBestPrice(r.db.QueryRow(ctx, `SELECT `+bestPriceColumns+` FROM best_prices
		WHERE rule_id=$1 AND origin=$2 AND destination=$3 AND departure_date=$4 AND return_date=$5`,
		key.RuleID, key.Origin, key.Destination, key.DepartureDate, key.ReturnDate))
	if err != nil {
		if notFound(err) == ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find best price %s: %w", key, err)
	}
	return b, nil
}

func (r *PGBestPriceRepository) Create(ctx context.Context, b *domain.BestPrice) error {
	err := r.db.QueryRow(ctx, `INSERT INTO best_prices (rule_id, origin, destination, departure_date,
		return_date, nights, best_price_per_person, best_total, currency, source, airline, quote_id,
		times_found, first_seen_at, last_seen_at, valid, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (rule_id, origin, destination, departure_date, return_date) DO NOTHING
		RETURNING id`,
		b.RuleID, b.Origin, b.Destination, b.DepartureDate, b.ReturnDate, b.Nights, b.BestPricePerPerson,
		b.BestTotal, b.Currency, b.Source, b.Airline, b.QuoteID, b.TimesFound, b.FirstSeenAt, b.LastSeenAt,
		b.Valid, b.ValidUntil).Scan(&b.ID)
	if err != nil {
		if notFound(err) == ErrNotFound {
			return fmt.Errorf("best price %s: %w", b.Key(), ErrConflict)
		}
		return fmt.Errorf("failed to insert best price: %w", err)
	}
	return nil
}

func (r *PGBestPriceRepository) Update(ctx context.Context, b *domain.BestPrice) error {
	tag, err := r.db.Exec(ctx, `UPDATE best_prices SET nights=$2, best_price_per_person=$3, best_total=$4,
		currency=$5, source=$6, airline=$7, quote_id=$8, times_found=$9, last_seen_at=$10, valid=$11,
		valid_until=$12 WHERE id=$1`,
		b.ID, b.Nights, b.BestPricePerPerson, b.BestTotal, b.Currency, b.Source, b.Airline, b.QuoteID,
		b.TimesFound, b.LastSeenAt, b.Valid, b.ValidUntil)
	if err != nil {
		return fmt.Errorf("failed to update best price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update best price %d: %w", b.ID, ErrNotFound)
	}
	return nil
}

// ListByRule returns entries cheapest first. limit <= 0 returns all.
func (r *PGBestPriceRepository) ListByRule(ctx context.Context, ruleID int64, validOnly bool, limit int) ([]domain.BestPrice, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.db.Query(ctx, `SELECT `+bestPriceColumns+` FROM best_prices
		WHERE rule_id=$1 AND ($2 = false OR (valid AND (valid_until IS NULL OR valid_until > now())))
		ORDER BY best_total, id LIMIT $3`, ruleID, validOnly, lim)
	if err != nil {
		return nil, err
	}
	return collectBestPrices(rows)
}

// ListSeenBefore returns still-valid entries not observed since cutoff.
func (r *PGBestPriceRepository) ListSeenBefore(ctx context.Context, cutoff time.Time) ([]domain.BestPrice, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bestPriceColumns+` FROM best_prices
		WHERE valid AND last_seen_at < $1 ORDER BY id`, cutoff)
	if err != nil {
		return nil, err
	}
	return collectBestPrices(rows)
}

func collectBestPrices(rows pgx.Rows) ([]domain.BestPrice, error) {
	defer rows.Close()
	entries := make([]domain.BestPrice, 0)
	for rows.Next() {
		b, err := scanBestPrice(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *b)
	}
	return entries, rows.Err()
}

var _ BestPriceRepository = (*PGBestPriceRepository)(nil)
