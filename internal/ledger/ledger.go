package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/repository"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/Domenick1991/farehunter/pkg/metrics"
)

// Locker serializes read-modify-write cycles on one ledger key.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Ledger keeps the cheapest price ever observed per rule, route and date pair.
// It is the only writer of best price entries.
type Ledger struct {
	repo    repository.BestPriceRepository
	locker  Locker
	logger  logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Ledger)

func WithLocker(l Locker) Option {
	return func(lg *Ledger) {
		lg.locker = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(lg *Ledger) {
		lg.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(lg *Ledger) {
		lg.now = now
	}
}

func New(repo repository.BestPriceRepository, log logger.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		repo:   repo,
		locker: NewKeyedMutex(),
		logger: log.With("component", "ledger"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record folds q into the entry for its key, creating the entry on first sight.
func (l *Ledger) Record(ctx context.Context, ruleID int64, q *domain.Quote) error {
	key := domain.KeyOf(ruleID, q)
	release, err := l.locker.Lock(ctx, key.String())
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer release()

	entry, err := l.repo.FindByKey(ctx, key)
	if err != nil {
		return err
	}

	now := l.now()
	if entry == nil {
		entry = domain.NewBestPrice(ruleID, q, now)
		err = l.repo.Create(ctx, entry)
		if err == nil {
			l.improved(entry, "created")
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		// Another process created the key between our read and insert.
		if entry, err = l.repo.FindByKey(ctx, key); err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("best price %s vanished after conflict", key)
		}
	}

	improved := entry.Observe(q, now)
	if err := l.repo.Update(ctx, entry); err != nil {
		return err
	}
	if improved {
		l.improved(entry, "updated")
	}
	return nil
}

func (l *Ledger) improved(entry *domain.BestPrice, action string) {
	l.logger.Debug("best price "+action, "key", entry.Key().String(), "total", entry.BestTotal.String(), "source", entry.Source)
	if l.metrics != nil {
		l.metrics.LedgerImprovement.Inc()
	}
}

// Invalidate soft-expires entry; its history stays. The stored row is re-read
// under the key lock and entry is refreshed from it.
func (l *Ledger) Invalidate(ctx context.Context, entry *domain.BestPrice) error {
	_, err := l.invalidateIf(ctx, entry.Key(), func(*domain.BestPrice) bool { return true }, entry)
	return err
}

func (l *Ledger) IsValid(entry *domain.BestPrice) bool {
	return entry.IsValid(l.now())
}

// ExpireStale invalidates valid entries not observed within maxAge and returns
// how many it touched. Entries seen again since the scan are left alone.
func (l *Ledger) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := l.now().Add(-maxAge)
	stale, err := l.repo.ListSeenBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	stillStale := func(b *domain.BestPrice) bool {
		return b.Valid && b.LastSeenAt.Before(cutoff)
	}
	expired := 0
	for i := range stale {
		ok, err := l.invalidateIf(ctx, stale[i].Key(), stillStale, nil)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	if expired > 0 {
		l.logger.Info("expired stale best prices", "count", expired, "max_age", maxAge.String())
	}
	return expired, nil
}

func (l *Ledger) invalidateIf(ctx context.Context, key domain.BestPriceKey, pred func(*domain.BestPrice) bool, out *domain.BestPrice) (bool, error) {
	release, err := l.locker.Lock(ctx, key.String())
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", key, err)
	}
	defer release()

	current, err := l.repo.FindByKey(ctx, key)
	if err != nil {
		return false, err
	}
	if current == nil {
		return false, fmt.Errorf("best price %s: %w", key, repository.ErrNotFound)
	}
	if !pred(current) {
		return false, nil
	}

	current.Invalidate(l.now())
	if err := l.repo.Update(ctx, current); err != nil {
		return false, err
	}
	if out != nil {
		*out = *current
	}
	return true, nil
}

// Best lists a rule's entries cheapest first, valid ones only unless all is set.
func (l *Ledger) Best(ctx context.Context, ruleID int64, all bool, limit int) ([]domain.BestPrice, error) {
	return l.repo.ListByRule(ctx, ruleID, !all, limit)
}
