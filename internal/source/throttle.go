package source

import (
	"context"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Gate bounds in-flight requests to one external source and spaces their
// starts. A Gate is shared by every instance of that source in the process.
type Gate struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewGate allows maxInFlight concurrent requests, each starting at least
// interval after the previous one. A zero interval disables spacing.
func NewGate(maxInFlight int64, interval time.Duration) *Gate {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{
		sem:     semaphore.NewWeighted(maxInFlight),
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.sem.Release(1)
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}

type throttled struct {
	inner PriceSource
	gate  *Gate
}

// Throttle routes every search of src through gate.
func Throttle(src PriceSource, gate *Gate) PriceSource {
	if gate == nil {
		return src
	}
	return &throttled{inner: src, gate: gate}
}

func (t *throttled) Name() string {
	return t.inner.Name()
}

func (t *throttled) Configure(passengers int, cabin domain.CabinClass) {
	t.inner.Configure(passengers, cabin)
}

func (t *throttled) Search(ctx context.Context, c domain.Candidate) (*domain.Quote, error) {
	release, err := t.gate.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return t.inner.Search(ctx, c)
}

func (t *throttled) Unwrap() PriceSource {
	return t.inner
}

var (
	_ PriceSource = (*throttled)(nil)
	_ Wrapper     = (*throttled)(nil)
)
