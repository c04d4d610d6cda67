package source

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register(Mock, "Mock (Teste)", func() PriceSource {
		return NewSynthetic(SyntheticConfig{}, logger.NewNop())
	})
	r.Register(Skyscanner, "Skyscanner", func() PriceSource {
		return NewSkyscanner(SkyscannerConfig{}, logger.NewNop())
	})
	return r
}

func TestRegistry_Expand(t *testing.T) {
	r := testRegistry()

	names, err := r.Expand([]string{"skyscanner", "all", "mock"})
	require.NoError(t, err)
	assert.Equal(t, []string{"skyscanner", "mock"}, names)

	_, err = r.Expand([]string{"mock", "kayak"})
	assert.ErrorIs(t, err, ErrUnknownSource)
	assert.True(t, domain.IsValidation(err))

	_, err = r.Expand(nil)
	assert.True(t, domain.IsValidation(err))
}

func TestRegistry_New(t *testing.T) {
	r := testRegistry()

	a, err := r.New(Mock)
	require.NoError(t, err)
	b, err := r.New(Mock)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, Mock, a.Name())

	_, err = r.New("kayak")
	assert.ErrorIs(t, err, ErrUnknownSource)

	assert.Equal(t, "Skyscanner", r.Label(Skyscanner))
	assert.Equal(t, "kayak", r.Label("kayak"))
	assert.Equal(t, []string{Mock, Skyscanner}, r.Names())
}

type countingSource struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (c *countingSource) Name() string                             { return "counting" }
func (c *countingSource) Configure(passengers int, cabin domain.CabinClass) {}
func (c *countingSource) Search(ctx context.Context, _ domain.Candidate) (*domain.Quote, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return nil, nil
}

func TestThrottle_BoundsInFlight(t *testing.T) {
	inner := &countingSource{}
	src := Throttle(inner, NewGate(2, 0))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := src.Search(context.Background(), domain.Candidate{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, inner.peak.Load(), int32(2))
	assert.Equal(t, "counting", src.Name())
}

func TestThrottle_SpacesRequests(t *testing.T) {
	src := Throttle(&countingSource{}, NewGate(4, 20*time.Millisecond))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := src.Search(context.Background(), domain.Candidate{})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestThrottle_CancelledWhileWaiting(t *testing.T) {
	gate := NewGate(1, 0)
	release, err := gate.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = Throttle(&countingSource{}, gate).Search(ctx, domain.Candidate{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
