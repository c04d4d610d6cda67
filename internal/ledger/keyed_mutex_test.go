package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	var inside, peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := km.Lock(context.Background(), "k")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, 0, km.size())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	a, err := km.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer a()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	b, err := km.Lock(ctx, "b")
	require.NoError(t, err)
	b()
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	km := NewKeyedMutex()
	release, err := km.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = km.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Equal(t, 0, km.size())
}

type recordingLocker struct {
	name string
	log  *[]string
	err  error
}

func (r recordingLocker) Lock(ctx context.Context, key string) (func(), error) {
	if r.err != nil {
		return nil, r.err
	}
	*r.log = append(*r.log, "lock "+r.name)
	return func() { *r.log = append(*r.log, "unlock "+r.name) }, nil
}

func TestChain(t *testing.T) {
	var log []string
	release, err := Chain(recordingLocker{name: "local", log: &log}, recordingLocker{name: "redis", log: &log}).
		Lock(context.Background(), "k")
	require.NoError(t, err)
	release()

	assert.Equal(t, []string{"lock local", "lock redis", "unlock redis", "unlock local"}, log)
}

func TestChain_ReleasesOnFailure(t *testing.T) {
	var log []string
	_, err := Chain(recordingLocker{name: "local", log: &log}, recordingLocker{err: context.Canceled}).
		Lock(context.Background(), "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"lock local", "unlock local"}, log)
}
