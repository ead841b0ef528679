package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, found, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	value, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	current := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return current }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	_, found, _ := m.Get(ctx, "k")
	assert.True(t, found)

	current = current.Add(2 * time.Minute)
	_, found, _ = m.Get(ctx, "k")
	assert.False(t, found)
	assert.Zero(t, m.Len(), "expired entry is evicted on read")
}

func TestMemoryNonPositiveTTLIsNoop(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	_, found, _ := m.Get(ctx, "k")
	assert.False(t, found)
}

func TestLoaderCoalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(NewMemory())

	var fetches int64
	release := make(chan struct{})
	fetch := func(context.Context) ([]byte, error) {
		atomic.AddInt64(&fetches, 1)
		<-release
		return []byte("payload"), nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := l.GetOrFetch(ctx, "shared", time.Minute, fetch)
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}

	// Let every goroutine reach the loader before the fetch completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&fetches))
	for _, value := range results {
		assert.Equal(t, []byte("payload"), value)
	}
}

func TestLoaderDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(NewMemory())

	var fetches int64
	boom := errors.New("upstream down")
	_, err := l.GetOrFetch(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
		atomic.AddInt64(&fetches, 1)
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	value, err := l.GetOrFetch(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
		atomic.AddInt64(&fetches, 1)
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), value)
	assert.EqualValues(t, 2, atomic.LoadInt64(&fetches), "failed fetch is retried, not cached")
}

func TestLoaderServesFromCache(t *testing.T) {
	ctx := context.Background()
	l := NewLoader(NewMemory())

	var fetches int64
	fetch := func(context.Context) ([]byte, error) {
		atomic.AddInt64(&fetches, 1)
		return []byte("once"), nil
	}

	for i := 0; i < 3; i++ {
		value, err := l.GetOrFetch(ctx, "k", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, []byte("once"), value)
	}
	assert.EqualValues(t, 1, atomic.LoadInt64(&fetches))
}
