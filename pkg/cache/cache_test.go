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

func TestGetCachesWithinTTL(t *testing.T) {
	c := New(time.Minute)
	calls := 0
	load := func(context.Context) (int64, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background(), "animals", load)
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)
	}
	assert.Equal(t, 1, calls)
}

func TestGetRecomputesAfterExpiry(t *testing.T) {
	c := New(time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }

	calls := 0
	load := func(context.Context) (int64, error) {
		calls++
		return int64(calls), nil
	}

	v, err := c.Get(context.Background(), "animals", load)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	current = current.Add(2 * time.Minute)

	v, err = c.Get(context.Background(), "animals", load)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, 2, calls)
}

func TestGetDoesNotCacheErrors(t *testing.T) {
	c := New(time.Minute)
	calls := 0
	load := func(context.Context) (int64, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("count failed")
		}
		return 7, nil
	}

	_, err := c.Get(context.Background(), "animals", load)
	require.Error(t, err)

	v, err := c.Get(context.Background(), "animals", load)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
	assert.Equal(t, 2, calls)
}

func TestInvalidateForcesReload(t *testing.T) {
	c := New(time.Minute)
	calls := 0
	load := func(context.Context) (int64, error) {
		calls++
		return int64(calls), nil
	}

	_, err := c.Get(context.Background(), "animals", load)
	require.NoError(t, err)

	c.Invalidate("animals")

	v, err := c.Get(context.Background(), "animals", load)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	c := New(0)
	calls := 0
	load := func(context.Context) (int64, error) {
		calls++
		return 1, nil
	}

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "animals", load)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestConcurrentGetsShareOneLoad(t *testing.T) {
	c := New(time.Minute)

	var calls atomic.Int64
	release := make(chan struct{})
	load := func(context.Context) (int64, error) {
		calls.Add(1)
		<-release
		return 99, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "animals", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let every goroutine reach the cache before the load returns.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, int64(99), v)
	}
}

func TestWaiterHonorsContextCancellation(t *testing.T) {
	c := New(time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(context.Context) (int64, error) {
		close(started)
		<-release
		return 1, nil
	}

	go func() {
		_, _ = c.Get(context.Background(), "animals", load)
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "animals", func(context.Context) (int64, error) {
		t.Error("waiter must not load")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
}
