package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterPacing(t *testing.T) {
	const interval = 40 * time.Millisecond
	l := New(interval)
	ctx := context.Background()

	start := time.Now()
	var grants []time.Duration
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(ctx))
		grants = append(grants, time.Since(start))
	}

	for k, at := range grants {
		min := time.Duration(k) * interval
		// allow a little scheduler slack below the ideal time
		assert.GreaterOrEqual(t, at, min-5*time.Millisecond, "grant %d came too early", k)
	}
}

func TestLimiterFIFO(t *testing.T) {
	const (
		interval = 20 * time.Millisecond
		waiters  = 8
	)
	l := New(interval)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)

	// Start waiters one at a time so call order is well defined.
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		started := make(chan struct{})
		go func(id int) {
			defer wg.Done()
			close(started)
			assert.NoError(t, l.Wait(ctx))
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
		}(i)
		<-started
		time.Sleep(2 * time.Millisecond)
	}
	wg.Wait()

	expected := make([]int, waiters)
	for i := range expected {
		expected[i] = i
	}
	assert.Equal(t, expected, order)
}

func TestLimiterNeverDropsWaiters(t *testing.T) {
	l := New(5 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Wait(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestLimiterCancelled(t *testing.T) {
	l := New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, l.Wait(ctx))
	cancel()
	assert.Error(t, l.Wait(ctx))
}
