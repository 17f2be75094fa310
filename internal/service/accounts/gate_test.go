package accounts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrencyGate_LimitNeverExceeded(t *testing.T) {
	const limit = 3
	gate := NewConcurrencyGate(limit)

	var current, peak int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, ok := gate.Acquire(context.Background())
			require.True(t, ok)
			defer release()

			n := atomic.AddInt64(&current, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&current, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(limit))
}

func TestConcurrencyGate_ZeroLimitIsUnlimited(t *testing.T) {
	gate := NewConcurrencyGate(0)

	// Без лимита Acquire успешен немедленно для любого числа вызовов
	for i := 0; i < 100; i++ {
		release, ok := gate.Acquire(context.Background())
		require.True(t, ok)
		release()
	}
}

func TestConcurrencyGate_AcquireHonorsContext(t *testing.T) {
	gate := NewConcurrencyGate(1)

	release, ok := gate.Acquire(context.Background())
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok = gate.Acquire(ctx)
	assert.False(t, ok)

	// После освобождения место снова доступно
	release()
	release2, ok := gate.Acquire(context.Background())
	require.True(t, ok)
	release2()
}
