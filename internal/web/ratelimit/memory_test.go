package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ExhaustsThenDenies(t *testing.T) {
	m := NewMemory(3, time.Minute)
	defer m.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec, err := m.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, dec.Allowed, "attempt %d", i)
		assert.Equal(t, 2-i, dec.Remaining)
	}

	dec, err := m.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.True(t, dec.RetryAt.After(time.Now()))
}

func TestMemory_RefillsOverTime(t *testing.T) {
	m := NewMemory(2, 100*time.Millisecond)
	defer m.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		dec, err := m.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}
	dec, err := m.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	time.Sleep(120 * time.Millisecond)

	dec, err = m.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	m := NewMemory(1, time.Minute)
	defer m.Close()
	ctx := context.Background()

	dec, err := m.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	dec, err = m.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	dec, err = m.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory(50, time.Minute)
	defer m.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	var allowed atomic.Int64
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				dec, err := m.Allow(ctx, "shared")
				assert.NoError(t, err)
				if dec.Allowed {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	// 100 attempts against a bucket of 50: at most 50 pass.
	assert.LessOrEqual(t, allowed.Load(), int64(50))
}
