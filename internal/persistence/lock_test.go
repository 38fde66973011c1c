package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientlessMutex(t *testing.T) *Mutex {
	t.Helper()
	var r *Redis
	return r.NewMutex("team-hierarchy:reconcile", time.Minute)
}

func TestMutexSerializesWithoutRedis(t *testing.T) {
	ctx := context.Background()
	m := clientlessMutex(t)

	ok, err := m.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// a second caller must be told the lock is held, not waved through
	ok, err = m.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Release(ctx))

	ok, err = m.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, m.Release(ctx))
}

func TestMutexSingleWinnerUnderContention(t *testing.T) {
	ctx := context.Background()
	m := clientlessMutex(t)

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.Acquire(ctx)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, acquired)
	require.NoError(t, m.Release(ctx))
}
