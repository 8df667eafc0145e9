package xmutex

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMutexLockUnlock(t *testing.T) {
	m := NewMutex()
	require.NoError(t, m.Lock(context.Background()))
	m.Unlock()
}

func TestMutexTryLock(t *testing.T) {
	m := NewMutex()
	require.True(t, m.TryLock())
	assert.False(t, m.TryLock())
	m.Unlock()
	assert.True(t, m.TryLock())
	m.Unlock()
}

func TestMutexLockCanceled(t *testing.T) {
	m := NewMutex()
	require.NoError(t, m.Lock(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Lock(ctx), context.DeadlineExceeded)

	m.Unlock()
	require.NoError(t, m.Lock(context.Background()))
	m.Unlock()
}

func TestMutexMutualExclusion(t *testing.T) {
	m := NewMutex()
	ctx := context.Background()

	var counter int
	var holding, maxHolding atomic.Int32
	var g errgroup.Group
	for range 100 {
		g.Go(func() error {
			if err := m.Lock(ctx); err != nil {
				return err
			}
			if cur := holding.Add(1); cur > maxHolding.Load() {
				maxHolding.Store(cur)
			}
			counter++
			runtime.Gosched()
			holding.Add(-1)
			m.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 100, counter)
	assert.Equal(t, int32(1), maxHolding.Load())
}
