package xmutex

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestRWMutexReadersShare(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()

	require.NoError(t, rw.RLock(ctx))
	require.NoError(t, rw.RLock(ctx))
	assert.False(t, rw.TryLock(), "writer must not enter with active readers")
	rw.RUnlock()
	rw.RUnlock()

	assert.True(t, rw.TryLock())
	rw.Unlock()
}

func TestRWMutexWriterExcludes(t *testing.T) {
	rw := NewRWMutex()
	require.NoError(t, rw.Lock(context.Background()))
	assert.False(t, rw.TryRLock())
	assert.False(t, rw.TryLock())
	rw.Unlock()
	assert.True(t, rw.TryRLock())
	rw.RUnlock()
}

func TestRWMutexWriterWaitsForReaders(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()
	require.NoError(t, rw.RLock(ctx))

	locked := make(chan struct{})
	go func() {
		if err := rw.Lock(ctx); err == nil {
			close(locked)
		}
	}()
	waitingWriters := func() int {
		rw.mu.Lock()
		defer rw.mu.Unlock()
		return rw.writerQ.Len()
	}
	require.Eventually(t, func() bool { return waitingWriters() == 1 },
		time.Second, time.Millisecond)

	select {
	case <-locked:
		t.Fatal("writer entered with active reader")
	default:
	}

	// 等待的写者阻止新读者进入
	assert.False(t, rw.TryRLock())

	rw.RUnlock()
	select {
	case <-locked:
	case <-time.After(time.Second):
		t.Fatal("writer not admitted after readers drained")
	}
	rw.Unlock()
}

func TestRWMutexWriterCancelAdmitsReaders(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()
	require.NoError(t, rw.RLock(ctx))

	wctx, cancel := context.WithCancel(ctx)
	werr := make(chan error, 1)
	go func() {
		werr <- rw.Lock(wctx)
	}()
	waitingWriters := func() int {
		rw.mu.Lock()
		defer rw.mu.Unlock()
		return rw.writerQ.Len()
	}
	require.Eventually(t, func() bool { return waitingWriters() == 1 },
		time.Second, time.Millisecond)
	assert.False(t, rw.TryRLock(), "waiting writer should block new readers")

	cancel()
	assert.ErrorIs(t, <-werr, context.Canceled)

	// 写者取消后读者准入恢复
	require.Eventually(t, func() bool { return rw.TryRLock() },
		time.Second, time.Millisecond)
	rw.RUnlock()
	rw.RUnlock()
}

func TestUpgradeableBasic(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()

	u, err := rw.UpgradeableRLock(ctx)
	require.NoError(t, err)
	assert.False(t, u.Upgraded())

	// 可升级读者与普通读者共存
	assert.True(t, rw.TryRLock())
	// 但排斥写者
	assert.False(t, rw.TryLock())

	rw.RUnlock()

	require.NoError(t, u.Upgrade(ctx))
	assert.True(t, u.Upgraded())
	assert.False(t, rw.TryRLock(), "upgraded reader holds exclusive access")

	u.Downgrade()
	assert.False(t, u.Upgraded())
	assert.True(t, rw.TryRLock())
	rw.RUnlock()

	u.Release()
	assert.True(t, rw.TryLock())
	rw.Unlock()
}

func TestUpgradeWaitsForReaders(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()

	require.NoError(t, rw.RLock(ctx))
	u, err := rw.UpgradeableRLock(ctx)
	require.NoError(t, err)

	upgraded := make(chan error, 1)
	go func() {
		upgraded <- u.Upgrade(ctx)
	}()
	upgradePending := func() bool {
		rw.mu.Lock()
		defer rw.mu.Unlock()
		return rw.upgPending
	}
	require.Eventually(t, upgradePending, time.Second, time.Millisecond)

	select {
	case <-upgraded:
		t.Fatal("upgrade completed with active reader")
	default:
	}
	// 升级挂起期间不准入新读者
	assert.False(t, rw.TryRLock())

	rw.RUnlock()
	assert.NoError(t, <-upgraded)
	assert.True(t, u.Upgraded())
	u.Release()
}

func TestUpgradeCancelKeepsReadState(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()

	require.NoError(t, rw.RLock(ctx))
	u, err := rw.UpgradeableRLock(ctx)
	require.NoError(t, err)

	uctx, cancel := context.WithCancel(ctx)
	upgraded := make(chan error, 1)
	go func() {
		upgraded <- u.Upgrade(uctx)
	}()
	upgradePending := func() bool {
		rw.mu.Lock()
		defer rw.mu.Unlock()
		return rw.upgPending
	}
	require.Eventually(t, upgradePending, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-upgraded, context.Canceled)
	assert.False(t, u.Upgraded())

	// 取消后读者准入恢复，可升级读者仍持有读资格
	require.Eventually(t, func() bool { return rw.TryRLock() },
		time.Second, time.Millisecond)
	rw.RUnlock()
	rw.RUnlock()
	u.Release()
}

func TestUpgradeErrors(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()

	u, err := rw.UpgradeableRLock(ctx)
	require.NoError(t, err)

	require.NoError(t, u.Upgrade(ctx))
	assert.ErrorIs(t, u.Upgrade(ctx), ErrAlreadyUpgraded)

	u.Release()
	assert.ErrorIs(t, u.Upgrade(ctx), ErrReaderReleased)
}

func TestUpgradeableReleaseIdempotent(t *testing.T) {
	rw := NewRWMutex()
	u, err := rw.UpgradeableRLock(context.Background())
	require.NoError(t, err)

	u.Release()
	u.Release() // 第二次释放是空操作

	assert.True(t, rw.TryLock())
	rw.Unlock()
}

func TestUpgradeableReleaseWhileUpgraded(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()

	u, err := rw.UpgradeableRLock(ctx)
	require.NoError(t, err)
	require.NoError(t, u.Upgrade(ctx))

	// 未降级直接释放：写状态与读资格一并释放
	u.Release()
	assert.True(t, rw.TryLock())
	rw.Unlock()
}

func TestSecondUpgradeableWaits(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()

	u1, err := rw.UpgradeableRLock(ctx)
	require.NoError(t, err)

	got := make(chan *UpgradeableReader, 1)
	go func() {
		u2, err := rw.UpgradeableRLock(ctx)
		if err == nil {
			got <- u2
		}
	}()

	select {
	case <-got:
		t.Fatal("second upgradeable reader admitted concurrently")
	case <-time.After(50 * time.Millisecond):
	}

	u1.Release()
	select {
	case u2 := <-got:
		u2.Release()
	case <-time.After(time.Second):
		t.Fatal("second upgradeable reader not admitted after release")
	}
}

func TestRWMutexStress(t *testing.T) {
	rw := NewRWMutex()
	ctx := context.Background()

	var data atomic.Int64
	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			for range 200 {
				if err := rw.RLock(ctx); err != nil {
					return err
				}
				_ = data.Load()
				rw.RUnlock()
			}
			return nil
		})
		g.Go(func() error {
			for range 50 {
				if err := rw.Lock(ctx); err != nil {
					return err
				}
				data.Add(1)
				rw.Unlock()
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(8*50), data.Load())
}
