package xqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNewBoundedNegativeCapacity(t *testing.T) {
	_, err := NewBounded[int](-1)
	assert.ErrorIs(t, err, ErrNegativeCapacity)
}

func TestBoundedFastPaths(t *testing.T) {
	q, err := NewBounded[string](2)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Cap())

	assert.True(t, q.TryEnqueue("a"))
	assert.True(t, q.TryEnqueue("b"))
	assert.False(t, q.TryEnqueue("c"), "full queue must reject")

	v, ok := q.TryPeek()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, q.Len())
}

// TestBoundedBackpressure 验证背压：容量 3，入队 A..F，前三个立即完成，
// 后三个挂起；每次出队按 FIFO 释放一个挂起的入队。
func TestBoundedBackpressure(t *testing.T) {
	q, err := NewBounded[string](3)
	require.NoError(t, err)
	ctx := context.Background()

	done := make(map[string]chan error)
	for _, v := range []string{"A", "B", "C"} {
		require.NoError(t, q.Enqueue(ctx, v))
	}
	for i, v := range []string{"D", "E", "F"} {
		done[v] = make(chan error, 1)
		ch := done[v]
		val := v
		go func() {
			ch <- q.Enqueue(ctx, val)
		}()
		require.Eventually(t, func() bool { return q.PutterWaiters() == i+1 },
			time.Second, time.Millisecond)
	}

	// 每次出队释放一个挂起的入队，且值按 FIFO 进入存储
	for i, want := range []string{"A", "B", "C"} {
		v, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, v)

		released := []string{"D", "E", "F"}[i]
		select {
		case err := <-done[released]:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatalf("enqueue %q not released", released)
		}
	}

	for _, want := range []string{"D", "E", "F"} {
		v, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.PutterWaiters())
}

// TestZeroCapacityRendezvous 验证会合：容量 0，挂起的出队被 TryEnqueue
// 直接喂值，存储始终为空。
func TestZeroCapacityRendezvous(t *testing.T) {
	q, err := NewBounded[string](0)
	require.NoError(t, err)

	got := make(chan string, 1)
	go func() {
		v, err := q.Dequeue(context.Background())
		if err == nil {
			got <- v
		}
	}()
	require.Eventually(t, func() bool { return q.TakerWaiters() == 1 },
		time.Second, time.Millisecond)

	assert.True(t, q.TryEnqueue("A"))
	select {
	case v := <-got:
		assert.Equal(t, "A", v)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not resolve")
	}
	assert.Equal(t, 0, q.Len())
}

func TestZeroCapacityDequeueFromWaitingPutter(t *testing.T) {
	q, err := NewBounded[string](0)
	require.NoError(t, err)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- q.Enqueue(ctx, "A")
	}()
	require.Eventually(t, func() bool { return q.PutterWaiters() == 1 },
		time.Second, time.Millisecond)

	// 非阻塞出队不参与会合传递
	_, ok := q.TryDequeue()
	assert.False(t, ok)

	v, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", v)
	assert.NoError(t, <-done)
	assert.Equal(t, 0, q.Len())
}

func TestZeroCapacityTryEnqueueWithoutTaker(t *testing.T) {
	q, err := NewBounded[int](0)
	require.NoError(t, err)
	assert.False(t, q.TryEnqueue(1))
}

func TestBoundedEnqueuePreCanceledContext(t *testing.T) {
	q, err := NewBounded[int](1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, 1), context.Canceled)
	assert.Equal(t, 0, q.Len(), "pre-canceled enqueue must not mutate state")
}

func TestBoundedEnqueueCancelWhileWaiting(t *testing.T) {
	q, err := NewBounded[string](1)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), "A"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- q.Enqueue(ctx, "B")
	}()
	require.Eventually(t, func() bool { return q.PutterWaiters() == 1 },
		time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 0, q.PutterWaiters())

	// 被取消的值被丢弃，存储只剩 A
	v, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", v)
	assert.Equal(t, 0, q.Len())
}

func TestCompleteAllEnqueue(t *testing.T) {
	q, err := NewBounded[string](1)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "A"))

	done := make(chan error, 2)
	for i, v := range []string{"B", "C"} {
		val := v
		go func() {
			done <- q.Enqueue(ctx, val)
		}()
		require.Eventually(t, func() bool { return q.PutterWaiters() == i+1 },
			time.Second, time.Millisecond)
	}

	n := q.CompleteAllEnqueue()
	assert.Equal(t, 2, n)
	for range 2 {
		assert.NoError(t, <-done)
	}

	// 挂起值按 FIFO 进入存储（存储短暂超过容量）
	assert.Equal(t, 3, q.Len())
	for _, want := range []string{"A", "B", "C"} {
		v, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestCancelAllEnqueue(t *testing.T) {
	q, err := NewBounded[int](0)
	require.NoError(t, err)

	errs := make(chan error, 2)
	for i := range 2 {
		v := i
		go func() {
			errs <- q.Enqueue(context.Background(), v)
		}()
		require.Eventually(t, func() bool { return q.PutterWaiters() == i+1 },
			time.Second, time.Millisecond)
	}

	n := q.CancelAllEnqueue()
	assert.Equal(t, 2, n)
	for range 2 {
		assert.ErrorIs(t, <-errs, ErrEnqueueCanceled)
	}
	assert.Equal(t, 0, q.Len())
}

// TestBoundedConsumerObservesProducerOrder 验证单消费者观察到的序列与
// 单生产者的入队序列一致，无论生产者是否经历挂起。
func TestBoundedConsumerObservesProducerOrder(t *testing.T) {
	const total = 1000
	q, err := NewBounded[int](4)
	require.NoError(t, err)
	ctx := context.Background()

	var g errgroup.Group
	g.Go(func() error {
		for i := range total {
			if err := q.Enqueue(ctx, i); err != nil {
				return err
			}
		}
		return nil
	})

	for want := range total {
		v, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, want, v)
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 0, q.Len())
}

// TestBoundedWaiterQueuesNeverBothNonEmpty 并发压测后抽查不变式。
func TestBoundedWaiterQueuesNeverBothNonEmpty(t *testing.T) {
	q, err := NewBounded[int](2)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			for i := 0; i < 500; i++ {
				if err := q.Enqueue(ctx, i); err != nil {
					return nil // 压测结束窗口的取消是预期的
				}
			}
			return nil
		})
		g.Go(func() error {
			for i := 0; i < 500; i++ {
				if _, err := q.Dequeue(ctx); err != nil {
					return nil
				}
			}
			return nil
		})
	}

	probe := func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.takers.Len() > 0 && q.putters.Len() > 0
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		require.False(t, probe(), "taker and putter waiters simultaneously non-empty")
		time.Sleep(100 * time.Microsecond)
	}
	require.NoError(t, g.Wait())
	q.CancelAllDequeue()
	q.CancelAllEnqueue()
}
