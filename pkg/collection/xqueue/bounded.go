package xqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	equeue "github.com/eapache/queue"

	"github.com/omeyang/synckit/internal/waitq"
)

// BoundedQueue 是并发安全的有界 FIFO 容器：空队列出队挂起、满队列入队
// 挂起，容量 0 时为纯会合模式（所有值都经由等待者手递手传递）。
//
// 不变式（任意操作返回后成立）：
//
//   - |storage| ≤ C；
//   - 存在出队等待者 ⇒ 存储为空；
//   - 存在入队等待者 ⇒ 存储已满；
//   - 两类等待者永不同时存在。
//
// CompleteAllEnqueue 是唯一例外：它将全部挂起值一次性放入存储，存储可
// 短暂超过容量，后续入队将等待直到回落。
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	items    *equeue.Queue
	capacity int
	takers   *waitq.WaitQueue[T]
	putters  *waitq.WaitQueue[T]
	opts     *options
}

// NewBounded 创建容量为 capacity 的有界队列。
// capacity 为负时返回 [ErrNegativeCapacity]；capacity 为 0 合法，
// 此时队列退化为纯会合模式。
func NewBounded[T any](capacity int, opts ...Option) (*BoundedQueue[T], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNegativeCapacity, capacity)
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	q := &BoundedQueue[T]{
		items:    equeue.New(),
		capacity: capacity,
		opts:     o,
	}
	q.takers = waitq.New[T](&q.mu)
	q.putters = waitq.New[T](&q.mu)
	return q, nil
}

// Len 返回当前存储的元素数。
func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Cap 返回构造时指定的容量。
func (q *BoundedQueue[T]) Cap() int {
	return q.capacity
}

// TakerWaiters 返回当前挂起的 Dequeue 数（瞬时快照）。
func (q *BoundedQueue[T]) TakerWaiters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.takers.Len()
}

// PutterWaiters 返回当前挂起的 Enqueue 数（瞬时快照）。
func (q *BoundedQueue[T]) PutterWaiters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.putters.Len()
}

// TryPeek 返回队首元素但不移除。存储为空时返回 (zero, false)。
func (q *BoundedQueue[T]) TryPeek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	return q.items.Peek().(T), true
}

// TryDequeue 非阻塞出队，只走快速路径。存储为空时返回 (zero, false)，
// 即便容量 0 下有入队等待者（会合传递只发生在阻塞的 Dequeue 上）。
func (q *BoundedQueue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	if q.items.Length() == 0 {
		q.mu.Unlock()
		var zero T
		q.opts.metrics.recordDequeue(q.opts.name, resultRejected)
		return zero, false
	}
	v := q.dequeueHeadLocked()
	q.mu.Unlock()
	q.opts.metrics.recordDequeue(q.opts.name, resultStored)
	return v, true
}

// dequeueHeadLocked 移除存储队首。若腾出的空位上有入队等待者，其值在
// 同一临界区内进入存储尾部，保证等待者的值不被后来的直接入队插队。
func (q *BoundedQueue[T]) dequeueHeadLocked() T {
	v := q.items.Remove().(T)
	if q.items.Length() < q.capacity {
		if pv, ok := q.putters.TakeValue(); ok {
			q.items.Add(pv)
		}
	}
	return v
}

// Dequeue 移除并返回队首元素；存储为空时挂起等待，直到有值可取或 ctx
// 取消。ctx 已取消时不做任何状态变更，直接返回 ctx.Err()。
//
// 本次出队腾出空位时，队首入队等待者的值在出队的线性化点进入存储。
// 容量 0 时直接取走队首入队等待者的值并结算该等待者。
func (q *BoundedQueue[T]) Dequeue(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	q.mu.Lock()
	if q.items.Length() > 0 {
		v := q.dequeueHeadLocked()
		q.mu.Unlock()
		q.opts.metrics.recordDequeue(q.opts.name, resultStored)
		return v, nil
	}
	// 容量 0 的会合路径：直接取走队首入队等待者的值。
	// 容量 > 0 时存储为空 ⇒ 无入队等待者，TakeValue 必然落空。
	if pv, ok := q.putters.TakeValue(); ok {
		q.mu.Unlock()
		q.opts.metrics.recordDequeue(q.opts.name, resultHanded)
		return pv, nil
	}
	w := q.takers.Add()
	q.mu.Unlock()

	start := time.Now()
	v, err := w.Wait(ctx)
	q.opts.metrics.recordWait(q.opts.name, "dequeue", time.Since(start))
	if err != nil {
		q.opts.metrics.recordDequeue(q.opts.name, resultCanceled)
		return v, err
	}
	q.opts.metrics.recordDequeue(q.opts.name, resultWaited)
	return v, nil
}

// TryEnqueue 非阻塞入队。存在出队等待者时值直接交给最早的等待者；
// 否则存储未满时入队。满时返回 false。
func (q *BoundedQueue[T]) TryEnqueue(v T) bool {
	q.mu.Lock()
	if !q.takers.Empty() {
		q.takers.Resolve(v)
		q.mu.Unlock()
		q.opts.metrics.recordEnqueue(q.opts.name, resultHanded)
		return true
	}
	if q.items.Length() < q.capacity {
		q.items.Add(v)
		q.mu.Unlock()
		q.opts.metrics.recordEnqueue(q.opts.name, resultStored)
		return true
	}
	q.mu.Unlock()
	q.opts.metrics.recordEnqueue(q.opts.name, resultRejected)
	return false
}

// Enqueue 入队一个值；存储已满时挂起等待，直到空位腾出或 ctx 取消。
// ctx 已取消时不做任何状态变更，直接返回 ctx.Err()。
func (q *BoundedQueue[T]) Enqueue(ctx context.Context, v T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	if !q.takers.Empty() {
		q.takers.Resolve(v)
		q.mu.Unlock()
		q.opts.metrics.recordEnqueue(q.opts.name, resultHanded)
		return nil
	}
	if q.items.Length() < q.capacity {
		q.items.Add(v)
		q.mu.Unlock()
		q.opts.metrics.recordEnqueue(q.opts.name, resultStored)
		return nil
	}
	w := q.putters.AddValue(v)
	q.mu.Unlock()

	start := time.Now()
	_, err := w.Wait(ctx)
	q.opts.metrics.recordWait(q.opts.name, "enqueue", time.Since(start))
	if err != nil {
		q.opts.metrics.recordEnqueue(q.opts.name, resultCanceled)
		return err
	}
	q.opts.metrics.recordEnqueue(q.opts.name, resultWaited)
	return nil
}

// CompleteAllDequeue 以 v 结算当前全部出队等待者，返回结算数。
func (q *BoundedQueue[T]) CompleteAllDequeue(v T) int {
	q.mu.Lock()
	n := q.takers.ResolveAll(v)
	q.mu.Unlock()
	q.logBroadcast("complete all dequeue", n)
	q.opts.metrics.recordBroadcast(q.opts.name, "complete_dequeue", n)
	return n
}

// CancelAllDequeue 取消当前全部出队等待者（以 [ErrDequeueCanceled] 结算），
// 返回取消数。
func (q *BoundedQueue[T]) CancelAllDequeue() int {
	q.mu.Lock()
	n := q.takers.CancelAll(ErrDequeueCanceled)
	q.mu.Unlock()
	q.logBroadcast("cancel all dequeue", n)
	q.opts.metrics.recordBroadcast(q.opts.name, "cancel_dequeue", n)
	return n
}

// CompleteAllEnqueue 结算当前全部入队等待者：挂起的值按 FIFO 顺序进入
// 存储。存储可短暂超过容量，后续入队将等待直到回落。返回结算数。
func (q *BoundedQueue[T]) CompleteAllEnqueue() int {
	q.mu.Lock()
	n := q.putters.PendingValues(func(pv T) {
		q.items.Add(pv)
	})
	q.mu.Unlock()
	q.logBroadcast("complete all enqueue", n)
	q.opts.metrics.recordBroadcast(q.opts.name, "complete_enqueue", n)
	return n
}

// CancelAllEnqueue 取消当前全部入队等待者（以 [ErrEnqueueCanceled] 结算），
// 挂起的值被丢弃。返回取消数。
func (q *BoundedQueue[T]) CancelAllEnqueue() int {
	q.mu.Lock()
	n := q.putters.CancelAll(ErrEnqueueCanceled)
	q.mu.Unlock()
	q.logBroadcast("cancel all enqueue", n)
	q.opts.metrics.recordBroadcast(q.opts.name, "cancel_enqueue", n)
	return n
}

func (q *BoundedQueue[T]) logBroadcast(msg string, n int) {
	if q.opts.logger != nil {
		q.opts.logger.Debug(msg,
			AttrQueue(q.opts.name), AttrCount(n), AttrCapacity(q.capacity))
	}
}
