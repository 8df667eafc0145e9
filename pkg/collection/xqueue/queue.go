package xqueue

import (
	"context"
	"sync"
	"time"

	equeue "github.com/eapache/queue"

	"github.com/omeyang/synckit/internal/waitq"
)

// Queue 是并发安全的无界 FIFO 容器，空队列出队按 FIFO 挂起等待。
// 不变式：存在等待者时存储必为空。
type Queue[T any] struct {
	mu     sync.Mutex
	items  *equeue.Queue
	takers *waitq.WaitQueue[T]
	opts   *options
}

// New 创建空的无界队列。
func New[T any](opts ...Option) *Queue[T] {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	q := &Queue[T]{
		items: equeue.New(),
		opts:  o,
	}
	q.takers = waitq.New[T](&q.mu)
	return q
}

// Len 返回当前存储的元素数。
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Waiters 返回当前挂起的 Dequeue 数（瞬时快照，用于监控与测试）。
func (q *Queue[T]) Waiters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.takers.Len()
}

// TryPeek 返回队首元素但不移除。空队列返回 (zero, false)。
func (q *Queue[T]) TryPeek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	return q.items.Peek().(T), true
}

// TryDequeue 非阻塞出队。空队列返回 (zero, false)。
func (q *Queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Length() == 0 {
		var zero T
		q.opts.metrics.recordDequeue(q.opts.name, resultRejected)
		return zero, false
	}
	q.opts.metrics.recordDequeue(q.opts.name, resultStored)
	return q.items.Remove().(T), true
}

// Dequeue 移除并返回队首元素；空队列时挂起等待，直到 Enqueue 投递或
// ctx 取消。ctx 已取消时不做任何状态变更，直接返回 ctx.Err()。
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	q.mu.Lock()
	if q.items.Length() > 0 {
		v := q.items.Remove().(T)
		q.mu.Unlock()
		q.opts.metrics.recordDequeue(q.opts.name, resultStored)
		return v, nil
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

// Enqueue 入队一个值，永不阻塞。
// 存在等待者时，值直接交给最早的等待者，不进入存储。
func (q *Queue[T]) Enqueue(v T) {
	q.mu.Lock()
	if !q.takers.Empty() {
		q.takers.Resolve(v)
		q.mu.Unlock()
		q.opts.metrics.recordEnqueue(q.opts.name, resultHanded)
		return
	}
	q.items.Add(v)
	q.mu.Unlock()
	q.opts.metrics.recordEnqueue(q.opts.name, resultStored)
}

// CompleteAllDequeue 以 v 结算当前全部等待者，返回结算数。
// 之后注册的等待者不受影响。
func (q *Queue[T]) CompleteAllDequeue(v T) int {
	q.mu.Lock()
	n := q.takers.ResolveAll(v)
	q.mu.Unlock()
	q.logBroadcast("complete all dequeue", n)
	q.opts.metrics.recordBroadcast(q.opts.name, "complete_dequeue", n)
	return n
}

// CancelAllDequeue 取消当前全部等待者（以 [ErrDequeueCanceled] 结算），
// 返回取消数。
func (q *Queue[T]) CancelAllDequeue() int {
	q.mu.Lock()
	n := q.takers.CancelAll(ErrDequeueCanceled)
	q.mu.Unlock()
	q.logBroadcast("cancel all dequeue", n)
	q.opts.metrics.recordBroadcast(q.opts.name, "cancel_dequeue", n)
	return n
}

func (q *Queue[T]) logBroadcast(msg string, n int) {
	if q.opts.logger != nil {
		q.opts.logger.Debug(msg, AttrQueue(q.opts.name), AttrCount(n))
	}
}
