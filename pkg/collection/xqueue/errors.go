package xqueue

import "errors"

var (
	// ErrNegativeCapacity 表示以负容量构造 BoundedQueue。
	ErrNegativeCapacity = errors.New("xqueue: capacity must be non-negative")

	// ErrDequeueCanceled 表示挂起的 Dequeue 被 CancelAllDequeue 广播取消。
	// ctx 取消导致的失败返回 ctx.Err()，不使用此错误。
	ErrDequeueCanceled = errors.New("xqueue: pending dequeue canceled")

	// ErrEnqueueCanceled 表示挂起的 Enqueue 被 CancelAllEnqueue 广播取消。
	// 被取消的入队值被丢弃。
	ErrEnqueueCanceled = errors.New("xqueue: pending enqueue canceled")
)

// IsCanceled 检查错误是否为广播取消（出队或入队侧）。
func IsCanceled(err error) bool {
	return errors.Is(err, ErrDequeueCanceled) || errors.Is(err, ErrEnqueueCanceled)
}
