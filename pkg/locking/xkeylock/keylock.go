package xkeylock

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/synckit/pkg/locking/xmutex"
)

// Locker 提供基于 key 的进程内互斥锁注册表。
// 所有方法都是并发安全的。必须通过 [New] 创建。
type Locker[K comparable] struct {
	reg     *registry[K, *xmutex.Mutex]
	opts    *options[K]
	closed  atomic.Bool
	metrics *Metrics
	tracer  trace.Tracer
}

// New 创建互斥锁注册表。配置无效时返回错误（如分片数不是 2 的幂）。
func New[K comparable](opts ...Option[K]) (*Locker[K], error) {
	o := defaultOptions[K]()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	l := &Locker[K]{
		opts:    o,
		metrics: metrics,
		tracer:  newTracer(o.tracerProvider),
	}
	l.reg = newRegistry(o, &l.closed, xmutex.NewMutex)
	l.reg.onCreate = func() { metrics.recordEntry(1) }
	l.reg.onRemove = func() { metrics.recordEntry(-1) }
	return l, nil
}

// Acquire 阻塞式获取 key 上的锁。
//
// 支持 ctx 超时/取消：ctx 取消时返回 ctx.Err()，注册表引用计数在错误
// 传播前恢复。注册表已关闭时返回 [ErrClosed]。ctx 不得为 nil，否则 panic。
func (l *Locker[K]) Acquire(ctx context.Context, key K) (Handle[K], error) {
	if ctx == nil {
		panic("xkeylock: nil Context")
	}
	// 快速检查：ctx 已取消时避免进入 ref 造成不必要的锁竞争
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.closed.Load() {
		return nil, ErrClosed
	}

	ctx, span := startSpan(ctx, l.tracer, spanNameAcquire, key, modeExclusive)
	defer span.End()

	e, err := l.reg.ref(key)
	if err != nil {
		setSpanError(span, err)
		return nil, err
	}

	start := time.Now()
	if err := e.lock.Lock(ctx); err != nil {
		l.reg.unref(key, e)
		l.metrics.recordAcquire(modeExclusive, false, time.Since(start))
		setSpanError(span, err)
		return nil, err
	}
	l.metrics.recordAcquire(modeExclusive, true, time.Since(start))

	h := newLockHandle(key, func() {
		e.lock.Unlock()
		l.reg.unref(key, e)
	})
	setSpanAcquired(span, h.id)
	return h, nil
}

// TryAcquire 非阻塞获取 key 上的锁。
// 锁被占用时返回 (nil, nil)；注册表已关闭时返回 (nil, [ErrClosed])。
func (l *Locker[K]) TryAcquire(key K) (Handle[K], error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	e, err := l.reg.ref(key)
	if err != nil {
		return nil, err
	}
	if !e.lock.TryLock() {
		l.reg.unref(key, e)
		l.metrics.recordAcquire(modeExclusive, false, 0)
		return nil, nil
	}
	l.metrics.recordAcquire(modeExclusive, true, 0)
	return newLockHandle(key, func() {
		e.lock.Unlock()
		l.reg.unref(key, e)
	}), nil
}

// Len 返回当前活跃的 key 数量（瞬时快照）。
// Close 后仍可安全调用，随已持有 Handle 的释放逐渐归零。
func (l *Locker[K]) Len() int {
	return l.reg.len()
}

// Keys 返回当前活跃条目的 key 列表（包含持有者和等待者），仅用于调试。
func (l *Locker[K]) Keys() []K {
	return l.reg.keys()
}

// Comparer 返回生效的 key 相等比较器。未注入自定义比较器时返回 == 语义。
func (l *Locker[K]) Comparer() func(K, K) bool {
	if l.opts.comparer != nil {
		return l.opts.comparer
	}
	return func(a, b K) bool { return a == b }
}

// Close 关闭注册表：拒绝后续获取，已持有的锁不受影响。
// 第二次及后续调用返回 [ErrClosed]。
func (l *Locker[K]) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if l.opts.logger != nil {
		l.opts.logger.Debug("keylock closed", AttrEntries(l.Len()))
	}
	return nil
}
