package xkeylock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/synckit/pkg/locking/xmutex"
)

// RWLocker 提供基于 key 的进程内读写锁注册表，支持可升级读者。
// 所有方法都是并发安全的。必须通过 [NewRW] 创建。
//
// 同一 key 的条目在三种获取模式（读/写/可升级读）间共享：refcount 统计
// 全部未释放的获取，最后一个释放者触发条目回收。
type RWLocker[K comparable] struct {
	reg     *registry[K, *xmutex.RWMutex]
	opts    *options[K]
	closed  atomic.Bool
	metrics *Metrics
	tracer  trace.Tracer
}

// NewRW 创建读写锁注册表。配置无效时返回错误。
func NewRW[K comparable](opts ...Option[K]) (*RWLocker[K], error) {
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

	l := &RWLocker[K]{
		opts:    o,
		metrics: metrics,
		tracer:  newTracer(o.tracerProvider),
	}
	l.reg = newRegistry(o, &l.closed, xmutex.NewRWMutex)
	l.reg.onCreate = func() { metrics.recordEntry(1) }
	l.reg.onRemove = func() { metrics.recordEntry(-1) }
	return l, nil
}

// acquire 是三种阻塞获取模式的公共骨架：ref → 原语获取（可挂起）→
// 成功则包装 Handle，失败则恢复引用计数后传播错误。
func (l *RWLocker[K]) acquire(
	ctx context.Context,
	key K,
	mode string,
	lockFn func(*xmutex.RWMutex, context.Context) error,
	unlockFn func(*xmutex.RWMutex),
) (Handle[K], error) {
	if ctx == nil {
		panic("xkeylock: nil Context")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.closed.Load() {
		return nil, ErrClosed
	}

	ctx, span := startSpan(ctx, l.tracer, spanNameAcquire, key, mode)
	defer span.End()

	e, err := l.reg.ref(key)
	if err != nil {
		setSpanError(span, err)
		return nil, err
	}

	start := time.Now()
	if err := lockFn(e.lock, ctx); err != nil {
		l.reg.unref(key, e)
		l.metrics.recordAcquire(mode, false, time.Since(start))
		setSpanError(span, err)
		return nil, err
	}
	l.metrics.recordAcquire(mode, true, time.Since(start))

	h := newLockHandle(key, func() {
		unlockFn(e.lock)
		l.reg.unref(key, e)
	})
	setSpanAcquired(span, h.id)
	return h, nil
}

// AcquireRead 阻塞式获取 key 上的读锁。同 key 读者可并发持有。
func (l *RWLocker[K]) AcquireRead(ctx context.Context, key K) (Handle[K], error) {
	return l.acquire(ctx, key, modeRead,
		(*xmutex.RWMutex).RLock,
		(*xmutex.RWMutex).RUnlock)
}

// AcquireWrite 阻塞式获取 key 上的写锁（独占）。
func (l *RWLocker[K]) AcquireWrite(ctx context.Context, key K) (Handle[K], error) {
	return l.acquire(ctx, key, modeWrite,
		(*xmutex.RWMutex).Lock,
		(*xmutex.RWMutex).Unlock)
}

// TryAcquireRead 非阻塞获取读锁。无法立即获取时返回 (nil, nil)。
func (l *RWLocker[K]) TryAcquireRead(key K) (Handle[K], error) {
	return l.tryAcquire(key, modeRead,
		(*xmutex.RWMutex).TryRLock,
		(*xmutex.RWMutex).RUnlock)
}

// TryAcquireWrite 非阻塞获取写锁。无法立即获取时返回 (nil, nil)。
func (l *RWLocker[K]) TryAcquireWrite(key K) (Handle[K], error) {
	return l.tryAcquire(key, modeWrite,
		(*xmutex.RWMutex).TryLock,
		(*xmutex.RWMutex).Unlock)
}

func (l *RWLocker[K]) tryAcquire(
	key K,
	mode string,
	tryFn func(*xmutex.RWMutex) bool,
	unlockFn func(*xmutex.RWMutex),
) (Handle[K], error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}
	e, err := l.reg.ref(key)
	if err != nil {
		return nil, err
	}
	if !tryFn(e.lock) {
		l.reg.unref(key, e)
		l.metrics.recordAcquire(mode, false, 0)
		return nil, nil
	}
	l.metrics.recordAcquire(mode, true, 0)
	return newLockHandle(key, func() {
		unlockFn(e.lock)
		l.reg.unref(key, e)
	}), nil
}

// AcquireUpgradeable 阻塞式获取 key 上的可升级读锁。
//
// 返回的句柄在持有读访问的同时保留升级资格：Upgrade 等待同 key 普通
// 读者排空后获得独占，嵌套句柄的 Unlock 降级回读状态。注册表引用计数
// 只由外层句柄的 Unlock 释放一次。
func (l *RWLocker[K]) AcquireUpgradeable(ctx context.Context, key K) (UpgradeableHandle[K], error) {
	if ctx == nil {
		panic("xkeylock: nil Context")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.closed.Load() {
		return nil, ErrClosed
	}

	ctx, span := startSpan(ctx, l.tracer, spanNameAcquire, key, modeUpgradeable)
	defer span.End()

	e, err := l.reg.ref(key)
	if err != nil {
		setSpanError(span, err)
		return nil, err
	}

	start := time.Now()
	reader, err := e.lock.UpgradeableRLock(ctx)
	if err != nil {
		l.reg.unref(key, e)
		l.metrics.recordAcquire(modeUpgradeable, false, time.Since(start))
		setSpanError(span, err)
		return nil, err
	}
	l.metrics.recordAcquire(modeUpgradeable, true, time.Since(start))

	h := &upgradeableHandle[K]{
		key:    key,
		id:     uuid.NewString(),
		reader: reader,
		release: func() {
			l.reg.unref(key, e)
		},
	}
	setSpanAcquired(span, h.id)
	return h, nil
}

// Len 返回当前活跃的 key 数量（瞬时快照）。
func (l *RWLocker[K]) Len() int {
	return l.reg.len()
}

// Keys 返回当前活跃条目的 key 列表，仅用于调试。
func (l *RWLocker[K]) Keys() []K {
	return l.reg.keys()
}

// Comparer 返回生效的 key 相等比较器。未注入自定义比较器时返回 == 语义。
func (l *RWLocker[K]) Comparer() func(K, K) bool {
	if l.opts.comparer != nil {
		return l.opts.comparer
	}
	return func(a, b K) bool { return a == b }
}

// Close 关闭注册表：拒绝后续获取，已持有的锁不受影响。
// 第二次及后续调用返回 [ErrClosed]。
func (l *RWLocker[K]) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if l.opts.logger != nil {
		l.opts.logger.Debug("rw keylock closed", AttrEntries(l.Len()))
	}
	return nil
}
