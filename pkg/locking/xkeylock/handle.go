package xkeylock

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/omeyang/synckit/pkg/locking/xmutex"
)

// Handle 表示一次成功的锁获取。
//
// 每次获取成功都会返回一个新的 handle，内部封装唯一 ID；持有 handle
// 即持有锁。Unlock 同时完成两步记账：释放 per-key 原语，然后递减注册表
// 引用计数。两步恰好执行一次，由原子哨兵保证。
type Handle[K comparable] interface {
	// Unlock 释放锁。
	// 幂等：第一次调用返回 nil，后续调用返回 [ErrLockNotHeld]。
	Unlock() error

	// Key 返回锁的 key。Unlock 之后仍返回原始 key 值。
	Key() K

	// ID 返回本次获取的唯一标识，用于日志与追踪关联。
	ID() string
}

// UpgradeableHandle 表示一次成功的可升级读锁获取。
type UpgradeableHandle[K comparable] interface {
	Handle[K]

	// Upgraded 报告句柄当前是否处于升级（写）状态。
	Upgraded() bool

	// Upgrade 升级为写访问：等待同 key 普通读者排空后获得独占。
	// 返回嵌套 handle，其 Unlock 降级回可升级读状态；注册表引用计数
	// 只由外层句柄的 Unlock 释放一次。
	// ctx 取消时保持读状态并返回 ctx.Err()；已升级时返回
	// [xmutex.ErrAlreadyUpgraded]；句柄已释放时返回 [ErrLockNotHeld]。
	Upgrade(ctx context.Context) (Handle[K], error)
}

// lockHandle 是 Handle 的通用实现：unlockFn 封装本次获取的全部释放动作。
type lockHandle[K comparable] struct {
	key      K
	id       string
	done     atomic.Bool
	unlockFn func()
}

func newLockHandle[K comparable](key K, unlockFn func()) *lockHandle[K] {
	return &lockHandle[K]{key: key, id: uuid.NewString(), unlockFn: unlockFn}
}

func (h *lockHandle[K]) Unlock() error {
	if !h.done.CompareAndSwap(false, true) {
		return ErrLockNotHeld
	}
	h.unlockFn()
	return nil
}

func (h *lockHandle[K]) Key() K {
	return h.key
}

func (h *lockHandle[K]) ID() string {
	return h.id
}

// upgradeableHandle 是 UpgradeableHandle 的实现。
type upgradeableHandle[K comparable] struct {
	key    K
	id     string
	done   atomic.Bool
	reader *xmutex.UpgradeableReader
	// release 递减注册表引用计数；只在外层 Unlock 时调用一次。
	release func()
}

func (h *upgradeableHandle[K]) Unlock() error {
	if !h.done.CompareAndSwap(false, true) {
		return ErrLockNotHeld
	}
	// 若嵌套升级句柄未释放，Release 会先释放写状态再释放读资格
	h.reader.Release()
	h.release()
	return nil
}

func (h *upgradeableHandle[K]) Key() K {
	return h.key
}

func (h *upgradeableHandle[K]) ID() string {
	return h.id
}

func (h *upgradeableHandle[K]) Upgraded() bool {
	return h.reader.Upgraded()
}

func (h *upgradeableHandle[K]) Upgrade(ctx context.Context) (Handle[K], error) {
	if h.done.Load() {
		return nil, ErrLockNotHeld
	}
	if err := h.reader.Upgrade(ctx); err != nil {
		return nil, err
	}
	// 嵌套句柄只负责降级，不触碰注册表引用计数；外层句柄已释放时
	// 写状态已由 Release 回收，降级为空操作
	return newLockHandle(h.key, func() {
		if !h.done.Load() {
			h.reader.Downgrade()
		}
	}), nil
}

// 编译期接口检查
var (
	_ Handle[string]            = (*lockHandle[string])(nil)
	_ UpgradeableHandle[string] = (*upgradeableHandle[string])(nil)
)
