package xmutex

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/omeyang/synckit/internal/waitq"
)

// RWMutex 是支持 ctx 取消与可升级读者的读写锁。
//
// 持有模式：任意多个读者，或单个写者，或读者们加至多一个可升级读者。
// 写者优先准入：存在等待的写者或挂起的升级时，新读者不再进入。
// 必须通过 [NewRWMutex] 创建。
type RWMutex struct {
	mu sync.Mutex

	readers    int  // 活跃的普通读者数
	writer     bool // 独占区活跃（写者，或已升级的可升级读者）
	upgHeld    bool // 可升级读者被持有（读模式或已升级）
	upgPending bool // 可升级读者正在等待普通读者排空以完成升级

	readerQ  *waitq.WaitQueue[struct{}]
	writerQ  *waitq.WaitQueue[struct{}]
	upgQ     *waitq.WaitQueue[struct{}] // 等待成为可升级读者
	upgradeQ *waitq.WaitQueue[struct{}] // 挂起的升级（至多一个条目）
}

// NewRWMutex 创建未锁定的读写锁。
func NewRWMutex() *RWMutex {
	rw := &RWMutex{}
	rw.readerQ = waitq.New[struct{}](&rw.mu)
	rw.writerQ = waitq.New[struct{}](&rw.mu)
	rw.upgQ = waitq.New[struct{}](&rw.mu)
	rw.upgradeQ = waitq.New[struct{}](&rw.mu)

	// 等待者取消后重新评估准入：例如唯一的等待写者取消后，被其挡住的
	// 读者应立即进入。
	rw.readerQ.OnCancelLocked = rw.admitLocked
	rw.writerQ.OnCancelLocked = rw.admitLocked
	rw.upgQ.OnCancelLocked = rw.admitLocked
	rw.upgradeQ.OnCancelLocked = func() {
		rw.upgPending = false
		rw.admitLocked()
	}
	return rw
}

func (rw *RWMutex) canReadLocked() bool {
	return !rw.writer && !rw.upgPending && rw.writerQ.Empty()
}

func (rw *RWMutex) canWriteLocked() bool {
	return !rw.writer && rw.readers == 0 && !rw.upgHeld && rw.writerQ.Empty()
}

func (rw *RWMutex) canUpgradeableLocked() bool {
	return !rw.writer && !rw.upgHeld && !rw.upgPending && rw.writerQ.Empty()
}

// admitLocked 在状态变化后重新评估等待者准入。要求持有 rw.mu。
// 状态更新与结算在同一临界区完成：被唤醒的等待者返回时其持有已生效。
func (rw *RWMutex) admitLocked() {
	if rw.writer {
		return
	}
	// 升级优先：可升级读者已持有读访问，普通读者排空即可升级
	if rw.upgPending && rw.readers == 0 {
		rw.upgPending = false
		rw.writer = true
		rw.upgradeQ.Resolve(struct{}{})
		return
	}
	if rw.readers == 0 && !rw.upgHeld && !rw.writerQ.Empty() {
		rw.writer = true
		rw.writerQ.Resolve(struct{}{})
		return
	}
	if !rw.writerQ.Empty() || rw.upgPending {
		return
	}
	if n := rw.readerQ.Len(); n > 0 {
		rw.readers += n
		rw.readerQ.ResolveAll(struct{}{})
	}
	if !rw.upgHeld && !rw.upgQ.Empty() {
		rw.upgHeld = true
		rw.upgQ.Resolve(struct{}{})
	}
}

// RLock 获取读锁；写者活跃或等待时挂起。ctx 取消时返回 ctx.Err()。
func (rw *RWMutex) RLock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rw.mu.Lock()
	if rw.canReadLocked() {
		rw.readers++
		rw.mu.Unlock()
		return nil
	}
	w := rw.readerQ.Add()
	rw.mu.Unlock()
	_, err := w.Wait(ctx)
	return err
}

// TryRLock 非阻塞获取读锁，成功返回 true。
func (rw *RWMutex) TryRLock() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.canReadLocked() {
		rw.readers++
		return true
	}
	return false
}

// RUnlock 释放一次读锁。解锁未持有的读锁属于编程错误，直接 panic。
func (rw *RWMutex) RUnlock() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.readers <= 0 {
		panic("xmutex: RUnlock of unlocked RWMutex")
	}
	rw.readers--
	rw.admitLocked()
}

// Lock 获取写锁；存在读者、写者或可升级读者时挂起。
// ctx 取消时返回 ctx.Err()。
func (rw *RWMutex) Lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rw.mu.Lock()
	if rw.canWriteLocked() {
		rw.writer = true
		rw.mu.Unlock()
		return nil
	}
	w := rw.writerQ.Add()
	rw.mu.Unlock()
	_, err := w.Wait(ctx)
	return err
}

// TryLock 非阻塞获取写锁，成功返回 true。
func (rw *RWMutex) TryLock() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.canWriteLocked() {
		rw.writer = true
		return true
	}
	return false
}

// Unlock 释放写锁。解锁未持有的写锁属于编程错误，直接 panic。
func (rw *RWMutex) Unlock() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if !rw.writer {
		panic("xmutex: Unlock of unlocked RWMutex")
	}
	rw.writer = false
	rw.admitLocked()
}

// UpgradeableRLock 获取可升级读锁。同一时刻至多一个可升级读者；
// 写者活跃或等待、或已有可升级读者时挂起。ctx 取消时返回 ctx.Err()。
func (rw *RWMutex) UpgradeableRLock(ctx context.Context) (*UpgradeableReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rw.mu.Lock()
	if rw.canUpgradeableLocked() {
		rw.upgHeld = true
		rw.mu.Unlock()
		return &UpgradeableReader{rw: rw}, nil
	}
	w := rw.upgQ.Add()
	rw.mu.Unlock()
	if _, err := w.Wait(ctx); err != nil {
		return nil, err
	}
	return &UpgradeableReader{rw: rw}, nil
}

// UpgradeableReader 表示一次成功获取的可升级读锁。
// 非并发安全：一个 UpgradeableReader 只应由获取它的任务使用。
type UpgradeableReader struct {
	rw       *RWMutex
	upgraded bool // 由 rw.mu 保护
	released atomic.Bool
}

// Upgraded 报告读者当前是否处于升级（写）状态。
func (u *UpgradeableReader) Upgraded() bool {
	u.rw.mu.Lock()
	defer u.rw.mu.Unlock()
	return u.upgraded
}

// Upgrade 将可升级读者升级为写者：等待普通读者排空后获得独占访问。
// 升级等待期间不再准入新读者。ctx 取消时保持读状态并返回 ctx.Err()。
// 已升级时返回 [ErrAlreadyUpgraded]；已释放时返回 [ErrReaderReleased]。
func (u *UpgradeableReader) Upgrade(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.released.Load() {
		return ErrReaderReleased
	}
	u.rw.mu.Lock()
	if u.upgraded {
		u.rw.mu.Unlock()
		return ErrAlreadyUpgraded
	}
	if u.rw.readers == 0 && !u.rw.writer {
		u.rw.writer = true
		u.upgraded = true
		u.rw.mu.Unlock()
		return nil
	}
	u.rw.upgPending = true
	w := u.rw.upgradeQ.Add()
	u.rw.mu.Unlock()

	if _, err := w.Wait(ctx); err != nil {
		return err
	}
	u.rw.mu.Lock()
	u.upgraded = true
	u.rw.mu.Unlock()
	return nil
}

// Downgrade 将已升级的读者降回读状态。未升级时 panic。
func (u *UpgradeableReader) Downgrade() {
	u.rw.mu.Lock()
	defer u.rw.mu.Unlock()
	if !u.upgraded {
		panic("xmutex: Downgrade of non-upgraded reader")
	}
	u.upgraded = false
	u.rw.writer = false
	u.rw.admitLocked()
}

// Release 释放可升级读锁。幂等：重复调用是空操作。
// 若读者仍处于升级状态，先释放写状态再释放读资格。
func (u *UpgradeableReader) Release() {
	if !u.released.CompareAndSwap(false, true) {
		return
	}
	u.rw.mu.Lock()
	defer u.rw.mu.Unlock()
	if u.upgraded {
		u.upgraded = false
		u.rw.writer = false
	}
	u.rw.upgHeld = false
	u.rw.admitLocked()
}
