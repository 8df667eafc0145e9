package xmutex

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Mutex 是支持 ctx 取消的互斥锁。等待者按 FIFO 顺序获得锁。
// 必须通过 [NewMutex] 创建。
type Mutex struct {
	sem *semaphore.Weighted
}

// NewMutex 创建未锁定的互斥锁。
func NewMutex() *Mutex {
	return &Mutex{sem: semaphore.NewWeighted(1)}
}

// Lock 获取锁；已被持有时挂起等待，直到释放或 ctx 取消。
// 返回 nil 表示获取成功；ctx 取消时返回 ctx.Err()，不改变锁状态。
func (m *Mutex) Lock(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// TryLock 非阻塞获取锁，成功返回 true。
func (m *Mutex) TryLock() bool {
	return m.sem.TryAcquire(1)
}

// Unlock 释放锁。解锁未持有的锁属于编程错误，直接 panic。
func (m *Mutex) Unlock() {
	m.sem.Release(1)
}
