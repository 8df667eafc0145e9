// Package xmutex 提供支持 context 取消的互斥锁与可升级读写锁。
//
// 与 sync.Mutex/sync.RWMutex 的区别：
//
//   - 获取操作接受 ctx，支持超时与取消；
//   - RWMutex 额外支持可升级读者（upgradeable reader）：持有读访问的
//     同时保留升级为写者的独占资格，升级时只需等待普通读者排空。
//
// 两把锁都是非可重入的，与 sync 包一致；同一任务对同一把锁的嵌套获取
// 会死锁，库不做检测。误用（解锁未持有的锁）直接 panic。
//
// Mutex 基于 golang.org/x/sync/semaphore 实现（容量 1，等待者 FIFO）。
// RWMutex 基于内部等待队列实现，写者优先准入以避免写者饥饿。
package xmutex
