// Package xstack 提供支持异步弹出的进程内 LIFO 容器。
//
// 空栈上的 Pop 不忙等也不返回失败，而是按 FIFO 顺序挂起，直到 Push 投递
// 一个值或 ctx 取消。已有等待者时，Push 的值直接交给最早的等待者，不进入
// 存储。
//
// # 顺序语义
//
//   - 存储中的值按 LIFO 弹出；
//   - 等待者按 FIFO 被服务（最早的等待者由下一次 Push 唤醒）。
//
// 两者有意不同：等待者只在存储为空时产生，因此不与已存储的值竞争。
//
// # 快速开始
//
//	s := xstack.New[string]()
//	s.Push("job")
//	v, err := s.Pop(ctx) // 立即返回 "job"
//
// 广播操作 CompleteAllPop/CancelAllPop 只影响调用时刻在队的等待者。
package xstack
