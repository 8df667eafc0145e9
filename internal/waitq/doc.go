// Package waitq 提供 FIFO 等待队列，是容器类原语（xstack、xqueue）与
// 读写锁（xmutex.RWMutex）的共享底层设施。
//
// WaitQueue 与其所属容器共享同一把互斥锁：所有修改队列状态的方法都要求
// 调用方已持有该锁；Waiter.Wait 则必须在锁外调用。每个等待者持有一个
// 容量为 1 的单次结果 channel，结算（settle）在锁内完成，channel 写入
// 不会内联执行等待者的后续逻辑，因此结算无需延迟到锁外。
//
// 取消语义：Wait 在 ctx 触发后重新进入互斥锁，若条目尚未结算则将其从
// 队列移除并返回 ctx.Err()；若已被对端结算，取消不产生任何效果，Wait
// 返回对端的结算结果（取消与匹配的竞争由先落锁的一方获胜）。
package waitq
