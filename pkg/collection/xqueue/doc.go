// Package xqueue 提供支持异步出入队的进程内 FIFO 容器。
//
// 两种容器：
//
//   - Queue：无界 FIFO。空队列上的 Dequeue 挂起等待；Enqueue 永不阻塞。
//   - BoundedQueue：有界 FIFO，提供背压。满队列上的 Enqueue 挂起等待，
//     容量 0 时退化为纯会合（rendezvous）模式。
//
// 底层存储使用 eapache/queue 环形缓冲。出队等待者与入队等待者各自按
// FIFO 被服务；单把互斥锁串行化存储与两个等待队列的全部状态转移，该
// 顺序即线性化顺序。
//
// # 核心不变式
//
//   - 存在出队等待者 ⇒ 存储为空；
//   - 存在入队等待者 ⇒ 存储已满（|storage| = C）；
//   - 两类等待者永不同时存在。
//
// # FIFO 总序
//
// 每个 Enqueue 在其线性化点使值按 FIFO 顺序可观测；腾出空位的 Dequeue
// 负责在同一临界区内将队首入队等待者的值放入存储，等待者的值因此不会
// 被后来的直接入队插队。
//
// # 快速开始
//
//	q, err := xqueue.NewBounded[string](3)
//	if err != nil {
//	    return err
//	}
//	if err := q.Enqueue(ctx, "job"); err != nil { // 满时阻塞
//	    return err
//	}
//	v, err := q.Dequeue(ctx) // 空时阻塞
//
// 可观测性：通过 [WithMetrics] 注入 OpenTelemetry 指标收集器（见
// [NewMetrics]），通过 [WithLogger] 注入 slog 日志记录器（广播操作在
// Debug 级别记录）。两者默认关闭。
package xqueue
