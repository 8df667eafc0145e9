// Package xkeylock 提供基于 key 的进程内互斥锁与读写锁注册表。
//
// 适用于需要按业务 key 进行互斥的场景，如资产创建互斥、风险更新互斥等。
// 不同 key 可并发持有；同一 key 上的访问由各自的异步原语（xmutex）串行化。
//
// # 条目生命周期
//
// 每个 key 的锁条目按需创建、引用计数管理：首次获取时创建（refcount = 1），
// 最后一个持有者/等待者释放时精确移除。refcount 的增减只在分片锁的短临界
// 区内进行，从不跨越 per-key 原语上的挂起点。获取失败（ctx 取消、关闭）
// 时引用计数在错误传播前恢复，不会泄漏条目。
//
// # 两个注册表
//
//   - [Locker]：每 key 一把互斥锁（xmutex.Mutex）；
//   - [RWLocker]：每 key 一把可升级读写锁（xmutex.RWMutex），支持
//     读者/写者/可升级读者三种获取模式，可升级句柄可在持有读访问的
//     同时升级为写访问。
//
// # Handle 语义
//
// 每次成功获取返回一个新的 Handle，内部封装唯一 ID。Unlock 幂等：首次
// 调用释放 per-key 原语并递减注册表引用，后续调用返回 [ErrLockNotHeld]。
// 未释放的 Handle 恰好泄漏一个引用计数——条目不会自行回收。
//
// # 非可重入
//
// 锁是非可重入的：同一任务对同一 key 的嵌套获取会死锁，库不做检测。
// 建议始终使用带 deadline 的 context 以防编程错误导致的永久阻塞。
//
// # 分片与自定义比较器
//
// 默认按 key 哈希分片（string 用 xxhash，其余可比较类型用 hash/maphash），
// 32 分片，减少管理锁争用。通过 [WithComparer] 注入自定义相等比较器后，
// 相等关系不再是 ==，注册表退化为单分片线性查找。
//
// # 可观测性
//
// 通过 [WithMeterProvider] 启用 OpenTelemetry 指标（获取计数、获取耗时、
// 活跃 key 数），通过 [WithTracerProvider] 启用获取操作的 span。默认关闭。
package xkeylock
