package xkeylock

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultShardCount = 32
	maxShardCount     = 1 << 16 // 65536
)

// Option 注册表配置选项函数。
type Option[K comparable] func(*options[K])

type options[K comparable] struct {
	comparer       func(K, K) bool
	shardCount     int
	maxKeys        int
	logger         *slog.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func defaultOptions[K comparable]() *options[K] {
	return &options[K]{
		shardCount: defaultShardCount,
	}
}

// WithComparer 注入自定义 key 相等比较器（默认为 ==）。
//
// 设置后注册表退化为单分片线性查找：相等关系不再与哈希一致，
// 无法按哈希分片。比较器必须是自反、对称、传递的等价关系。
func WithComparer[K comparable](cmp func(K, K) bool) Option[K] {
	return func(o *options[K]) {
		o.comparer = cmp
	}
}

// WithShardCount 设置分片数量。
// 更多分片减少争用，但增加内存占用。n 必须为 2 的幂，上限 65536，
// 否则构造函数返回错误。默认 32。设置了自定义比较器时分片数不生效
// （固定单分片），但仍做上述合法性校验。
func WithShardCount[K comparable](n int) Option[K] {
	return func(o *options[K]) {
		o.shardCount = n
	}
}

// WithMaxKeys 设置最大 key 数量。
// 达到上限时，新 key 的获取返回 [ErrMaxKeysExceeded]。
// n <= 0 表示不限制（默认）。
func WithMaxKeys[K comparable](n int) Option[K] {
	if n < 0 {
		n = 0
	}
	return func(o *options[K]) {
		o.maxKeys = n
	}
}

// WithLogger 设置日志记录器。Close 等生命周期事件在 Debug 级别记录。
// 默认不记录日志。
func WithLogger[K comparable](logger *slog.Logger) Option[K] {
	return func(o *options[K]) {
		o.logger = logger
	}
}

// WithMeterProvider 设置 OpenTelemetry MeterProvider。
// 不设置时不收集指标。
func WithMeterProvider[K comparable](mp metric.MeterProvider) Option[K] {
	return func(o *options[K]) {
		o.meterProvider = mp
	}
}

// WithTracerProvider 设置 OpenTelemetry TracerProvider。
//
// 设计决策: 与 xsemaphore 不同，不回退到全局 TracerProvider——锁获取是
// 热路径，span 只在显式注入 provider 时创建。
func WithTracerProvider[K comparable](tp trace.TracerProvider) Option[K] {
	return func(o *options[K]) {
		o.tracerProvider = tp
	}
}

func (o *options[K]) validate() error {
	sc := o.shardCount
	if sc <= 0 || sc > maxShardCount || sc&(sc-1) != 0 {
		return fmt.Errorf("%w: must be a positive power of 2 (max %d), got %d",
			ErrInvalidShardCount, maxShardCount, sc)
	}
	return nil
}
