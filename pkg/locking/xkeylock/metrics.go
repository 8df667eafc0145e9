package xkeylock

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 设计决策: 指标前缀使用 "xkeylock.*"，与 OTel Meter scope name 保持一致。
// key 不作为指标标签（任意业务 key 会造成高基数问题），需要按 key 定位时
// 使用 trace span 的 key 属性。
const (
	// metricNameAcquireTotal 获取锁次数计数器
	metricNameAcquireTotal = "xkeylock.acquire.total"
	// metricNameAcquireDuration 获取锁耗时直方图
	metricNameAcquireDuration = "xkeylock.acquire.duration"
	// metricNameActiveKeys 活跃条目数
	metricNameActiveKeys = "xkeylock.active_keys"
)

// 获取模式标签
const (
	modeExclusive   = "exclusive"
	modeRead        = "read"
	modeWrite       = "write"
	modeUpgradeable = "upgradeable"
)

// Metrics 注册表指标收集器。
type Metrics struct {
	acquireTotal    metric.Int64Counter
	acquireDuration metric.Float64Histogram
	activeKeys      metric.Int64UpDownCounter
}

// NewMetrics 创建指标收集器。
// meterProvider 为 nil 时返回 (nil, nil)，表示不收集指标。
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xkeylock")
	m := &Metrics{}

	var err error
	if m.acquireTotal, err = meter.Int64Counter(metricNameAcquireTotal,
		metric.WithDescription("锁获取次数"), metric.WithUnit("{acquire}")); err != nil {
		return nil, err
	}
	if m.acquireDuration, err = meter.Float64Histogram(metricNameAcquireDuration,
		metric.WithDescription("锁获取耗时"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10)); err != nil {
		return nil, err
	}
	if m.activeKeys, err = meter.Int64UpDownCounter(metricNameActiveKeys,
		metric.WithDescription("活跃的 key 条目数"), metric.WithUnit("{key}")); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) recordAcquire(mode string, acquired bool, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("xkeylock.mode", mode),
		attribute.Bool("xkeylock.acquired", acquired),
	)
	m.acquireTotal.Add(context.Background(), 1, attrs)
	if acquired {
		m.acquireDuration.Record(context.Background(), d.Seconds(), attrs)
	}
}

func (m *Metrics) recordEntry(delta int64) {
	if m == nil {
		return
	}
	m.activeKeys.Add(context.Background(), delta)
}
