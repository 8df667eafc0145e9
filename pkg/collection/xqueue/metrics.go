package xqueue

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 设计决策: 指标前缀使用 "xqueue.*"，与 OTel Meter scope name 保持一致
// （Meter("xqueue")），各包自治命名。
const (
	// metricNameEnqueueTotal 入队次数计数器
	metricNameEnqueueTotal = "xqueue.enqueue.total"
	// metricNameDequeueTotal 出队次数计数器
	metricNameDequeueTotal = "xqueue.dequeue.total"
	// metricNameBroadcastTotal 广播操作次数计数器
	metricNameBroadcastTotal = "xqueue.broadcast.total"
	// metricNameWaitDuration 等待路径耗时直方图
	metricNameWaitDuration = "xqueue.wait.duration"
)

// 指标属性键
const (
	metricAttrQueue  = "xqueue.name"
	metricAttrResult = "xqueue.result"
	metricAttrOp     = "xqueue.op"
)

// 低基数结果标签
const (
	resultHanded   = "handed"   // 值直接交给对端等待者
	resultStored   = "stored"   // 值进入存储 / 从存储取出
	resultWaited   = "waited"   // 经过挂起等待后完成
	resultCanceled = "canceled" // ctx 取消或广播取消
	resultRejected = "rejected" // Try* 快速路径失败
)

// Metrics 容器指标收集器。
// 一个 Metrics 可被多个容器共享，以 [WithName] 区分标签。
type Metrics struct {
	enqueueTotal   metric.Int64Counter
	dequeueTotal   metric.Int64Counter
	broadcastTotal metric.Int64Counter
	waitDuration   metric.Float64Histogram
}

// NewMetrics 创建指标收集器。
// meterProvider 为 nil 时返回 (nil, nil)，表示不收集指标。
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xqueue")
	m := &Metrics{}

	var err error
	if m.enqueueTotal, err = meter.Int64Counter(metricNameEnqueueTotal,
		metric.WithDescription("入队操作次数"), metric.WithUnit("{operation}")); err != nil {
		return nil, err
	}
	if m.dequeueTotal, err = meter.Int64Counter(metricNameDequeueTotal,
		metric.WithDescription("出队操作次数"), metric.WithUnit("{operation}")); err != nil {
		return nil, err
	}
	if m.broadcastTotal, err = meter.Int64Counter(metricNameBroadcastTotal,
		metric.WithDescription("广播操作结算的等待者数"), metric.WithUnit("{waiter}")); err != nil {
		return nil, err
	}
	if m.waitDuration, err = meter.Float64Histogram(metricNameWaitDuration,
		metric.WithDescription("挂起等待路径耗时"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.001, 0.01, 0.1, 1, 10)); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) recordEnqueue(name, result string) {
	if m == nil {
		return
	}
	m.enqueueTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(metricAttrQueue, name),
		attribute.String(metricAttrResult, result),
	))
}

func (m *Metrics) recordDequeue(name, result string) {
	if m == nil {
		return
	}
	m.dequeueTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(metricAttrQueue, name),
		attribute.String(metricAttrResult, result),
	))
}

func (m *Metrics) recordBroadcast(name, op string, n int) {
	if m == nil {
		return
	}
	m.broadcastTotal.Add(context.Background(), int64(n), metric.WithAttributes(
		attribute.String(metricAttrQueue, name),
		attribute.String(metricAttrOp, op),
	))
}

func (m *Metrics) recordWait(name, op string, d time.Duration) {
	if m == nil {
		return
	}
	m.waitDuration.Record(context.Background(), d.Seconds(), metric.WithAttributes(
		attribute.String(metricAttrQueue, name),
		attribute.String(metricAttrOp, op),
	))
}
