package xqueue

import "log/slog"

// Option 容器配置选项函数。
type Option func(*options)

type options struct {
	name    string
	logger  *slog.Logger
	metrics *Metrics
}

func defaultOptions() *options {
	return &options{
		name: "xqueue",
	}
}

// WithName 设置容器名称，用于日志与指标标签。
// 默认为 "xqueue"。空值不修改默认名称。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 设置日志记录器。
// 广播操作（CompleteAll*/CancelAll*）在 Debug 级别记录。
// 默认不记录日志。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics 注入指标收集器（通过 [NewMetrics] 构造）。
// 默认不收集指标。
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
