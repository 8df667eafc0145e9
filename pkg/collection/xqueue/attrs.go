package xqueue

import "log/slog"

// 日志属性键常量
const (
	attrKeyQueue    = "queue"
	attrKeyCount    = "count"
	attrKeyCapacity = "capacity"
	attrKeyOp       = "op"
)

// AttrQueue 返回容器名称属性。
func AttrQueue(name string) slog.Attr {
	return slog.String(attrKeyQueue, name)
}

// AttrCount 返回数量属性。
func AttrCount(n int) slog.Attr {
	return slog.Int(attrKeyCount, n)
}

// AttrCapacity 返回容量属性。
func AttrCapacity(c int) slog.Attr {
	return slog.Int(attrKeyCapacity, c)
}

// AttrOp 返回操作名称属性。
func AttrOp(op string) slog.Attr {
	return slog.String(attrKeyOp, op)
}
