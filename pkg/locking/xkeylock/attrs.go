package xkeylock

import "log/slog"

// 日志属性键常量
const (
	attrKeyEntries  = "entries"
	attrKeyHandleID = "handle_id"
	attrKeyError    = "error"
)

// AttrEntries 返回活跃条目数属性。
func AttrEntries(n int) slog.Attr {
	return slog.Int(attrKeyEntries, n)
}

// AttrHandleID 返回句柄 ID 属性。
func AttrHandleID(id string) slog.Attr {
	return slog.String(attrKeyHandleID, id)
}

// AttrError 返回错误属性。
func AttrError(err error) slog.Attr {
	return slog.Any(attrKeyError, err)
}
