package xstack

import "errors"

var (
	// ErrPopCanceled 表示挂起的 Pop 被 CancelAllPop 广播取消。
	// ctx 取消导致的失败返回 ctx.Err()，不使用此错误。
	ErrPopCanceled = errors.New("xstack: pending pop canceled")
)
