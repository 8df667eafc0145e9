package xkeylock

import "errors"

var (
	// ErrLockNotHeld 表示锁已被释放。
	// Unlock 第二次及后续调用、或在已释放的句柄上 Upgrade 时返回此错误。
	ErrLockNotHeld = errors.New("xkeylock: lock not held")

	// ErrClosed 表示注册表已关闭。
	// Close 后的新获取返回此错误；已持有的 Handle 不受影响。
	ErrClosed = errors.New("xkeylock: closed")

	// ErrMaxKeysExceeded 表示已达到最大 key 数量限制。
	ErrMaxKeysExceeded = errors.New("xkeylock: max keys exceeded")

	// ErrInvalidShardCount 表示分片数配置不合法。
	ErrInvalidShardCount = errors.New("xkeylock: invalid shard count")
)

// IsClosed 检查错误是否为注册表已关闭。
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
