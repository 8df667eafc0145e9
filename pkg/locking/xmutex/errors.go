package xmutex

import "errors"

var (
	// ErrAlreadyUpgraded 表示可升级读者已处于升级状态时再次 Upgrade。
	ErrAlreadyUpgraded = errors.New("xmutex: reader already upgraded")

	// ErrReaderReleased 表示在已释放的可升级读者上调用 Upgrade。
	ErrReaderReleased = errors.New("xmutex: upgradeable reader released")
)
