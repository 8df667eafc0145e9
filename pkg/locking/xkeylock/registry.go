package xkeylock

import (
	"hash/maphash"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// lockEntry 表示一个 key 的锁条目。L 是 per-key 原语类型。
type lockEntry[K comparable, L any] struct {
	key  K
	lock L
	// refs 跟踪引用此条目的任务数（持有者 + 等待者）。
	// 由所属分片锁保护；归零时条目从注册表删除。
	refs int
}

// shard 是注册表的一个分片。默认模式用 map 索引；
// 自定义比较器模式用切片线性查找（registry.cmp 非 nil 时生效）。
type shard[K comparable, L any] struct {
	mu      sync.Mutex
	entries map[K]*lockEntry[K, L]
	list    []*lockEntry[K, L]
}

// registry 是按 key 引用计数的锁条目注册表，Locker 与 RWLocker 共用。
//
// 分片锁是"字典锁"：只保护查找/插入/删除与引用计数增减的短临界区，
// 从不跨越 per-key 原语上的挂起。
type registry[K comparable, L any] struct {
	shards   []shard[K, L]
	mask     uint64
	seed     maphash.Seed
	cmp      func(K, K) bool
	maxKeys  int
	keyCount atomic.Int64
	closed   *atomic.Bool
	newLock  func() L

	// 条目创建/删除钩子，供指标收集使用。可为 nil。
	onCreate func()
	onRemove func()
}

func newRegistry[K comparable, L any](o *options[K], closed *atomic.Bool, newLock func() L) *registry[K, L] {
	shardCount := o.shardCount
	if o.comparer != nil {
		// 自定义相等关系与哈希不一致，退化为单分片线性查找
		shardCount = 1
	}
	r := &registry[K, L]{
		shards:  make([]shard[K, L], shardCount),
		mask:    uint64(shardCount - 1),
		seed:    maphash.MakeSeed(),
		cmp:     o.comparer,
		maxKeys: o.maxKeys,
		closed:  closed,
		newLock: newLock,
	}
	if r.cmp == nil {
		for i := range r.shards {
			r.shards[i].entries = make(map[K]*lockEntry[K, L])
		}
	}
	return r
}

func (r *registry[K, L]) shardFor(key K) *shard[K, L] {
	if r.cmp != nil {
		return &r.shards[0]
	}
	var h uint64
	if s, ok := any(key).(string); ok {
		h = xxhash.Sum64String(s)
	} else {
		h = maphash.Comparable(r.seed, key)
	}
	return &r.shards[h&r.mask]
}

func (s *shard[K, L]) find(key K, cmp func(K, K) bool) (*lockEntry[K, L], bool) {
	if cmp == nil {
		e, ok := s.entries[key]
		return e, ok
	}
	for _, e := range s.list {
		if cmp(e.key, key) {
			return e, true
		}
	}
	return nil, false
}

func (s *shard[K, L]) insert(key K, e *lockEntry[K, L], cmp func(K, K) bool) {
	if cmp == nil {
		s.entries[key] = e
		return
	}
	s.list = append(s.list, e)
}

func (s *shard[K, L]) remove(e *lockEntry[K, L], cmp func(K, K) bool) {
	if cmp == nil {
		delete(s.entries, e.key)
		return
	}
	for i, cur := range s.list {
		if cur == e {
			s.list[i] = s.list[len(s.list)-1]
			s.list[len(s.list)-1] = nil
			s.list = s.list[:len(s.list)-1]
			return
		}
	}
}

// ref 获取或创建 key 的锁条目并递增引用计数。
func (r *registry[K, L]) ref(key K) (*lockEntry[K, L], error) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.closed.Load() {
		return nil, ErrClosed
	}

	e, ok := s.find(key, r.cmp)
	if !ok {
		if r.maxKeys > 0 {
			// CAS 严格限制 key 数量，避免跨分片并发突破上限
			for {
				cur := r.keyCount.Load()
				if cur >= int64(r.maxKeys) {
					return nil, ErrMaxKeysExceeded
				}
				if r.keyCount.CompareAndSwap(cur, cur+1) {
					break
				}
			}
		} else {
			r.keyCount.Add(1)
		}
		e = &lockEntry[K, L]{key: key, lock: r.newLock()}
		s.insert(key, e, r.cmp)
		if r.onCreate != nil {
			r.onCreate()
		}
	}
	e.refs++
	return e, nil
}

// unref 递减引用计数，归零时从注册表删除条目。
// 删除后的条目及其 per-key 原语不再被复用。
func (r *registry[K, L]) unref(key K, e *lockEntry[K, L]) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		s.remove(e, r.cmp)
		r.keyCount.Add(-1)
		if r.onRemove != nil {
			r.onRemove()
		}
	}
}

// len 返回当前活跃的 key 数量（单次原子读取，瞬时快照）。
func (r *registry[K, L]) len() int {
	return int(max(r.keyCount.Load(), 0))
}

// keys 返回当前活跃条目的 key 列表（包含持有者和等待者），仅用于调试。
// 快照不保证跨分片原子性。
func (r *registry[K, L]) keys() []K {
	out := make([]K, 0, max(r.keyCount.Load(), 0))
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		if r.cmp == nil {
			for k := range s.entries {
				out = append(out, k)
			}
		} else {
			for _, e := range s.list {
				out = append(out, e.key)
			}
		}
		s.mu.Unlock()
	}
	return out
}
