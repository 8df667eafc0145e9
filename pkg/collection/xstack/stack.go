package xstack

import (
	"context"
	"sync"

	"github.com/omeyang/synckit/internal/waitq"
)

// Stack 是并发安全的 LIFO 容器，空栈弹出按 FIFO 挂起等待。
// 不变式：存在等待者时存储必为空（值从不越过等待者进入存储）。
type Stack[T any] struct {
	mu     sync.Mutex
	items  []T
	takers *waitq.WaitQueue[T]
}

// New 创建空栈。
func New[T any]() *Stack[T] {
	s := &Stack[T]{}
	s.takers = waitq.New[T](&s.mu)
	return s
}

// Len 返回当前存储的元素数。
func (s *Stack[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Waiters 返回当前挂起的 Pop 数（瞬时快照，用于监控与测试）。
func (s *Stack[T]) Waiters() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takers.Len()
}

// TryPeek 返回栈顶元素但不移除。空栈返回 (zero, false)。
func (s *Stack[T]) TryPeek() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.items); n > 0 {
		return s.items[n-1], true
	}
	var zero T
	return zero, false
}

// TryPop 非阻塞弹出栈顶元素。空栈返回 (zero, false)。
func (s *Stack[T]) TryPop() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popLocked()
}

func (s *Stack[T]) popLocked() (T, bool) {
	n := len(s.items)
	if n == 0 {
		var zero T
		return zero, false
	}
	v := s.items[n-1]
	var zero T
	s.items[n-1] = zero
	s.items = s.items[:n-1]
	return v, true
}

// Pop 弹出栈顶元素；空栈时挂起等待，直到 Push 投递或 ctx 取消。
// ctx 已取消时不做任何状态变更，直接返回 ctx.Err()。
func (s *Stack[T]) Pop(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	s.mu.Lock()
	if v, ok := s.popLocked(); ok {
		s.mu.Unlock()
		return v, nil
	}
	w := s.takers.Add()
	s.mu.Unlock()

	return w.Wait(ctx)
}

// Push 压入一个值。存在等待者时，值直接交给最早的等待者，不进入存储。
func (s *Stack[T]) Push(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.takers.Empty() {
		s.takers.Resolve(v)
		return
	}
	s.items = append(s.items, v)
}

// PopAll 按弹出顺序（LIFO）排空并返回当前存储的全部元素。
// 不影响等待者。
func (s *Stack[T]) PopAll() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return nil
	}
	out := make([]T, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		out = append(out, s.items[i])
	}
	s.items = nil
	return out
}

// CompleteAllPop 以 v 结算当前全部等待者，返回结算数。
// 之后注册的等待者不受影响。
func (s *Stack[T]) CompleteAllPop(v T) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takers.ResolveAll(v)
}

// CancelAllPop 取消当前全部等待者（以 [ErrPopCanceled] 结算），返回取消数。
func (s *Stack[T]) CancelAllPop() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takers.CancelAll(ErrPopCanceled)
}
