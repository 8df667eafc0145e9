package xstack_test

import (
	"context"
	"fmt"

	"github.com/omeyang/synckit/pkg/collection/xstack"
)

// Example_basic 演示栈的基本用法：LIFO 弹出与空栈等待。
func Example_basic() {
	s := xstack.New[string]()
	s.Push("first")
	s.Push("second")

	ctx := context.Background()
	v, _ := s.Pop(ctx)
	fmt.Println(v)
	v, _ = s.Pop(ctx)
	fmt.Println(v)

	// Output:
	// second
	// first
}

// Example_tryPop 演示非阻塞弹出。
func Example_tryPop() {
	s := xstack.New[int]()

	if _, ok := s.TryPop(); !ok {
		fmt.Println("empty")
	}

	s.Push(42)
	if v, ok := s.TryPop(); ok {
		fmt.Println(v)
	}

	// Output:
	// empty
	// 42
}
