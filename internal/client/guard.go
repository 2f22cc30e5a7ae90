package client

import "sync/atomic"

// Executor runs completion handlers and listener notifications. Implementations
// must run tasks one at a time in submission order.
type Executor interface {
	Execute(task func())
}

type ExecutorFunc func(task func())

func (f ExecutorFunc) Execute(task func()) {
	f(task)
}

// InlineExecutor runs every task on the calling goroutine.
var InlineExecutor Executor = ExecutorFunc(func(task func()) { task() })

// Guard dispatches tasks through an Executor but drops them once the owning
// session is destroyed. The destroyed flag is checked when the task runs, not
// when it is submitted, so a task queued before Destroy never runs after it.
type Guard struct {
	executor  Executor
	destroyed atomic.Bool
}

var _ Executor = (*Guard)(nil)

func NewGuard(executor Executor) *Guard {
	return &Guard{executor: executor}
}

func (g *Guard) Execute(task func()) {
	if task == nil || g.destroyed.Load() {
		return
	}
	g.executor.Execute(func() {
		if g.destroyed.Load() {
			return
		}
		task()
	})
}

func (g *Guard) Destroy() {
	g.destroyed.Store(true)
}

func (g *Guard) Destroyed() bool {
	return g.destroyed.Load()
}
