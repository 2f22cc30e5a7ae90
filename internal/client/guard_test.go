package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deferredExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (e *deferredExecutor) Execute(task func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
}

func (e *deferredExecutor) RunAll() {
	e.mu.Lock()
	tasks := e.tasks
	e.tasks = nil
	e.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

func TestGuardRunsTasksWhileAlive(t *testing.T) {
	executor := &deferredExecutor{}
	guard := NewGuard(executor)

	ran := false
	guard.Execute(func() { ran = true })
	executor.RunAll()

	assert.True(t, ran)
}

func TestGuardDropsTaskQueuedBeforeDestroy(t *testing.T) {
	executor := &deferredExecutor{}
	guard := NewGuard(executor)

	ran := false
	guard.Execute(func() { ran = true })
	guard.Destroy()
	executor.RunAll()

	assert.False(t, ran)
	assert.True(t, guard.Destroyed())
}

func TestGuardDropsTaskSubmittedAfterDestroy(t *testing.T) {
	executor := &deferredExecutor{}
	guard := NewGuard(executor)
	guard.Destroy()

	guard.Execute(func() { t.Fatal("task must not run") })

	assert.Empty(t, executor.tasks)
}

func TestGuardSurvivesDestroyRacingWithDispatch(t *testing.T) {
	queue := NewSerialQueue()
	t.Cleanup(queue.Close)
	guard := NewGuard(queue)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			guard.Execute(func() {})
		}()
	}
	guard.Destroy()
	wg.Wait()

	ran := make(chan struct{})
	guard.Execute(func() { close(ran) })
	select {
	case <-ran:
		t.Fatal("task ran after destroy")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSerialQueueRunsTasksInOrder(t *testing.T) {
	queue := NewSerialQueue()
	t.Cleanup(queue.Close)

	var got []int
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		queue.Execute(func() { got = append(got, i) })
	}
	queue.Execute(func() { close(done) })
	receive(t, done)

	require.Len(t, got, 50)
	for i, value := range got {
		assert.Equal(t, i, value)
	}
}

func TestSerialQueueCloseFromTaskStopsWorker(t *testing.T) {
	queue := NewSerialQueue()

	queue.Execute(queue.Close)
	queue.Execute(func() { t.Error("task queued after close must not run") })

	select {
	case <-queue.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit")
	}
}
