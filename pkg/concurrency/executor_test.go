package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutorRunsEverySpawnedTaskOnce(t *testing.T) {
	ex := NewExecutor(16, nil)
	defer ex.Shutdown(context.Background())

	var mu sync.Mutex
	runs := make([]int, 5)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		ex.Spawn(TaskFunc(func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			runs[i]++
			mu.Unlock()
			return nil
		}))
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tasks never completed")
	}

	// Tasks on one Executor run concurrently, so only the run count per
	// task is defined, not the order they finish in.
	for i, n := range runs {
		if n != 1 {
			t.Errorf("task %d ran %d times, want 1", i, n)
		}
	}
}

func TestExecutorRunBlocksForResult(t *testing.T) {
	ex := NewExecutor(4, nil)
	defer ex.Shutdown(context.Background())

	var ran atomic.Bool
	err := ex.Run(context.Background(), TaskFunc(func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !ran.Load() {
		t.Error("Run() returned before task executed")
	}
}

func TestExecutorShutdownRejectsNewWork(t *testing.T) {
	ex := NewExecutor(4, nil)
	if err := ex.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	h := ex.Spawn(TaskFunc(func(ctx context.Context) error { return nil }))
	<-h.Done()
	if h.Err() == nil {
		t.Error("Spawn() after Shutdown() should report an error")
	}
}

func TestExecutorPoolRoundRobin(t *testing.T) {
	pool := NewExecutorPool(PoolConfig{ThreadCount: 3, BindExecutorToThread: true})
	defer pool.Shutdown(context.Background())

	first := pool.GetExecutor()
	second := pool.GetExecutor()
	third := pool.GetExecutor()
	fourth := pool.GetExecutor()

	if first == second || second == third {
		t.Error("bound pool should hand out distinct executors before wrapping")
	}
	if first != fourth {
		t.Error("round robin should wrap back to the first executor after pool size selections")
	}
}

func TestExecutorPoolSharedWhenNotBound(t *testing.T) {
	pool := NewExecutorPool(PoolConfig{ThreadCount: 4, BindExecutorToThread: false})
	defer pool.Shutdown(context.Background())

	a := pool.GetExecutor()
	b := pool.GetExecutor()
	if a != b {
		t.Error("unbound pool should round-robin over a single shared executor")
	}
}

func TestBackgroundTaskCancel(t *testing.T) {
	ex := NewExecutor(4, nil)
	defer ex.Shutdown(context.Background())

	started := make(chan struct{})
	bt := Detach(ex, "probe", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	bt.Cancel()

	select {
	case <-bt.Done():
	case <-time.After(time.Second):
		t.Fatal("background task did not observe cancellation")
	}
}

func TestBackgroundTaskCancelIdempotent(t *testing.T) {
	ex := NewExecutor(4, nil)
	defer ex.Shutdown(context.Background())

	bt := Detach(ex, "probe", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	bt.Cancel()
	bt.Cancel()
	<-bt.Done()
}
