package concurrency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coactor/machine/pkg/logging"
)

// defaultExecutor runs every spawned Task on its own goroutine, optionally
// bounded by a capacity semaphore. This is deliberately NOT a single
// worker draining one queue: the runtime's adapters and background tasks
// are long-lived (they loop for the lifetime of a mailbox), so a
// single-consumer queue -- right for short request-handling work -- would
// let one adapter starve every other task ever spawned on the same
// Executor. Go's own M:N goroutine scheduler already is the cooperative,
// work-stealing scheduler the design calls for; Spawn just hands it a task
// and tracks it.
type defaultExecutor struct {
	logger logging.Logger

	closed atomic.Bool
	wg     sync.WaitGroup
	sem    chan struct{}

	running   atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	capacity  int
}

// NewExecutor starts an Executor that allows up to capacity concurrently
// running tasks (0 or negative means unbounded).
func NewExecutor(capacity int, logger logging.Logger) Executor {
	if logger == nil {
		logger = logging.Default
	}
	e := &defaultExecutor{logger: logger, capacity: capacity}
	if capacity > 0 {
		e.sem = make(chan struct{}, capacity)
	}
	return e
}

func (e *defaultExecutor) Spawn(task Task) *TaskHandle {
	h := &TaskHandle{done: make(chan struct{})}
	if e.closed.Load() {
		h.err = fmt.Errorf("executor is closed")
		close(h.done)
		return h
	}
	if e.sem != nil {
		select {
		case e.sem <- struct{}{}:
		default:
			e.rejected.Add(1)
			h.err = ErrMailboxFull
			close(h.done)
			return h
		}
	}

	e.running.Add(1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer close(h.done)
		if e.sem != nil {
			defer func() { <-e.sem }()
		}
		err := task.Execute(context.Background())
		if err != nil {
			e.logger.Debugf("task %s failed: %v", task.Name(), err)
		}
		h.err = err
		e.running.Add(-1)
		e.completed.Add(1)
	}()
	return h
}

func (e *defaultExecutor) Run(ctx context.Context, task Task) error {
	h := e.Spawn(task)
	select {
	case <-h.Done():
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *defaultExecutor) BlockOn(ctx context.Context, task Task) error {
	return task.Execute(ctx)
}

func (e *defaultExecutor) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor shutdown timed out: %w", ctx.Err())
	}
}

func (e *defaultExecutor) Stats() ExecutorStats {
	return ExecutorStats{
		QueuedTasks:    e.running.Load(),
		CompletedTasks: e.completed.Load(),
		RejectedTasks:  e.rejected.Load(),
		QueueCapacity:  e.capacity,
	}
}
