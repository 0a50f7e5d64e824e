package concurrency

import "context"

// ExecutorStats reports point-in-time load for one Executor.
type ExecutorStats struct {
	QueuedTasks    int64
	CompletedTasks int64
	RejectedTasks  int64
	QueueCapacity  int
}

// TaskHandle is returned by Spawn. Dropping it lets the task run to
// completion unobserved; Done reports completion of the task itself (not
// cancellation).
type TaskHandle struct {
	done chan struct{}
	err  error
}

// Done returns a channel closed once the spawned task's Execute returns.
func (h *TaskHandle) Done() <-chan struct{} { return h.done }

// Err returns the task's result once Done is closed.
func (h *TaskHandle) Err() error { return h.err }

// Executor is an opaque cooperative task scheduler. Every Spawn runs its
// Task concurrently with every other Task on the same Executor -- the Go
// runtime's own M:N goroutine scheduler is the work-stealing scheduler the
// design calls for, so Executor's job is tracking and optionally bounding
// concurrent work, not serializing it.
type Executor interface {
	// Spawn queues task for execution and returns immediately with a handle.
	Spawn(task Task) *TaskHandle

	// Run submits task and blocks until it completes, surfacing its error.
	Run(ctx context.Context, task Task) error

	// BlockOn executes task synchronously on the calling goroutine, bypassing
	// the executor's own queue entirely.
	BlockOn(ctx context.Context, task Task) error

	// Shutdown stops accepting new tasks and waits for the queue to drain.
	Shutdown(ctx context.Context) error

	Stats() ExecutorStats
}
