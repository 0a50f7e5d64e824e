package concurrency

import (
	"context"
	"sync"
)

// BackgroundTask wraps a detached task with a cancel handle. Cancellation
// is cooperative: the wrapped function is expected to watch ctx.Done and
// return at its own next suspension point, not be forcibly aborted.
// Dropping a BackgroundTask without calling Cancel does not stop the task.
type BackgroundTask struct {
	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan struct{}
}

// Detach spawns fn on ex's worker goroutine, supervising it with a select
// against the returned handle's cancel signal -- one supervisor task per
// background task, matching the adapter-task shape used throughout. If ex
// rejects the spawn outright (a capacity-bounded Executor at full load),
// Done closes immediately rather than hanging forever.
func Detach(ex Executor, label string, fn func(ctx context.Context) error) *BackgroundTask {
	bt := &BackgroundTask{
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
	h := ex.Spawn(NewNamedTask(label, func(context.Context) error {
		defer close(bt.done)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		result := make(chan error, 1)
		go func() { result <- fn(ctx) }()

		select {
		case <-result:
		case <-bt.cancelCh:
			cancel()
			<-result
		}
		return nil
	}))
	go func() {
		<-h.Done()
		if h.Err() != nil {
			// Spawn itself rejected the task (never ran), so bt.done was
			// never closed by the task body above; close it here instead.
			select {
			case <-bt.done:
			default:
				close(bt.done)
			}
		}
	}()
	return bt
}

// Cancel requests cooperative cancellation. Idempotent.
func (bt *BackgroundTask) Cancel() {
	bt.cancelOnce.Do(func() { close(bt.cancelCh) })
}

// Done reports completion of the supervised task (via cancellation or
// natural return).
func (bt *BackgroundTask) Done() <-chan struct{} { return bt.done }
