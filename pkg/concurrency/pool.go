package concurrency

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/coactor/machine/pkg/logging"
)

// PoolConfig mirrors the boot-time choice between N independent schedulers
// and one scheduler shared by N logical workers.
type PoolConfig struct {
	// ThreadCount is the number of workers; 0 means use runtime.NumCPU().
	ThreadCount int
	// BindExecutorToThread gives every worker its own Executor. When false,
	// all workers round-robin over a single shared Executor.
	BindExecutorToThread bool
	// QueueSize bounds each Executor's concurrently running task count; 0
	// (the default) leaves it unbounded. Machines and background tasks run
	// for as long as their mailbox stays open, so a small bound here would
	// starve out everything spawned after it fills -- set this only to cap
	// a pool meant for short-lived, bursty work.
	QueueSize int
	Logger    logging.Logger
}

// ExecutorPool is the process-wide source of Executors. It is lazily
// constructed by NewExecutorPool (there is deliberately no ambient global
// singleton here -- callers inject the pool, as the design notes recommend
// for testability) and torn down by Shutdown, which closes every owned
// Executor.
type ExecutorPool struct {
	executors []Executor
	counter   atomic.Uint64
	logger    logging.Logger
}

// NewExecutorPool builds a pool per config.
func NewExecutorPool(config PoolConfig) *ExecutorPool {
	n := config.ThreadCount
	if n <= 0 {
		n = runtime.NumCPU()
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Default
	}

	pool := &ExecutorPool{logger: logger}
	if config.BindExecutorToThread {
		pool.executors = make([]Executor, n)
		for i := range pool.executors {
			pool.executors[i] = NewExecutor(config.QueueSize, logger)
		}
	} else {
		shared := NewExecutor(config.QueueSize, logger)
		pool.executors = make([]Executor, n)
		for i := range pool.executors {
			pool.executors[i] = shared
		}
	}
	return pool
}

// GetExecutor returns the pool's next Executor via round-robin selection.
func (p *ExecutorPool) GetExecutor() Executor {
	idx := p.counter.Add(1) - 1
	return p.executors[int(idx)%len(p.executors)]
}

// Size reports the configured pool width.
func (p *ExecutorPool) Size() int { return len(p.executors) }

// AllStats snapshots every distinct Executor the pool owns, keyed by its
// slot index (shared executors in unbound mode collapse to one entry under
// their first index). Intended for periodic metrics/admin sampling.
func (p *ExecutorPool) AllStats() map[string]ExecutorStats {
	seen := make(map[Executor]string, len(p.executors))
	out := make(map[string]ExecutorStats, len(p.executors))
	for i, ex := range p.executors {
		if label, ok := seen[ex]; ok {
			_ = label
			continue
		}
		label := fmt.Sprintf("executor-%d", i)
		seen[ex] = label
		out[label] = ex.Stats()
	}
	return out
}

// Shutdown stops every distinct Executor owned by the pool.
func (p *ExecutorPool) Shutdown(ctx context.Context) error {
	seen := make(map[Executor]bool, len(p.executors))
	for _, ex := range p.executors {
		if seen[ex] {
			continue
		}
		seen[ex] = true
		if err := ex.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
