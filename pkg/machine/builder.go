package machine

import (
	"sync/atomic"

	"github.com/coactor/machine/pkg/concurrency"
)

// defaultChannelMax is the process-wide, atomically-updated default bounded
// mailbox capacity consumed by Create (but not CreateWithCapacity).
var defaultChannelMax atomic.Int64

func init() {
	defaultChannelMax.Store(100)
}

// SetDefaultChannelMax updates the capacity used by future Create/Extend
// calls. It does not affect mailboxes already constructed.
func SetDefaultChannelMax(n int) {
	defaultChannelMax.Store(int64(n))
}

// DefaultChannelMax returns the current default bounded mailbox capacity.
func DefaultChannelMax() int {
	return int(defaultChannelMax.Load())
}

// Handle is what the builder hands back for a freshly constructed machine:
// its identity and a Sender for its primary instruction set. The machine
// itself stays alive as long as any Sender or Adapter referencing it does
// (ordinary Go GC reachability plays the role of the design's
// shared-refcount actor lifetime).
type Handle[I any] struct {
	ID      MachineID
	Sender  concurrency.Sender[I]
	adapter *Adapter[I]
}

// Cancel tears down the adapter driving this instruction set. Other
// adapters extending the same actor are unaffected.
func (h Handle[I]) Cancel() { h.adapter.Cancel() }

// Done reports when this instruction set's adapter has exited.
func (h Handle[I]) Done() <-chan struct{} { return h.adapter.Done() }

// Create constructs a machine's primary instruction set with a bounded
// mailbox of the current default capacity.
func Create[I any](ex concurrency.Executor, m Machine[I]) Handle[I] {
	return CreateWithCapacity(ex, m, DefaultChannelMax())
}

// CreateWithCapacity is Create with an explicit bounded mailbox capacity.
func CreateWithCapacity[I any](ex concurrency.Executor, m Machine[I], capacity int) Handle[I] {
	mb := concurrency.NewBounded[I](capacity)
	id := newMachineID()
	adapter := startAdapter(ex, id, m, mb.Receiver())
	return Handle[I]{ID: id, Sender: mb.Sender(), adapter: adapter}
}

// CreateUnbounded constructs a machine's primary instruction set with an
// unbounded mailbox.
func CreateUnbounded[I any](ex concurrency.Executor, m Machine[I]) Handle[I] {
	mb := concurrency.NewUnbounded[I]()
	id := newMachineID()
	adapter := startAdapter(ex, id, m, mb.Receiver())
	return Handle[I]{ID: id, Sender: mb.Sender(), adapter: adapter}
}

// Extend adds a second (or subsequent) instruction set to an existing
// actor, identified by the same MachineID, with its own adapter task and
// mailbox. Only the new Sender is returned -- the caller already holds
// whatever it needs for the first instruction set.
func Extend[J any](ex concurrency.Executor, id MachineID, m Machine[J]) concurrency.Sender[J] {
	return ExtendWithCapacity(ex, id, m, DefaultChannelMax())
}

// ExtendWithCapacity is Extend with an explicit bounded mailbox capacity.
func ExtendWithCapacity[J any](ex concurrency.Executor, id MachineID, m Machine[J], capacity int) concurrency.Sender[J] {
	mb := concurrency.NewBounded[J](capacity)
	startAdapter(ex, id, m, mb.Receiver())
	return mb.Sender()
}

// ExtendUnbounded is Extend with an unbounded mailbox.
func ExtendUnbounded[J any](ex concurrency.Executor, id MachineID, m Machine[J]) concurrency.Sender[J] {
	mb := concurrency.NewUnbounded[J]()
	startAdapter(ex, id, m, mb.Receiver())
	return mb.Sender()
}
