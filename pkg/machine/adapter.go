package machine

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/coactor/machine/pkg/concurrency"
)

// Tracer, when non-nil, wraps every adapter's Receive call in a span named
// "machine.Receive". It is nil (no tracing) until something sets it,
// e.g. pkg/tracing.Init.
var Tracer trace.Tracer

// Adapter binds one Machine[I], one Mailbox[I] receiver, and one Executor,
// driving the contract from the design: Connected once, serial Receive per
// item, OutboundBuffer flushed between receives, Disconnected once on
// close-and-drain.
type Adapter[I any] struct {
	id MachineID
	bg *concurrency.BackgroundTask
}

// ID returns the identity of the machine this adapter drives.
func (a *Adapter[I]) ID() MachineID { return a.id }

// Cancel requests cooperative shutdown of the adapter's driver task.
func (a *Adapter[I]) Cancel() { a.bg.Cancel() }

// Done reports when the driver task has exited.
func (a *Adapter[I]) Done() <-chan struct{} { return a.bg.Done() }

// startAdapter launches the driver loop for one (machine, instruction-set)
// pair on ex, reusing id so multiple adapters on the same underlying actor
// (see Extend) share one identity.
func startAdapter[I any](ex concurrency.Executor, id MachineID, m Machine[I], recv concurrency.Receiver[I]) *Adapter[I] {
	bg := concurrency.Detach(ex, "machine-adapter", func(ctx context.Context) error {
		if c, ok := any(m).(Connecter); ok {
			c.Connected(id)
		}

		var outbound OutboundBuffer
		for {
			instr, err := recv.Recv(ctx)
			if err != nil {
				break
			}
			outbound.Clear()
			receiveCtx := ctx
			var span trace.Span
			if Tracer != nil {
				receiveCtx, span = Tracer.Start(ctx, "machine.Receive")
			}
			m.Receive(receiveCtx, instr, &outbound)
			if span != nil {
				span.End()
			}
			_ = outbound.flush(ctx)
		}

		if d, ok := any(m).(Disconnecter); ok {
			d.Disconnected()
		}
		return nil
	})
	return &Adapter[I]{id: id, bg: bg}
}
