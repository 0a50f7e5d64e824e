// Package machine implements the actor ("machine") model: objects driven by
// one or more typed mailboxes, each mailbox served by its own adapter task,
// with outgoing sends batched into an OutboundBuffer and flushed after each
// receive returns.
package machine

import (
	"context"

	"github.com/google/uuid"
)

// MachineID is a machine's stable 128-bit identity, assigned at construction.
type MachineID uuid.UUID

func newMachineID() MachineID { return MachineID(uuid.New()) }

func (id MachineID) String() string { return uuid.UUID(id).String() }

// Machine is the receive contract for one instruction set I. Receive must
// not block; it records any outgoing sends into outbound instead of sending
// them directly, so the adapter can flush them as a single ordered batch.
type Machine[I any] interface {
	Receive(ctx context.Context, instr I, outbound *OutboundBuffer)
}

// Connecter is implemented by machines that want a one-time notification
// before the first Receive call on a given instruction set.
type Connecter interface {
	Connected(id MachineID)
}

// Disconnecter is implemented by machines that want a one-time notification
// once their mailbox has closed and drained.
type Disconnecter interface {
	Disconnected()
}

// outboundEntry type-erases one queued (sender, instruction) pair so that
// OutboundBuffer can hold entries from unrelated instruction-set types.
type outboundEntry interface {
	flush(ctx context.Context) error
}

// OutboundBuffer accumulates sends produced by one Receive call, in the
// order Enqueue was called, and is flushed by the adapter after Receive
// returns and before the mailbox is polled again.
type OutboundBuffer struct {
	entries []outboundEntry
}

// Clear empties the buffer; adapters call this before every Receive.
func (b *OutboundBuffer) Clear() {
	b.entries = b.entries[:0]
}

func (b *OutboundBuffer) append(e outboundEntry) {
	b.entries = append(b.entries, e)
}

// flush awaits every queued send in insertion order, so a full target
// mailbox back-pressures the machine that produced the send.
func (b *OutboundBuffer) flush(ctx context.Context) error {
	var firstErr error
	for _, e := range b.entries {
		if err := e.flush(ctx); err != nil && firstErr == nil {
			// Local-first propagation: a vanished target is swallowed, not
			// fatal to the rest of the batch.
			firstErr = err
		}
	}
	return firstErr
}
