package testharness

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/machine"
)

// Forwarder is the test-only actor DaisyChain and ChaosMonkey are built
// from. Its mutable state is guarded by a single mutex; Receive uses
// TryLock and panics on contention, because the adapter contract guarantees
// serialized receives on one mailbox -- contention here means that
// guarantee was violated, an internal invariant failure rather than a
// recoverable error.
type Forwarder struct {
	mu sync.Mutex

	id machine.MachineID

	received   int
	sendCount  int
	multiplier int
	nextSeq    int

	senders []concurrency.Sender[ForwarderCmd]

	notifier     *concurrency.Sender[ForwarderCmd]
	notifyTarget int
}

// NewForwarder constructs a Forwarder with multiplier 1 and an empty
// downstream/notifier configuration.
func NewForwarder() *Forwarder {
	return &Forwarder{multiplier: 1, nextSeq: 1}
}

// Connected records the adapter-assigned identity.
func (f *Forwarder) Connected(id machine.MachineID) {
	f.mu.Lock()
	f.id = id
	f.mu.Unlock()
}

// ID returns the Forwarder's assigned identity (zero value before Connected
// has run).
func (f *Forwarder) ID() machine.MachineID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

// ReceivedCount returns the number of action messages accepted so far.
func (f *Forwarder) ReceivedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}

// Receive implements machine.Machine[ForwarderCmd].
func (f *Forwarder) Receive(ctx context.Context, cmd ForwarderCmd, outbound *machine.OutboundBuffer) {
	if !f.mu.TryLock() {
		panic("testharness: concurrent Forwarder.Receive (adapter serialization invariant violated)")
	}
	defer f.mu.Unlock()

	// Config commands configure state and return immediately; the notifier
	// check below only ever runs after an action (TestData/ChaosMonkeyMsg),
	// mirroring the original's handle_config/handle_action split -- a config
	// command must never itself be mistaken for the action that satisfies
	// the notify count.
	switch v := cmd.(type) {
	case AddSender:
		f.senders = append(f.senders, v.Sender)
		return
	case AddSenders:
		f.senders = append(f.senders, v.Senders...)
		return
	case RemoveAllSenders:
		f.senders = nil
		return
	case ForwardingMultiplier:
		f.multiplier = v.N
		return
	case Notify:
		sender := v.Sender
		f.notifier = &sender
		f.notifyTarget = v.TargetCount
		return
	case TestData:
		f.handleTestData(v, outbound)
	case ChaosMonkeyMsg:
		f.handleChaosMonkey(v, outbound)
	}

	if f.notifier != nil && f.received == f.notifyTarget {
		machine.Enqueue(outbound, *f.notifier, TestData{Seq: f.received})
	}
}

func (f *Forwarder) handleTestData(v TestData, outbound *machine.OutboundBuffer) {
	switch {
	case v.Seq == f.nextSeq:
		f.nextSeq++
	case v.Seq == 0:
		f.nextSeq = 1
	default:
		panic(fmt.Sprintf("testharness: Forwarder sequence violation: got %d, want %d or 0", v.Seq, f.nextSeq))
	}
	f.received++
	for _, s := range f.senders {
		for i := 0; i < f.multiplier; i++ {
			machine.Enqueue(outbound, s, TestData{Seq: f.sendCount})
			f.sendCount++
		}
	}
}

func (f *Forwarder) handleChaosMonkey(v ChaosMonkeyMsg, outbound *machine.OutboundBuffer) {
	f.received++
	if v.CanAdvance() && len(f.senders) > 0 {
		target := f.senders[rand.Intn(len(f.senders))]
		machine.Enqueue(outbound, target, v.Advance())
		return
	}
	if f.notifier != nil {
		machine.Enqueue(outbound, *f.notifier, TestData{Seq: 0})
	}
}
