package testharness

import (
	"context"
	"fmt"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/machine"
)

// DaisyChainConfig parameterizes a linear chain of Forwarders.
type DaisyChainConfig struct {
	MachineCount   int
	MessageCount   int
	Multiplier     int
	MailboxCapacity int // 0 means unbounded
}

// DaisyChain wires MachineCount Forwarders into a line, each feeding the
// next with ForwardingMultiplier(Multiplier). Running it injects
// TestData(0..MessageCount) into the head and blocks until the tail's
// notifier fires.
type DaisyChain struct {
	cfg     DaisyChainConfig
	heads   []*Forwarder
	headIn  concurrency.Sender[ForwarderCmd]
	compOut concurrency.Receiver[ForwarderCmd]
}

// ExpectedTailCount is message_count * multiplier^(machineCount-1), the
// value every forwarder's received count converges toward scaled by its
// position (see spec property 3).
func (cfg DaisyChainConfig) ExpectedTailCount() int {
	total := cfg.MessageCount
	for i := 1; i < cfg.MachineCount; i++ {
		total *= cfg.Multiplier
	}
	return total
}

// NewDaisyChain constructs and wires the chain on pool, but does not yet
// inject any messages.
func NewDaisyChain(pool *concurrency.ExecutorPool, cfg DaisyChainConfig) *DaisyChain {
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 1
	}

	forwarders := make([]*Forwarder, cfg.MachineCount)
	senders := make([]concurrency.Sender[ForwarderCmd], cfg.MachineCount)
	for i := range forwarders {
		forwarders[i] = NewForwarder()
		var handle machine.Handle[ForwarderCmd]
		if cfg.MailboxCapacity > 0 {
			handle = machine.CreateWithCapacity[ForwarderCmd](pool.GetExecutor(), forwarders[i], cfg.MailboxCapacity)
		} else {
			handle = machine.CreateUnbounded[ForwarderCmd](pool.GetExecutor(), forwarders[i])
		}
		senders[i] = handle.Sender
	}

	ctx := context.Background()
	for i := 0; i < cfg.MachineCount-1; i++ {
		senders[i].Send(ctx, AddSender{Sender: senders[i+1]})
		senders[i].Send(ctx, ForwardingMultiplier{N: cfg.Multiplier})
	}

	completion := concurrency.NewBounded[ForwarderCmd](1)
	senders[cfg.MachineCount-1].Send(ctx, Notify{Sender: completion.Sender(), TargetCount: cfg.ExpectedTailCount()})

	return &DaisyChain{
		cfg:     cfg,
		heads:   forwarders,
		headIn:  senders[0],
		compOut: completion.Receiver(),
	}
}

// Run injects MessageCount TestData messages into the head and blocks until
// the tail's completion notification arrives.
func (dc *DaisyChain) Run(ctx context.Context) error {
	for i := 0; i < dc.cfg.MessageCount; i++ {
		if err := dc.headIn.Send(ctx, TestData{Seq: i}); err != nil {
			return fmt.Errorf("testharness: daisy chain injection failed at seq %d: %w", i, err)
		}
	}
	_, err := dc.compOut.Recv(ctx)
	return err
}

// ReceivedCounts returns each forwarder's received count, in chain order.
func (dc *DaisyChain) ReceivedCounts() []int {
	counts := make([]int, len(dc.heads))
	for i, f := range dc.heads {
		counts[i] = f.ReceivedCount()
	}
	return counts
}
