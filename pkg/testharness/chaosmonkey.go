package testharness

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/machine"
)

// ChaosMonkeyConfig parameterizes a fully-connected mesh of Forwarders plus
// one counting notifier.
type ChaosMonkeyConfig struct {
	MachineCount    int
	MessageCount    int
	Inflection      int
	MailboxCapacity int // 0 means unbounded
}

// ChaosMonkey wires MachineCount Forwarders into a complete mesh (every
// forwarder can send to every other) and a notifier Forwarder that counts
// per-message terminal notifications up to MessageCount before signaling
// completion.
type ChaosMonkey struct {
	cfg      ChaosMonkeyConfig
	mesh     []*Forwarder
	notifier *Forwarder
	meshIn   []concurrency.Sender[ForwarderCmd]
	compOut  concurrency.Receiver[ForwarderCmd]
}

// NewChaosMonkey constructs and wires the mesh on pool.
func NewChaosMonkey(pool *concurrency.ExecutorPool, cfg ChaosMonkeyConfig) *ChaosMonkey {
	mesh := make([]*Forwarder, cfg.MachineCount)
	senders := make([]concurrency.Sender[ForwarderCmd], cfg.MachineCount)
	for i := range mesh {
		mesh[i] = NewForwarder()
		var handle machine.Handle[ForwarderCmd]
		if cfg.MailboxCapacity > 0 {
			handle = machine.CreateWithCapacity[ForwarderCmd](pool.GetExecutor(), mesh[i], cfg.MailboxCapacity)
		} else {
			handle = machine.CreateUnbounded[ForwarderCmd](pool.GetExecutor(), mesh[i])
		}
		senders[i] = handle.Sender
	}

	notifier := NewForwarder()
	notifierHandle := machine.CreateUnbounded[ForwarderCmd](pool.GetExecutor(), notifier)

	ctx := context.Background()
	for i, s := range senders {
		s.Send(ctx, AddSenders{Senders: senders})
		s.Send(ctx, Notify{Sender: notifierHandle.Sender, TargetCount: 0})
		_ = i
	}

	completion := concurrency.NewBounded[ForwarderCmd](1)
	notifierHandle.Sender.Send(ctx, Notify{Sender: completion.Sender(), TargetCount: cfg.MessageCount})

	return &ChaosMonkey{
		cfg:      cfg,
		mesh:     mesh,
		notifier: notifier,
		meshIn:   senders,
		compOut:  completion.Receiver(),
	}
}

// Run injects MessageCount fresh ChaosMonkeyMsg{0, Inflection, Increment}
// messages into uniformly-random mesh members and blocks until the
// notifier reports MessageCount terminal notifications.
func (cm *ChaosMonkey) Run(ctx context.Context) error {
	for i := 0; i < cm.cfg.MessageCount; i++ {
		target := cm.meshIn[rand.Intn(len(cm.meshIn))]
		msg := ChaosMonkeyMsg{Counter: 0, Max: cm.cfg.Inflection, Mutation: Increment}
		if err := target.Send(ctx, msg); err != nil {
			return fmt.Errorf("testharness: chaos monkey injection %d failed: %w", i, err)
		}
	}
	_, err := cm.compOut.Recv(ctx)
	return err
}

// TotalReceived sums every mesh forwarder's received count (spec property
// S3/S4: (inflection+1)*2*message_count + message_count).
func (cm *ChaosMonkey) TotalReceived() int {
	total := 0
	for _, f := range cm.mesh {
		total += f.ReceivedCount()
	}
	return total
}
