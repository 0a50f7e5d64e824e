package testharness

import (
	"context"
	"testing"
	"time"

	"github.com/coactor/machine/pkg/concurrency"
)

// TestSmallChaosMonkey reproduces scenario S3: M=10, message_count=10,
// inflection=99. Expect sum of all forwarders' received counts to equal
// (99+1)*2*10 + 10 = 2010.
func TestSmallChaosMonkey(t *testing.T) {
	pool := concurrency.NewExecutorPool(concurrency.PoolConfig{ThreadCount: 4, BindExecutorToThread: true})
	defer pool.Shutdown(context.Background())

	cm := NewChaosMonkey(pool, ChaosMonkeyConfig{
		MachineCount: 10,
		MessageCount: 10,
		Inflection:   99,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := cm.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := (99+1)*2*10 + 10
	if got := cm.TotalReceived(); got != want {
		t.Errorf("TotalReceived() = %d, want %d", got, want)
	}
}

// TestLargeChaosMonkey reproduces scenario S4 and is skipped under -short
// (like the teacher's own large-scale tests) because it drives tens of
// millions of message propagations.
func TestLargeChaosMonkey(t *testing.T) {
	if testing.Short() {
		t.Skip("large chaos monkey (S4) skipped with -short")
	}

	pool := concurrency.NewExecutorPool(concurrency.PoolConfig{ThreadCount: 16, BindExecutorToThread: true})
	defer pool.Shutdown(context.Background())

	cm := NewChaosMonkey(pool, ChaosMonkeyConfig{
		MachineCount:    1000,
		MessageCount:    20000,
		Inflection:      999,
		MailboxCapacity: 1000,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := cm.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := (999+1)*2*20000 + 20000
	if got := cm.TotalReceived(); got != want {
		t.Fatalf("TotalReceived() = %d, want %d", got, want)
	}
}

// TestChaosMonkeyOneTerminalNotificationPerMessage checks that every
// injected message produces exactly one terminal notification: the
// completion receiver only unblocks once the notifier has counted
// MessageCount of them, and the notifier's own received count lands
// exactly on MessageCount once Run returns.
func TestChaosMonkeyOneTerminalNotificationPerMessage(t *testing.T) {
	pool := concurrency.NewExecutorPool(concurrency.PoolConfig{ThreadCount: 4, BindExecutorToThread: true})
	defer pool.Shutdown(context.Background())

	const messageCount = 50
	cm := NewChaosMonkey(pool, ChaosMonkeyConfig{
		MachineCount: 5,
		MessageCount: messageCount,
		Inflection:   7,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := cm.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := cm.notifier.ReceivedCount(); got != messageCount {
		t.Errorf("notifier.ReceivedCount() = %d, want %d", got, messageCount)
	}
}
