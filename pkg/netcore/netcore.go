// Package netcore implements the network subsystem: a NetCore that owns
// listeners and connections behind a NetCmd command protocol, keyed by
// slab-stable integer ids.
package netcore

import (
	"context"
	"sync"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/logging"
)

type coreState int32

const (
	stateUninitialized coreState = iota
	stateRunning
	stateStopped
)

// NetCore is in one of three sub-states: Uninitialized, Running (owns a
// live NetCmd command sender), Stopped. The package keeps no global
// instance: every New call returns an independent NetCore, and callers
// pass it to whatever needs it.
type NetCore struct {
	mu         sync.Mutex
	state      coreState
	cmdMailbox concurrency.Mailbox[NetCmd]
	controller *NetController
	logger     logging.Logger
}

// New constructs an unstarted NetCore.
func New(logger logging.Logger) *NetCore {
	if logger == nil {
		logger = logging.Default
	}
	return &NetCore{logger: logger}
}

// Start transitions Uninitialized -> Running, spawning the NetController
// task on ex. Calling Start on an already-Running core is a no-op.
func (nc *NetCore) Start(ex concurrency.Executor) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.state == stateRunning {
		return
	}
	mb := concurrency.NewUnbounded[NetCmd]()
	controller := newController(mb.Receiver(), ex, nc.logger)
	concurrency.Detach(ex, "netcore-controller", func(ctx context.Context) error {
		controller.run(ctx)
		return nil
	})

	nc.cmdMailbox = mb
	nc.controller = controller
	nc.state = stateRunning
}

// Stop closes the command channel, causing the controller to tear down
// every listener and connection and exit.
func (nc *NetCore) Stop() {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.state != stateRunning {
		return
	}
	nc.cmdMailbox.Close()
	nc.state = stateStopped
}

// GetSender returns the live command sender while Running, or an
// already-closed disposable sender otherwise. This is what turns "a
// connection raced Start" into an ordinary send failure instead of a
// special case: any NewConn notification routed through a sender obtained
// before Running simply fails and the connection is closed (see
// NetController.accept).
func (nc *NetCore) GetSender() concurrency.Sender[NetCmd] {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.state == stateRunning {
		return nc.cmdMailbox.Sender()
	}
	disposable := concurrency.NewBounded[NetCmd](1)
	disposable.Close()
	return disposable.Sender()
}

// ConnCount reports the number of connections the controller currently
// owns, or 0 if the core was never started.
func (nc *NetCore) ConnCount() int {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.controller == nil {
		return 0
	}
	return nc.controller.ConnCount()
}

// TrafficStats reports cumulative bytes moved through the controller, or
// (0, 0) if the core was never started.
func (nc *NetCore) TrafficStats() (recv, sent int64) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.controller == nil {
		return 0, 0
	}
	return nc.controller.TrafficStats()
}

// IsRunning reports whether the core is ready to accept commands.
func (nc *NetCore) IsRunning() bool {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.state == stateRunning
}
