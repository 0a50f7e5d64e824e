package echo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/machine"
	"github.com/coactor/machine/pkg/netcore"
)

// ConnEvent is a connection lifecycle notification published for the admin
// diagnostic stream.
type ConnEvent struct {
	Type   string // "new", "refused" or "closed"
	ConnID int
}

// Controller is the listener-owning Machine[netcore.NetCmd]: it receives
// NewConn for every accepted socket, spawns a Connection machine for it,
// binds the two together through netcore, and keeps a registry mapping
// live connection ids to their Connection's Sender so the service layer
// can report connection counts without reaching into netcore directly.
type Controller struct {
	pool      *concurrency.ExecutorPool
	netSender concurrency.Sender[netcore.NetCmd]
	events    chan ConnEvent
	draining  atomic.Bool

	mu    sync.Mutex
	conns map[netcore.NetConnID]concurrency.Sender[netcore.NetCmd]
}

// NewController constructs an unbound Controller. netSender is NetCore's
// command sender (see netcore.NetCore.GetSender).
func NewController(pool *concurrency.ExecutorPool, netSender concurrency.Sender[netcore.NetCmd]) *Controller {
	return &Controller{
		pool:      pool,
		netSender: netSender,
		conns:     make(map[netcore.NetConnID]concurrency.Sender[netcore.NetCmd]),
		events:    make(chan ConnEvent, 256),
	}
}

// Events returns the Controller's connection lifecycle feed. Sends onto it
// never block the Receive loop: a slow or absent subscriber just misses
// events rather than stalling netcore command dispatch.
func (c *Controller) Events() <-chan ConnEvent { return c.events }

func (c *Controller) publish(evt ConnEvent) {
	select {
	case c.events <- evt:
	default:
	}
}

// Bind starts a new adapter driving this Controller and requests a TCP
// listener at addr, routing accepted connections back to it. Every call
// starts another adapter; an adapter from an earlier call is not reused.
func (c *Controller) Bind(ctx context.Context, addr string) error {
	handle := machine.Create[netcore.NetCmd](c.pool.GetExecutor(), c)
	if err := c.netSender.Send(ctx, netcore.NetCmd(netcore.BindTCPListener{Addr: addr, ReplyTo: handle.Sender})); err != nil {
		return fmt.Errorf("echo: bind %s: %w", addr, err)
	}
	return nil
}

// SetDraining toggles whether newly accepted connections are refused. Once
// draining, NewConn no longer binds a Connection machine -- the accepted
// socket is closed immediately instead -- while connections already bound
// keep running untouched, per the Draining state's contract.
func (c *Controller) SetDraining(v bool) { c.draining.Store(v) }

// Receive implements machine.Machine[netcore.NetCmd].
func (c *Controller) Receive(ctx context.Context, instr netcore.NetCmd, outbound *machine.OutboundBuffer) {
	switch v := instr.(type) {
	case netcore.NewConn:
		if c.draining.Load() {
			machine.Enqueue(outbound, c.netSender, netcore.NetCmd(netcore.CloseConn{ConnID: v.ConnID}))
			c.publish(ConnEvent{Type: "refused", ConnID: int(v.ConnID)})
			return
		}
		conn := newConnection(v.ConnID, c.netSender, c.forget)
		connHandle := machine.CreateUnbounded[netcore.NetCmd](c.pool.GetExecutor(), conn)
		c.register(v.ConnID, connHandle.Sender)
		machine.Enqueue(outbound, c.netSender, netcore.NetCmd(netcore.BindConn{ConnID: v.ConnID, ReplyTo: connHandle.Sender}))
		c.publish(ConnEvent{Type: "new", ConnID: int(v.ConnID)})
	case netcore.CloseConn:
		c.forget(v.ConnID)
		c.publish(ConnEvent{Type: "closed", ConnID: int(v.ConnID)})
	}
}

func (c *Controller) register(id netcore.NetConnID, s concurrency.Sender[netcore.NetCmd]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[id] = s
}

func (c *Controller) forget(id netcore.NetConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, id)
}

// ConnCount reports the number of connections this Controller currently
// tracks in its own registry (may briefly exceed netcore's own count after
// netcore evicts a connection and before the resulting CloseConn reaches
// this Controller).
func (c *Controller) ConnCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}
