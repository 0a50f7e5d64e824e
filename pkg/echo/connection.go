// Package echo implements the TCP echo service: a Controller machine that
// owns a connection registry and, per accepted connection, a Connection
// machine that mirrors every received chunk back to its sender.
package echo

import (
	"context"
	"sync"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/machine"
	"github.com/coactor/machine/pkg/netcore"
)

// Connection is a Machine[netcore.NetCmd] bound one-to-one with an accepted
// socket (via netcore.BindConn). It echoes RecvBytes back to the same
// connection as SendBytes and forgets itself from the owning Controller
// once the socket reports CloseConn.
type Connection struct {
	id        netcore.NetConnID
	netSender concurrency.Sender[netcore.NetCmd]
	onClose   func(netcore.NetConnID)

	mu     sync.Mutex
	closed bool
}

func newConnection(id netcore.NetConnID, netSender concurrency.Sender[netcore.NetCmd], onClose func(netcore.NetConnID)) *Connection {
	return &Connection{id: id, netSender: netSender, onClose: onClose}
}

// Receive implements machine.Machine[netcore.NetCmd].
func (c *Connection) Receive(ctx context.Context, instr netcore.NetCmd, outbound *machine.OutboundBuffer) {
	switch v := instr.(type) {
	case netcore.RecvBytes:
		machine.Enqueue(outbound, c.netSender, netcore.NetCmd(netcore.SendBytes{ConnID: c.id, Bytes: v.Bytes}))
	case netcore.CloseConn:
		c.markClosed()
	}
}

// Disconnected implements machine.Disconnecter, so a connection is forgotten
// from the registry even if its mailbox closes without an explicit
// CloseConn (e.g. the Controller is torn down first).
func (c *Connection) Disconnected() {
	c.markClosed()
}

func (c *Connection) markClosed() {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()
	if !already && c.onClose != nil {
		c.onClose(c.id)
	}
}
