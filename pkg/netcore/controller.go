package netcore

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/coactor/machine/pkg/concurrency"
	"github.com/coactor/machine/pkg/logging"
)

const readBufferSize = 1024

// Tracer, when non-nil, wraps every NetController.handle call in a span
// named after the NetCmd variant it dispatched. Nil (no tracing) until
// something sets it, e.g. pkg/tracing.Init.
var Tracer trace.Tracer

type serverEntry struct {
	addr     string
	listener net.Listener
	bg       *concurrency.BackgroundTask
}

type connEntry struct {
	conn       net.Conn
	listenerTo concurrency.Sender[NetCmd]
	appTo      concurrency.Sender[NetCmd]
	hasApp     bool
	reader     *concurrency.BackgroundTask
}

// NetController owns every listener and connection behind a NetCmd command
// mailbox. Slab mutations are serialized inside the slab itself (a mutex
// standing in for the single-controller-goroutine exclusivity the design
// describes); listener and reader background tasks call back into the
// controller's helper methods rather than touching the slabs directly.
type NetController struct {
	cmds    concurrency.Receiver[NetCmd]
	servers *slab[*serverEntry]
	conns   *slab[*connEntry]
	ex      concurrency.Executor
	logger  logging.Logger

	bytesRecv atomic.Int64
	bytesSent atomic.Int64
}

func newController(cmds concurrency.Receiver[NetCmd], ex concurrency.Executor, logger logging.Logger) *NetController {
	if logger == nil {
		logger = logging.Default
	}
	return &NetController{
		cmds:    cmds,
		servers: newSlab[*serverEntry](),
		conns:   newSlab[*connEntry](),
		ex:      ex,
		logger:  logger,
	}
}

// run drains the command mailbox until it closes, then tears down every
// listener and connection the controller still owns.
func (c *NetController) run(ctx context.Context) {
	for {
		cmd, err := c.cmds.Recv(ctx)
		if err != nil {
			break
		}
		if _, isStop := cmd.(Stop); isStop {
			break
		}
		c.handle(ctx, cmd)
	}
	c.shutdown()
}

func (c *NetController) handle(ctx context.Context, cmd NetCmd) {
	if Tracer != nil {
		var span trace.Span
		ctx, span = Tracer.Start(ctx, fmt.Sprintf("netcore.%T", cmd))
		defer span.End()
	}
	switch v := cmd.(type) {
	case BindTCPListener:
		c.bindTCPListener(ctx, v)
	case BindUDPListener:
		c.logger.Debugf("BindUDPListener(%s) ignored: reserved, not required for v1", v.Addr)
	case BindConn:
		c.bindConn(ctx, v)
	case SendBytes:
		c.sendBytes(v)
	case SendPkt:
		c.logger.Debugf("SendPkt(%d) ignored: reserved, not required for v1", v.ConnID)
	case CloseConn:
		c.closeConn(v.ConnID)
	default:
		c.logger.Warnf("unrecognized NetCmd %T", cmd)
	}
}

func (c *NetController) bindTCPListener(ctx context.Context, cmd BindTCPListener) {
	ln, err := net.Listen("tcp", cmd.Addr)
	if err != nil {
		c.logger.Errorf("bind %s: %v", cmd.Addr, err)
		return
	}

	key := c.servers.Insert(&serverEntry{addr: cmd.Addr, listener: ln})
	bg := concurrency.Detach(c.ex, "netcore-listener", func(taskCtx context.Context) error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return nil
			}
			c.accept(taskCtx, conn, cmd.ReplyTo)
		}
	})
	c.servers.Update(key, func(s *serverEntry) { s.bg = bg })
}

func (c *NetController) accept(ctx context.Context, conn net.Conn, replyTo concurrency.Sender[NetCmd]) {
	connKey := c.conns.Insert(&connEntry{conn: conn, listenerTo: replyTo})
	err := replyTo.Send(ctx, NewConn{ConnID: NetConnID(connKey), Local: conn.LocalAddr(), Remote: conn.RemoteAddr()})
	if err != nil {
		// Race-and-close: if the listener's owner can't be notified (its
		// mailbox is closed, e.g. the owning service hasn't reached
		// Running yet), the connection is simply closed rather than kept
		// alive with nowhere to deliver its bytes.
		conn.Close()
		c.conns.Remove(connKey)
	}
}

func (c *NetController) bindConn(ctx context.Context, cmd BindConn) {
	entry, ok := c.conns.Get(int(cmd.ConnID))
	if !ok {
		return
	}
	c.conns.Update(int(cmd.ConnID), func(e *connEntry) {
		e.appTo = cmd.ReplyTo
		e.hasApp = true
	})

	reader := concurrency.Detach(c.ex, "netcore-reader", func(taskCtx context.Context) error {
		buf := make([]byte, readBufferSize)
		for {
			n, err := entry.conn.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				c.bytesRecv.Add(int64(n))
				if sendErr := cmd.ReplyTo.Send(taskCtx, RecvBytes{ConnID: cmd.ConnID, Bytes: chunk}); sendErr != nil {
					c.closeConn(cmd.ConnID)
					return nil
				}
			}
			if err != nil {
				c.closeConn(cmd.ConnID)
				return nil
			}
		}
	})
	c.conns.Update(int(cmd.ConnID), func(e *connEntry) { e.reader = reader })
}

func (c *NetController) sendBytes(cmd SendBytes) {
	entry, ok := c.conns.Get(int(cmd.ConnID))
	if !ok {
		return
	}
	remaining := cmd.Bytes
	for len(remaining) > 0 {
		n, err := entry.conn.Write(remaining)
		c.bytesSent.Add(int64(n))
		if err != nil {
			c.closeConn(cmd.ConnID)
			return
		}
		remaining = remaining[n:]
	}
}

func (c *NetController) closeConn(id NetConnID) {
	entry, ok := c.conns.Remove(int(id))
	if !ok {
		return
	}
	if entry.reader != nil {
		entry.reader.Cancel()
	}
	entry.conn.Close()

	ctx := context.Background()
	if entry.hasApp {
		_ = entry.appTo.Send(ctx, CloseConn{ConnID: id})
	}
	_ = entry.listenerTo.Send(ctx, CloseConn{ConnID: id})
}

func (c *NetController) shutdown() {
	c.servers.Each(func(_ int, s *serverEntry) {
		s.listener.Close()
		if s.bg != nil {
			s.bg.Cancel()
		}
	})
	c.conns.Each(func(key int, e *connEntry) {
		if e.reader != nil {
			e.reader.Cancel()
		}
		e.conn.Close()
	})
}

// ConnCount reports the number of live connections, the basis for the
// service layer's is_drained() check.
func (c *NetController) ConnCount() int {
	return c.conns.Len()
}

// TrafficStats reports cumulative bytes received from and sent to every
// connection the controller has ever owned.
func (c *NetController) TrafficStats() (recv, sent int64) {
	return c.bytesRecv.Load(), c.bytesSent.Load()
}
