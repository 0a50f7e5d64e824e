package netcore

import (
	"net"

	"github.com/coactor/machine/pkg/concurrency"
)

// NetConnID is a slab-backed handle to a live connection. Keys are reused
// only after their entry has been evicted.
type NetConnID int

// NetCmd is the open sum type NetController understands. It is modeled as
// an interface with concrete variant structs rather than a closed enum,
// the idiomatic Go substitute for an "open sum type" -- new variants can be
// added by any package without modifying this one.
type NetCmd interface {
	isNetCmd()
}

type netCmdBase struct{}

func (netCmdBase) isNetCmd() {}

// BindTCPListener requests a new TCP listener at addr; accepted
// connections are announced to replyTo as NewConn.
type BindTCPListener struct {
	netCmdBase
	Addr    string
	ReplyTo concurrency.Sender[NetCmd]
}

// BindUDPListener is reserved; not required for v1.
type BindUDPListener struct {
	netCmdBase
	Addr    string
	ReplyTo concurrency.Sender[NetCmd]
}

// BindConn attaches a reader task to an already-accepted connection,
// forwarding RecvBytes to replyTo.
type BindConn struct {
	netCmdBase
	ConnID  NetConnID
	ReplyTo concurrency.Sender[NetCmd]
}

// NewConn notifies a listener's owner that a connection was accepted.
type NewConn struct {
	netCmdBase
	ConnID NetConnID
	Local  net.Addr
	Remote net.Addr
}

// RecvBytes delivers one chunk read from a connection.
type RecvBytes struct {
	netCmdBase
	ConnID NetConnID
	Bytes  []byte
}

// SendBytes requests that bytes be written to a connection, resuming
// across partial writes.
type SendBytes struct {
	netCmdBase
	ConnID NetConnID
	Bytes  []byte
}

// SendPkt is reserved for UDP sends; not required for v1.
type SendPkt struct {
	netCmdBase
	ConnID NetConnID
	Addr   net.Addr
	Bytes  []byte
}

// CloseConn cancels a connection's reader, shuts down its socket, and frees
// its slab entry. Valid both as an inbound request and an outbound event.
type CloseConn struct {
	netCmdBase
	ConnID NetConnID
}

// Stop terminates the controller.
type Stop struct {
	netCmdBase
}
