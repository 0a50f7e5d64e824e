package netcore

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/coactor/machine/pkg/concurrency"
)

func newTestCore(t *testing.T) (*NetCore, concurrency.Executor) {
	t.Helper()
	ex := concurrency.NewExecutor(32, nil)
	t.Cleanup(func() { ex.Shutdown(context.Background()) })
	nc := New(nil)
	nc.Start(ex)
	t.Cleanup(nc.Stop)
	return nc, ex
}

func TestGetSenderBeforeStartIsClosed(t *testing.T) {
	nc := New(nil)
	sender := nc.GetSender()
	if err := sender.Send(context.Background(), Stop{}); err != concurrency.ErrMailboxClosed {
		t.Errorf("GetSender() before Start should return a closed sender, got err=%v", err)
	}
}

func TestCloseConnEvictsSlabEntry(t *testing.T) {
	nc, _ := newTestCore(t)
	ctx := context.Background()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	events := concurrency.NewUnbounded[NetCmd]()
	eventsTo := events.Sender()
	eventsFrom := events.Receiver()

	if err := nc.GetSender().Send(ctx, BindTCPListener{Addr: addr, ReplyTo: eventsTo}); err != nil {
		t.Fatalf("BindTCPListener send error = %v", err)
	}

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		conn, err := dialWithRetry(addr)
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(50 * time.Millisecond)
	}()
	<-clientDone

	evt, err := eventsFrom.Recv(withTimeout(t, time.Second))
	if err != nil {
		t.Fatalf("Recv() NewConn error = %v", err)
	}
	newConn, ok := evt.(NewConn)
	if !ok {
		t.Fatalf("got %T, want NewConn", evt)
	}

	if nc.ConnCount() != 1 {
		t.Errorf("ConnCount() = %d, want 1", nc.ConnCount())
	}

	if err := nc.GetSender().Send(ctx, CloseConn{ConnID: newConn.ConnID}); err != nil {
		t.Fatalf("CloseConn send error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for nc.ConnCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if nc.ConnCount() != 0 {
		t.Errorf("ConnCount() after CloseConn = %d, want 0", nc.ConnCount())
	}
}

func dialWithRetry(addr string) (net.Conn, error) {
	var lastErr error
	for i := 0; i < 20; i++ {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(5 * time.Millisecond)
	}
	return nil, lastErr
}

func withTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func TestBindConnDeliversRecvBytesAndSendBytesWrites(t *testing.T) {
	nc, _ := newTestCore(t)
	ctx := context.Background()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	listenerEvents := concurrency.NewUnbounded[NetCmd]()
	appEvents := concurrency.NewUnbounded[NetCmd]()

	if err := nc.GetSender().Send(ctx, BindTCPListener{Addr: addr, ReplyTo: listenerEvents.Sender()}); err != nil {
		t.Fatalf("BindTCPListener send error = %v", err)
	}

	clientConnCh := make(chan net.Conn, 1)
	go func() {
		conn, err := dialWithRetry(addr)
		if err == nil {
			clientConnCh <- conn
		}
	}()
	client := <-clientConnCh
	defer client.Close()

	evt, err := listenerEvents.Receiver().Recv(withTimeout(t, time.Second))
	if err != nil {
		t.Fatalf("Recv() NewConn error = %v", err)
	}
	newConn := evt.(NewConn)

	if err := nc.GetSender().Send(ctx, BindConn{ConnID: newConn.ConnID, ReplyTo: appEvents.Sender()}); err != nil {
		t.Fatalf("BindConn send error = %v", err)
	}

	payload := []byte("hello machine")
	if _, err := client.Write(payload); err != nil {
		t.Fatalf("client write: %v", err)
	}

	recvEvt, err := appEvents.Receiver().Recv(withTimeout(t, time.Second))
	if err != nil {
		t.Fatalf("Recv() RecvBytes error = %v", err)
	}
	recv, ok := recvEvt.(RecvBytes)
	if !ok || string(recv.Bytes) != string(payload) {
		t.Fatalf("got %#v, want RecvBytes(%q)", recvEvt, payload)
	}

	if err := nc.GetSender().Send(ctx, SendBytes{ConnID: newConn.ConnID, Bytes: payload}); err != nil {
		t.Fatalf("SendBytes send error = %v", err)
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, len(payload))
	if _, err := client.Read(buf); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if string(buf) != string(payload) {
		t.Errorf("client read %q, want %q", buf, payload)
	}
}

func TestSlabReusesEvictedKeys(t *testing.T) {
	s := newSlab[int]()
	a := s.Insert(1)
	s.Insert(2)
	s.Remove(a)
	b := s.Insert(3)
	if b != a {
		t.Errorf("Insert() after Remove() = %d, want reused key %d", b, a)
	}
}
