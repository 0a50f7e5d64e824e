package concurrency

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrMailboxClosed is returned by Send/Recv once a mailbox has been
	// closed and, for Recv, fully drained.
	ErrMailboxClosed = errors.New("mailbox is closed")
	// ErrMailboxFull is returned by TrySend against a full bounded mailbox.
	ErrMailboxFull = errors.New("mailbox is full")
	// ErrMailboxEmpty is returned by TryRecv against an empty mailbox.
	ErrMailboxEmpty = errors.New("mailbox is empty")
)

// Mailbox is a multi-producer/multi-consumer FIFO of instruction values.
// Bounded mailboxes (capacity > 0) back-pressure Send when full; unbounded
// mailboxes (capacity == 0) never block on Send. Close is idempotent, wakes
// every waiter, and rejects further sends while leaving queued items
// drainable by Recv -- adapters keep delivering what was already enqueued
// before they observe the close and exit.
type Mailbox[T any] interface {
	Send(ctx context.Context, msg T) error
	TrySend(msg T) error
	Recv(ctx context.Context) (T, error)
	TryRecv() (T, error)
	Close()
	Cap() int
	Len() int
	IsClosed() bool
	Sender() Sender[T]
	Receiver() Receiver[T]
}

// Sender is a clonable handle onto a mailbox's send side.
type Sender[T any] struct{ mb Mailbox[T] }

func (s Sender[T]) Send(ctx context.Context, msg T) error { return s.mb.Send(ctx, msg) }
func (s Sender[T]) TrySend(msg T) error                   { return s.mb.TrySend(msg) }
func (s Sender[T]) Close()                                { s.mb.Close() }
func (s Sender[T]) Clone() Sender[T]                       { return s }

// Receiver is a clonable handle onto a mailbox's receive side.
type Receiver[T any] struct{ mb Mailbox[T] }

func (r Receiver[T]) Recv(ctx context.Context) (T, error) { return r.mb.Recv(ctx) }
func (r Receiver[T]) TryRecv() (T, error)                 { return r.mb.TryRecv() }
func (r Receiver[T]) Clone() Receiver[T]                  { return r }

// boundedMailbox is backed directly by a buffered channel; the channel's
// own buffer provides the bound, and a separate close signal lets Close
// wake blocked senders/receivers without closing (and thus draining) the
// data channel itself.
type boundedMailbox[T any] struct {
	ch      chan T
	closeCh chan struct{}
	once    sync.Once
	flag    boolFlag
	cap     int
}

type boolFlag struct {
	mu sync.RWMutex
	v  bool
}

func (b *boolFlag) set() {
	b.mu.Lock()
	b.v = true
	b.mu.Unlock()
}

func (b *boolFlag) get() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.v
}

// NewBounded creates a bounded Mailbox with the given capacity (minimum 1).
func NewBounded[T any](capacity int) Mailbox[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &boundedMailbox[T]{
		ch:      make(chan T, capacity),
		closeCh: make(chan struct{}),
		cap:     capacity,
	}
}

func (m *boundedMailbox[T]) Send(ctx context.Context, msg T) error {
	if m.flag.get() {
		return ErrMailboxClosed
	}
	select {
	case m.ch <- msg:
		return nil
	case <-m.closeCh:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *boundedMailbox[T]) TrySend(msg T) error {
	if m.flag.get() {
		return ErrMailboxClosed
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return ErrMailboxFull
	}
}

func (m *boundedMailbox[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case msg := <-m.ch:
		return msg, nil
	default:
	}
	select {
	case msg := <-m.ch:
		return msg, nil
	case <-m.closeCh:
		select {
		case msg := <-m.ch:
			return msg, nil
		default:
			return zero, ErrMailboxClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (m *boundedMailbox[T]) TryRecv() (T, error) {
	var zero T
	select {
	case msg := <-m.ch:
		return msg, nil
	default:
	}
	if m.flag.get() {
		return zero, ErrMailboxClosed
	}
	return zero, ErrMailboxEmpty
}

func (m *boundedMailbox[T]) Close() {
	m.once.Do(func() {
		m.flag.set()
		close(m.closeCh)
	})
}

func (m *boundedMailbox[T]) Cap() int       { return m.cap }
func (m *boundedMailbox[T]) Len() int       { return len(m.ch) }
func (m *boundedMailbox[T]) IsClosed() bool { return m.flag.get() }
func (m *boundedMailbox[T]) Sender() Sender[T]     { return Sender[T]{mb: m} }
func (m *boundedMailbox[T]) Receiver() Receiver[T] { return Receiver[T]{mb: m} }

// unboundedMailbox never blocks Send. It is implemented with the classic
// "infinite buffered channel" pump: a goroutine shuttles values from an
// unbounded in-memory slice to an outbound channel that Recv waits on.
type unboundedMailbox[T any] struct {
	in      chan T
	out     chan T
	once    sync.Once
	flag    boolFlag
}

// NewUnbounded creates an unbounded Mailbox.
func NewUnbounded[T any]() Mailbox[T] {
	m := &unboundedMailbox[T]{
		in:  make(chan T),
		out: make(chan T),
	}
	go m.pump()
	return m
}

func (m *unboundedMailbox[T]) pump() {
	in := m.in
	var queue []T
	for {
		switch {
		case len(queue) == 0 && in == nil:
			close(m.out)
			return
		case len(queue) == 0:
			v, ok := <-in
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, v)
		case in == nil:
			m.out <- queue[0]
			queue = queue[1:]
		default:
			select {
			case v, ok := <-in:
				if !ok {
					in = nil
					continue
				}
				queue = append(queue, v)
			case m.out <- queue[0]:
				queue = queue[1:]
			}
		}
	}
}

func (m *unboundedMailbox[T]) Send(ctx context.Context, msg T) error {
	if m.flag.get() {
		return ErrMailboxClosed
	}
	select {
	case m.in <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *unboundedMailbox[T]) TrySend(msg T) error {
	if m.flag.get() {
		return ErrMailboxClosed
	}
	select {
	case m.in <- msg:
		return nil
	default:
		return ErrMailboxFull
	}
}

func (m *unboundedMailbox[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case msg, ok := <-m.out:
		if !ok {
			return zero, ErrMailboxClosed
		}
		return msg, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (m *unboundedMailbox[T]) TryRecv() (T, error) {
	var zero T
	select {
	case msg, ok := <-m.out:
		if !ok {
			return zero, ErrMailboxClosed
		}
		return msg, nil
	default:
		return zero, ErrMailboxEmpty
	}
}

func (m *unboundedMailbox[T]) Close() {
	m.once.Do(func() {
		m.flag.set()
		close(m.in)
	})
}

func (m *unboundedMailbox[T]) Cap() int       { return 0 }
func (m *unboundedMailbox[T]) Len() int       { return len(m.out) }
func (m *unboundedMailbox[T]) IsClosed() bool { return m.flag.get() }
func (m *unboundedMailbox[T]) Sender() Sender[T]     { return Sender[T]{mb: m} }
func (m *unboundedMailbox[T]) Receiver() Receiver[T] { return Receiver[T]{mb: m} }
