// Package testharness implements the Forwarder test actor and the
// DaisyChain / ChaosMonkey drivers that exercise it, reproducing the
// throughput and termination invariants the machine runtime promises.
package testharness

import "github.com/coactor/machine/pkg/concurrency"

// ForwarderCmd is the instruction set every Forwarder understands: a mix of
// configuration messages and the two action messages, TestData and
// ChaosMonkeyMsg.
type ForwarderCmd interface {
	isForwarderCmd()
}

type forwarderCmdBase struct{}

func (forwarderCmdBase) isForwarderCmd() {}

// AddSender appends one downstream sender.
type AddSender struct {
	forwarderCmdBase
	Sender concurrency.Sender[ForwarderCmd]
}

// AddSenders appends many downstream senders at once (used to wire a
// fully-connected mesh).
type AddSenders struct {
	forwarderCmdBase
	Senders []concurrency.Sender[ForwarderCmd]
}

// RemoveAllSenders clears the downstream sender list.
type RemoveAllSenders struct {
	forwarderCmdBase
}

// ForwardingMultiplier sets how many copies are emitted per downstream
// sender for each accepted TestData.
type ForwardingMultiplier struct {
	forwarderCmdBase
	N int
}

// Notify registers a completion notifier and its target received-count. A
// TargetCount of 0 means "notify per terminal ChaosMonkeyMsg" rather than
// "notify once the aggregate count is reached".
type Notify struct {
	forwarderCmdBase
	Sender      concurrency.Sender[ForwarderCmd]
	TargetCount int
}

// TestData is a sequence-numbered action message: seq == next expected
// value advances the sequence; seq == 0 resets it to 1; anything else is a
// sequence violation.
type TestData struct {
	forwarderCmdBase
	Seq int
}

// Mutation is the direction a ChaosMonkeyMsg's counter is moving.
type Mutation int

const (
	Increment Mutation = iota
	Decrement
)

// ChaosMonkeyMsg bounces around a fully-connected mesh, counting up to Max
// then back down to 0. Only (Counter: 0, Mutation: Decrement) is terminal --
// the symmetric (Counter: Max, Mutation: Decrement) state is the turn-around
// point, not a stopping point, per the design's resolution of the original's
// ambiguous can_advance/advance pairing.
type ChaosMonkeyMsg struct {
	forwarderCmdBase
	Counter  int
	Max      int
	Mutation Mutation
}

// CanAdvance reports whether this message should keep bouncing.
func (m ChaosMonkeyMsg) CanAdvance() bool {
	return !(m.Counter == 0 && m.Mutation == Decrement)
}

// Advance returns the next state: Increment counts up until Counter == Max,
// then flips to Decrement; Decrement counts down until Counter == 0.
func (m ChaosMonkeyMsg) Advance() ChaosMonkeyMsg {
	if m.Mutation == Increment {
		if m.Counter == m.Max {
			return ChaosMonkeyMsg{Counter: m.Counter - 1, Max: m.Max, Mutation: Decrement}
		}
		return ChaosMonkeyMsg{Counter: m.Counter + 1, Max: m.Max, Mutation: Increment}
	}
	if m.Counter == 0 {
		return m
	}
	return ChaosMonkeyMsg{Counter: m.Counter - 1, Max: m.Max, Mutation: Decrement}
}
