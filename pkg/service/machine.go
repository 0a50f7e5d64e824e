package service

import "sync"

// NopObserver implements Observer with no-op callbacks, for callers that
// don't need transition notifications.
type NopObserver struct{}

func (NopObserver) WillStart(State) {}
func (NopObserver) WillRun(State)   {}
func (NopObserver) WillDrain(State) {}
func (NopObserver) WillStop(State)  {}

// StateMachine is a synchronous, thread-safe five-state lifecycle guard.
// Every method either performs the guarded transition and returns nil, or
// returns a *TransitionError describing why it was rejected.
type StateMachine struct {
	mu       sync.Mutex
	current  State
	observer Observer
}

// New creates a StateMachine starting in StateInit. A nil observer is
// replaced with NopObserver.
func New(observer Observer) *StateMachine {
	if observer == nil {
		observer = NopObserver{}
	}
	return &StateMachine{current: StateInit, observer: observer}
}

// Current returns the current state.
func (sm *StateMachine) Current() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// Start transitions Init -> Started.
func (sm *StateMachine) Start() error {
	return sm.guardedTransition(StateInit, StateStarted, "start", sm.observer.WillStart)
}

// Run transitions Started -> Running.
func (sm *StateMachine) Run() error {
	return sm.guardedTransition(StateStarted, StateRunning, "run", sm.observer.WillRun)
}

// Drain transitions Running -> Draining.
func (sm *StateMachine) Drain() error {
	return sm.guardedTransition(StateRunning, StateDraining, "drain", sm.observer.WillDrain)
}

// Stop transitions any state except Stopped into Stopped.
func (sm *StateMachine) Stop() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.current == StateStopped {
		return &TransitionError{Current: sm.current, Attempted: "stop"}
	}
	sm.observer.WillStop(sm.current)
	sm.current = StateStopped
	return nil
}

func (sm *StateMachine) guardedTransition(from, to State, attempted string, will func(State)) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.current != from {
		return &TransitionError{Current: sm.current, Attempted: attempted}
	}
	will(sm.current)
	sm.current = to
	return nil
}
