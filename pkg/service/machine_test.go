package service

import "testing"

func TestLifecycleHappyPath(t *testing.T) {
	sm := New(nil)
	steps := []struct {
		name string
		fn   func() error
		want State
	}{
		{"start", sm.Start, StateStarted},
		{"run", sm.Run, StateRunning},
		{"drain", sm.Drain, StateDraining},
		{"stop", sm.Stop, StateStopped},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			t.Fatalf("%s: unexpected error %v", step.name, err)
		}
		if got := sm.Current(); got != step.want {
			t.Errorf("%s: state = %s, want %s", step.name, got, step.want)
		}
	}
}

func TestLifecycleRejectsOutOfOrderTransitions(t *testing.T) {
	sm := New(nil)
	if err := sm.Run(); err == nil {
		t.Fatal("Run() from Init should fail")
	}
	if err := sm.Drain(); err == nil {
		t.Fatal("Drain() from Init should fail")
	}

	sm.Start()
	if err := sm.Start(); err == nil {
		t.Fatal("Start() from Started should fail")
	}
	if err := sm.Drain(); err == nil {
		t.Fatal("Drain() from Started should fail")
	}
}

func TestStopAllowedFromAnyNonStoppedState(t *testing.T) {
	sm := New(nil)
	if err := sm.Stop(); err != nil {
		t.Fatalf("Stop() from Init error = %v", err)
	}
	if err := sm.Stop(); err == nil {
		t.Fatal("Stop() from Stopped should fail")
	}
}

type recordingObserver struct{ seen []State }

func (o *recordingObserver) WillStart(s State) { o.seen = append(o.seen, s) }
func (o *recordingObserver) WillRun(s State)   { o.seen = append(o.seen, s) }
func (o *recordingObserver) WillDrain(s State) { o.seen = append(o.seen, s) }
func (o *recordingObserver) WillStop(s State)  { o.seen = append(o.seen, s) }

func TestObserverSeesPreTransitionState(t *testing.T) {
	obs := &recordingObserver{}
	sm := New(obs)
	sm.Start()
	sm.Run()

	want := []State{StateInit, StateStarted}
	if len(obs.seen) != len(want) {
		t.Fatalf("observer saw %v, want %v", obs.seen, want)
	}
	for i, s := range want {
		if obs.seen[i] != s {
			t.Errorf("observer.seen[%d] = %s, want %s", i, obs.seen[i], s)
		}
	}
}

func TestMonotonicStateOrdering(t *testing.T) {
	sm := New(nil)
	order := map[State]int{StateInit: 0, StateStarted: 1, StateRunning: 2, StateDraining: 3, StateStopped: 4}
	last := order[sm.Current()]
	for _, fn := range []func() error{sm.Start, sm.Run, sm.Drain, sm.Stop} {
		fn()
		cur := order[sm.Current()]
		if cur < last {
			t.Fatalf("state index decreased: %d -> %d", last, cur)
		}
		last = cur
	}
}
