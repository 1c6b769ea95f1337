package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestNoImmediateFirstFire(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	var calls atomic.Int32
	s.Register("sensors", 100*time.Millisecond, ModeSkip, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	time.Sleep(40 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("task fired before one full period elapsed")
	}

	waitFor(t, time.Second, func() bool { return calls.Load() >= 1 })
}

func TestErrorDoesNotUnregister(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	var calls atomic.Int32
	s.Register("flaky", 20*time.Millisecond, ModeSkip, func(context.Context) error {
		calls.Add(1)
		return errors.New("backend down")
	})

	waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 3 })
}

func TestPanicDoesNotUnregister(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	var calls atomic.Int32
	s.Register("crashy", 20*time.Millisecond, ModeSkip, func(context.Context) error {
		calls.Add(1)
		panic("boom")
	})

	waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 3 })
}

func TestModeSkipNeverOverlaps(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	var inFlight, maxInFlight atomic.Int32
	var runs atomic.Int32
	s.Register("slow", 20*time.Millisecond, ModeSkip, func(context.Context) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := maxInFlight.Load()
			if n <= old || maxInFlight.CompareAndSwap(old, n) {
				break
			}
		}
		runs.Add(1)
		time.Sleep(70 * time.Millisecond)
		return nil
	})

	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 3 })
	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent runs = %d, want 1 under ModeSkip", maxInFlight.Load())
	}
}

func TestModeOverlapAllowsConcurrency(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	var inFlight, maxInFlight atomic.Int32
	s.Register("slow", 20*time.Millisecond, ModeOverlap, func(context.Context) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := maxInFlight.Load()
			if n <= old || maxInFlight.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		return nil
	})

	waitFor(t, 2*time.Second, func() bool { return maxInFlight.Load() >= 2 })
}

func TestReRegisterCancelsPreviousHandle(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	var oldCalls, newCalls atomic.Int32
	s.Register("sensors", 20*time.Millisecond, ModeSkip, func(context.Context) error {
		oldCalls.Add(1)
		return nil
	})
	waitFor(t, time.Second, func() bool { return oldCalls.Load() >= 1 })

	s.Register("sensors", 20*time.Millisecond, ModeSkip, func(context.Context) error {
		newCalls.Add(1)
		return nil
	})

	waitFor(t, time.Second, func() bool { return newCalls.Load() >= 2 })
	frozen := oldCalls.Load()
	time.Sleep(100 * time.Millisecond)
	if oldCalls.Load() != frozen {
		t.Error("old schedule still firing after re-registration")
	}
}

func TestUnregisterByHandle(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	var calls atomic.Int32
	id := s.Register("sensors", 20*time.Millisecond, ModeSkip, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	waitFor(t, time.Second, func() bool { return calls.Load() >= 1 })

	s.Unregister(id)
	frozen := calls.Load()
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != frozen {
		t.Error("task still firing after Unregister")
	}

	// Stale handle: no-op.
	s.Unregister(id)
}

func TestUnregisterAllIsIdempotent(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	var calls atomic.Int32
	s.Register("a", 20*time.Millisecond, ModeSkip, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	s.Register("b", 20*time.Millisecond, ModeOverlap, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	s.UnregisterAll()
	s.UnregisterAll()

	frozen := calls.Load()
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != frozen {
		t.Error("tasks still firing after UnregisterAll")
	}
}

func TestStopWaitsForInFlightRun(t *testing.T) {
	s := New(nil)

	release := make(chan struct{})
	entered := make(chan struct{})
	s.Register("slow", 20*time.Millisecond, ModeSkip, func(context.Context) error {
		close(entered)
		<-release
		return nil
	})
	<-entered

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a run was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the run finished")
	}

	if id := s.Register("late", time.Second, ModeSkip, func(context.Context) error { return nil }); id != "" {
		t.Error("Register after Stop should be a no-op")
	}
}
