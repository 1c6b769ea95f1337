package store

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSignalsGetUnknownKey(t *testing.T) {
	s := NewSignals()

	_, err := s.Get("temp:Lounge")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on unknown key = %v, want ErrNotFound", err)
	}
}

func TestSignalsSetThenGet(t *testing.T) {
	s := NewSignals()

	s.Set("temp:Lounge", 21.5, "Lounge")

	sig, err := s.Get("temp:Lounge")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sig.Value != 21.5 {
		t.Errorf("Value = %v, want 21.5", sig.Value)
	}
	if sig.Room != "Lounge" {
		t.Errorf("Room = %q, want Lounge", sig.Room)
	}
	if sig.Timestamp.IsZero() {
		t.Error("Timestamp not stamped")
	}
}

func TestSignalsFalsyValueIsNotMissing(t *testing.T) {
	s := NewSignals()
	s.Set("motion:Hall", false, "Hall")

	sig, err := s.Get("motion:Hall")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sig.Value != false {
		t.Errorf("Value = %v, want false", sig.Value)
	}
}

func TestSignalsOverwrite(t *testing.T) {
	s := NewSignals()
	earlier := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Minute)

	s.SetAt("light:3:on", true, "Office", earlier)
	s.SetAt("light:3:on", false, "Office", later)

	sig, err := s.Get("light:3:on")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sig.Value != false {
		t.Errorf("Value = %v, want most recent write (false)", sig.Value)
	}
	if !sig.Timestamp.Equal(later) {
		t.Errorf("Timestamp = %v, want %v", sig.Timestamp, later)
	}
}

func TestSignalsSnapshotSorted(t *testing.T) {
	s := NewSignals()
	s.Set("temp:Lounge", 21.0, "Lounge")
	s.Set("motion:Hall", true, "Hall")
	s.Set("stream:app", "netflix", "")

	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot() len = %d, want 3", len(snap))
	}
	want := []string{"motion:Hall", "stream:app", "temp:Lounge"}
	for i, k := range want {
		if snap[i].Key != k {
			t.Errorf("Snapshot()[%d].Key = %q, want %q", i, snap[i].Key, k)
		}
	}
}

func TestSignalsConcurrentAccess(t *testing.T) {
	s := NewSignals()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set("temp:Lounge", float64(j), "Lounge")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Get("temp:Lounge")
				s.Snapshot()
			}
		}()
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}
