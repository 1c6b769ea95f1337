package store

import (
	"sort"
	"sync"
	"time"
)

// Signals holds the latest value for every known signal key.
//
// It is a flat, RWMutex-guarded map: writes replace the previous value
// unconditionally, reads of unknown keys return ErrNotFound, and keys are
// never deleted for the lifetime of the process.
type Signals struct {
	mu      sync.RWMutex
	signals map[string]Signal
}

// NewSignals creates an empty signal store.
func NewSignals() *Signals {
	return &Signals{
		signals: make(map[string]Signal),
	}
}

// Set records the latest value for a key, stamped with the current time.
// The room annotation is optional; pass "" for signals not tied to a room.
// It returns the stored signal.
func (s *Signals) Set(key string, value any, room string) Signal {
	return s.SetAt(key, value, room, time.Now().UTC())
}

// SetAt records the latest value for a key with an explicit timestamp.
// Used when the upstream payload carries its own observation time.
func (s *Signals) SetAt(key string, value any, room string, at time.Time) Signal {
	sig := Signal{Key: key, Value: value, Room: room, Timestamp: at}

	s.mu.Lock()
	s.signals[key] = sig
	s.mu.Unlock()

	return sig
}

// Get returns the latest value for a key. A key that has never been written
// yields ErrNotFound, which is distinct from any stored falsy value.
func (s *Signals) Get(key string) (Signal, error) {
	s.mu.RLock()
	sig, ok := s.signals[key]
	s.mu.RUnlock()

	if !ok {
		return Signal{}, ErrNotFound
	}
	return sig, nil
}

// Snapshot returns a copy of every stored signal, sorted by key.
func (s *Signals) Snapshot() []Signal {
	s.mu.RLock()
	out := make([]Signal, 0, len(s.signals))
	for _, sig := range s.signals {
		out = append(out, sig)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of distinct keys seen so far.
func (s *Signals) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signals)
}
