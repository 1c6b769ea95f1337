package store

import "errors"

// Domain errors for the store package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, store.ErrNotFound) {
//	    // no data yet for this key
//	}
var (
	// ErrNotFound is returned when a signal key or layout element has never
	// been written. It is a distinct result so callers can tell "no data
	// yet" from a falsy value.
	ErrNotFound = errors.New("store: not found")
)
