// Package health tracks per-family reachability.
//
// The monitor sweeps every family's health probe concurrently on a
// schedule, holds the last-known state (unknown until the first sweep),
// and emits an edge-triggered connection event on each flip. Nothing in
// the system marks a family offline except a probe result; stale data is
// displayed as stale, never cleared.
package health
