// Package store holds the dashboard's state: the latest value for every
// signal key, rolling history windows, and persisted UI layout.
//
// Signals is the flat latest-value map the rest of the system reads from
// and writes to. It never forgets a key; "no data yet" surfaces as
// ErrNotFound rather than a zero value.
//
// History keeps bounded time series (room temperatures, the activity log)
// in memory with write-through persistence to SQLite, enforcing the
// retention window on every append so the series never grows past its
// configured horizon.
package store
