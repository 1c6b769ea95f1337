// Package ingest drives the data flow: it registers the per-family poll
// tasks and the health sweep, writes fetched readings to the store,
// detects edges (motion starting, lights toggling) against the previous
// stored value, appends history, mirrors telemetry, and emits bus events
// for the UI push and announcer.
package ingest
