// Package poll schedules the repeating fetch tasks that drive the
// dashboard. Each device family polls on its own period; a failing
// backend costs nothing but its own task's log line, and the next tick
// is the retry.
package poll
