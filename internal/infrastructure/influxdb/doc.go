// Package influxdb mirrors telemetry (room temperatures, motion, plug
// power) to an InfluxDB v2 instance for long-range graphing.
//
// The mirror is strictly optional: SQLite holds the dashboard's own
// bounded history, and every write here is best-effort and non-blocking.
// A missing or unreachable Influx server costs a log line, nothing more.
package influxdb
