// Package logging provides structured logging for Homedeck Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8090)
//	logger.Error("fetch failed", "family", "hue", "error", err)
//
// Never log credentials: Hue usernames, Nest refresh tokens, and MQTT
// passwords must not appear in log fields.
package logging
