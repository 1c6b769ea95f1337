// Package config loads and validates Homedeck Core configuration.
//
// Configuration is read from a YAML file, merged over built-in defaults,
// and then overridden by HOMEDECK_* environment variables. Validation is
// deliberately split in two:
//
//   - Core sections (database, api) fail Load() and abort startup.
//   - Device-family sections expose a Configured() check instead; a family
//     with missing credentials is disabled at wiring time while the rest of
//     the system proceeds.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil { ... }
//	if cfg.Families.Hue.Configured() { ... }
package config
