// Package config loads runtime configuration for the navlock engine.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-b string   storage backend: sqlite or postgres
//	-d string   database DSN
//	-m string   entity codec: json or compact
//	-s int      expired-grant sweep interval (seconds), 0 disables
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "1m" or integer nanoseconds:
//
//	{
//	  "backend": "sqlite",
//	  "database_dsn": "navlock.db",
//	  "codec": "compact",
//	  "blocked_view_url": "navlock://views/blocked",
//	  "unlock_view_url": "navlock://views/unlock",
//	  "sweep_interval": "1m"
//	}
//
// Primary API
//
//   - type Config                     — holds backend, DSN, codec, view and sweep settings
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
