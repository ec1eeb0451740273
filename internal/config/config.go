package config

import "time"

// Backend selects the durable storage driver.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Codec selects the entity serialization format.
const (
	CodecJSON    = "json"
	CodecCompact = "compact"
)

// Config holds runtime settings for the navlock engine.
//
// Fields:
//   - Backend: durable storage driver, "sqlite" or "postgres".
//   - DatabaseDSN: DSN passed to the selected driver.
//   - Codec: entity serialization format, "json" (debug field names) or
//     "compact" (aliased field names).
//   - BlockedViewURL / UnlockViewURL: bases of the views the interceptor
//     redirects blocked and locked navigations to.
//   - SweepInterval: how often expired grants are evicted; 0 disables the
//     sweeper (lazy expiry still applies on every read).
type Config struct {
	Backend        string
	DatabaseDSN    string
	Codec          string
	BlockedViewURL string
	UnlockViewURL  string
	SweepInterval  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Backend = BackendSQLite
	c.DatabaseDSN = "navlock.db"
	c.Codec = CodecJSON
	c.BlockedViewURL = "navlock://views/blocked"
	c.UnlockViewURL = "navlock://views/unlock"
	c.SweepInterval = time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
