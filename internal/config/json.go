package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/navlock/navlock/internal/flagx"
	"github.com/navlock/navlock/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "1m" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	Backend        string         `json:"backend"`
	DatabaseDSN    string         `json:"database_dsn"`
	Codec          string         `json:"codec"`
	BlockedViewURL string         `json:"blocked_view_url"`
	UnlockViewURL  string         `json:"unlock_view_url"`
	SweepInterval  timex.Duration `json:"sweep_interval"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies known fields into the provided Config.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.Backend != "" {
		cfg.Backend = jc.Backend
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.Codec != "" {
		cfg.Codec = jc.Codec
	}
	if jc.BlockedViewURL != "" {
		cfg.BlockedViewURL = jc.BlockedViewURL
	}
	if jc.UnlockViewURL != "" {
		cfg.UnlockViewURL = jc.UnlockViewURL
	}
	if jc.SweepInterval.Duration != 0 {
		cfg.SweepInterval = time.Duration(jc.SweepInterval.Duration)
	}
}
