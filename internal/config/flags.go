package config

import (
	"flag"
	"os"
	"time"

	"github.com/navlock/navlock/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-b string   storage backend: sqlite or postgres (default from Config)
//	-d string   database DSN (default from Config)
//	-m string   entity codec: json or compact (default from Config)
//	-s int      expired-grant sweep interval in seconds, 0 disables
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-b", "-d", "-m", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "storage backend (sqlite|postgres)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.Codec, "m", cfg.Codec, "entity codec (json|compact)")
	sweepInterval := fs.Int("s", int(cfg.SweepInterval.Seconds()), "sweep interval (in seconds), 0 disables")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SweepInterval = time.Duration(*sweepInterval) * time.Second
}
