package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/saywhat/internal/flagx"
)

// parseFlags overlays cfg with the flags listed in the package doc. It
// panics on malformed values.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-d", "-p", "-i", "-t", "-r", "-l", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ProfileServerURL, "s", cfg.ProfileServerURL, "profile server base URL")
	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "local database path")
	fs.StringVar(&cfg.ProfileID, "p", cfg.ProfileID, "profile id")
	reconcile := fs.Int("i", int(cfg.ReconcileInterval.Seconds()), "reconcile interval (in seconds)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "profile request timeout (in seconds)")
	fs.Float64Var(&cfg.SpeechRPS, "r", cfg.SpeechRPS, "speech provider requests per second")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (text or json)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.ReconcileInterval = time.Duration(*reconcile) * time.Second
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
