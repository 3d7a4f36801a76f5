package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/saywhat/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-b string   base path of the settings routes
//	-d string   PostgreSQL DSN; empty keeps profiles in memory
//	-o string   comma-separated allowed CORS origins
//	-t int      shutdown timeout, seconds
//	-m string   metrics route; empty disables metrics
//	-l string   log level
//	-f string   log format (text or json)
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-d", "-o", "-t", "-m", "-l", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.BasePath, "b", config.BasePath, "base path of the settings routes")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed CORS origins, comma separated")
	shutdown := fs.Int("t", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")
	fs.StringVar(&config.MetricsPath, "m", config.MetricsPath, "metrics route, empty to disable")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (text or json)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AllowedOrigins = splitOrigins(*origins)
	config.ShutdownTimeout = time.Duration(*shutdown) * time.Second
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
