// Package config handles configuration for the profile server, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the profile server.
//
// Fields:
//   - EndpointAddrHTTP: bind address of the HTTP endpoint.
//   - BasePath: prefix of the settings routes.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps profiles in memory.
//   - AllowedOrigins: browser origins allowed by CORS. Empty allows any.
//   - ShutdownTimeout: grace period for in-flight requests on shutdown.
//   - MetricsPath: route of the Prometheus endpoint. Empty disables metrics.
//   - LogLevel / LogFormat: slog level and handler ("text" or "json").
type Config struct {
	EndpointAddrHTTP string
	BasePath         string
	DatabaseDSN      string
	AllowedOrigins   []string
	ShutdownTimeout  time.Duration
	MetricsPath      string
	LogLevel         string
	LogFormat        string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.BasePath = "/api/say-what/v1"
	c.DatabaseDSN = ""
	c.AllowedOrigins = nil
	c.ShutdownTimeout = 5 * time.Second
	c.MetricsPath = "/metrics"
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
