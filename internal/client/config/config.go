package config

import "time"

// Config holds runtime settings for the sync agent.
type Config struct {
	ProfileServerURL  string
	LocalDBPath       string
	ProfileID         string
	ProfilePassword   string
	ReconcileInterval time.Duration
	RequestTimeout    time.Duration
	SpeechRPS         float64
	LogLevel          string
	LogFormat         string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ProfileServerURL = "http://127.0.0.1:8080/api/say-what/v1"
	c.LocalDBPath = "saywhat.db"
	c.ReconcileInterval = time.Minute
	c.RequestTimeout = 10 * time.Second
	c.SpeechRPS = 2
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig applies defaults, then the JSON file, then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
