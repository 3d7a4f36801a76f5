package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/saywhat/internal/flagx"
	"github.com/dmitrijs2005/saywhat/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Pointer fields tell an
// absent key from a zero value, so a partial file only overrides what it
// names.
type JsonConfig struct {
	ProfileServerURL  *string         `json:"profile_server_url"`
	LocalDBPath       *string         `json:"local_db_path"`
	ProfileID         *string         `json:"profile_id"`
	ProfilePassword   *string         `json:"profile_password"`
	ReconcileInterval *timex.Duration `json:"reconcile_interval"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	SpeechRPS         *float64        `json:"speech_rps"`
	LogLevel          *string         `json:"log_level"`
	LogFormat         *string         `json:"log_format"`
}

// parseJson overlays cfg with the file given by -c/-config. It panics when
// the file cannot be read or parsed.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ProfileServerURL, jc.ProfileServerURL)
	setString(&cfg.LocalDBPath, jc.LocalDBPath)
	setString(&cfg.ProfileID, jc.ProfileID)
	setString(&cfg.ProfilePassword, jc.ProfilePassword)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.ReconcileInterval != nil {
		cfg.ReconcileInterval = jc.ReconcileInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.SpeechRPS != nil {
		cfg.SpeechRPS = *jc.SpeechRPS
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
