package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("all fields", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{
			"endpoint_addr_http": ":9000",
			"base_path":          "/profiles",
			"database_dsn":       "postgres://u:p@db/saywhat",
			"allowed_origins":    []string{"https://saywhat.example"},
			"shutdown_timeout":   "10s",
			"metrics_path":       "/ops/metrics",
			"log_level":          "warn",
			"log_format":         "text",
		})
		os.Args = []string{"bin", "-config", path}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, Config{
			EndpointAddrHTTP: ":9000",
			BasePath:         "/profiles",
			DatabaseDSN:      "postgres://u:p@db/saywhat",
			AllowedOrigins:   []string{"https://saywhat.example"},
			ShutdownTimeout:  10 * time.Second,
			MetricsPath:      "/ops/metrics",
			LogLevel:         "warn",
			LogFormat:        "text",
		}, *cfg)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := writeTempJSON(t, map[string]any{"shutdown_timeout": 2000000000})
		os.Args = []string{"bin", "-c", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ nope`), 0o600))
		os.Args = []string{"bin", "-c", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
