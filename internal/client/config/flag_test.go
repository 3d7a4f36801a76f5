package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-s", "http://h:1/v1", "-d", "x.db", "-p", "p1",
				"-i", "10", "-t", "3", "-r", "1.5", "-l", "debug", "-f", "json"},
			expected: &Config{
				ProfileServerURL:  "http://h:1/v1",
				LocalDBPath:       "x.db",
				ProfileID:         "p1",
				ReconcileInterval: 10 * time.Second,
				RequestTimeout:    3 * time.Second,
				SpeechRPS:         1.5,
				LogLevel:          "debug",
				LogFormat:         "json",
			},
		},
		{
			name:     "unrelated flags ignored",
			args:     []string{"cmd", "-c", "cfg.json", "-p", "p2"},
			expected: &Config{ProfileID: "p2"},
		},
		{name: "bad interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
		{name: "bad rps", args: []string{"cmd", "-r", "fast"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
