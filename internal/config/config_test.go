package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "fieldflow.db", c.Database)
	assert.Equal(t, slog.LevelInfo, c.LogLevel)
	assert.Equal(t, 3*time.Second, c.SplashDelay)
	assert.Equal(t, 8, c.PasswordMinLength)
	assert.Equal(t, 4, c.GeocodeConcurrency)
	assert.Empty(t, c.MetricsAddr)
	assert.True(t, c.API.Simulated())
	assert.Equal(t, 10.0, c.API.RatePerSecond)
	assert.Equal(t, 5, c.API.Burst)
	assert.Equal(t, 10*time.Second, c.API.Timeout)
}

func TestParse_CUE(t *testing.T) {
	src := `
database:     "/tmp/ff.db"
log_level:    "debug"
splash_delay: "1500ms"
api: {
	base_url:        "https://api.example.com"
	rate_per_second: 2.5
	timeout:         "30s"
}
`
	c, err := Parse([]byte(src), "fieldflow.cue")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ff.db", c.Database)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, 1500*time.Millisecond, c.SplashDelay)
	assert.False(t, c.API.Simulated())
	assert.Equal(t, 2.5, c.API.RatePerSecond)
	assert.Equal(t, 5, c.API.Burst, "unset fields keep their defaults")
	assert.Equal(t, 30*time.Second, c.API.Timeout)

	cc := c.API.ClientConfig(nil)
	assert.Equal(t, "https://api.example.com", cc.BaseURL)
	assert.Equal(t, 30*time.Second, cc.Timeout)
}

func TestParse_JSON(t *testing.T) {
	c, err := Parse([]byte(`{"geocode_concurrency": 8, "metrics_addr": ":9090"}`), "fieldflow.json")
	require.NoError(t, err)
	assert.Equal(t, 8, c.GeocodeConcurrency)
	assert.Equal(t, ":9090", c.MetricsAddr)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"unknown field", `colour: "red"`, "colour"},
		{"password too short", `password_min_length: 0`, "password_min_length"},
		{"bad level", `log_level: "loud"`, "log_level"},
		{"bad duration", `splash_delay: "soon"`, "splash_delay"},
		{"bad url", `api: base_url: "ftp://x"`, "api.base_url"},
		{"zero rate", `api: rate_per_second: 0`, "api.rate_per_second"},
		{"syntax", `database: `, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	path := filepath.Join(t.TempDir(), "fieldflow.cue")
	require.NoError(t, os.WriteFile(path, []byte(`database: "x.db"`), 0o600))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x.db", c.Database)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
