package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Countries)
	assert.Equal(t, "https://lz4.overpass-api.de/api/interpreter", cfg.Overpass.URL)
	assert.Equal(t, 180, cfg.Overpass.QueryTimeoutSecs)
	assert.Equal(t, 180*time.Second, cfg.Overpass.QueryTimeout())
	assert.Equal(t, "osm-cameras/1.0", cfg.Overpass.UserAgent)
	assert.InDelta(t, 1.0, cfg.Overpass.RatePerSec, 0.001)
	assert.Equal(t, 6, cfg.Retry.MaxAttempts)
	assert.Equal(t, 5000, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, 300000, cfg.Retry.MaxBackoffMs)
	assert.InDelta(t, 2.0, cfg.Retry.Multiplier, 0.001)
	assert.InDelta(t, 0.0, cfg.Retry.JitterFraction, 0.001)
	assert.Equal(t, 2*time.Second, cfg.Harvest.Pause())
	assert.Equal(t, "docs", cfg.Output.Dir)
	assert.Equal(t, "uk", cfg.Output.LegacyCountry)
	assert.Equal(t, "osm_cameras.json", cfg.Output.LegacyFile)
	assert.Equal(t, "{cc}_osm_cameras.json", cfg.Output.NameTemplate)
	assert.Equal(t, []string{"json"}, cfg.Output.Formats)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.False(t, cfg.HistoryEnabled())
	assert.False(t, cfg.Publish.Enabled())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
countries: fr,de
store:
  driver: sqlite
  database_url: runs.db
log:
  level: debug
  format: console
server:
  port: 9090
output:
  formats: [json, geojson]
retry:
  max_attempts: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "fr,de", cfg.Countries)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "runs.db", cfg.Store.DatabaseURL)
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"json", "geojson"}, cfg.Output.Formats)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	// Defaults still apply for unset values
	assert.Equal(t, 5000, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, "docs", cfg.Output.Dir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
overpass:
  user_agent: from-file
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("OSMCAM_LOG_LEVEL", "warn")
	t.Setenv("OSMCAM_OVERPASS_USER_AGENT", "from-env")
	t.Setenv("OSMCAM_HARVEST_PAUSE_MS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "from-env", cfg.Overpass.UserAgent)
	assert.Equal(t, time.Duration(0), cfg.Harvest.Pause())
}

func TestLoadCountriesEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("COUNTRIES", "FR, de")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "FR, de", cfg.Countries)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [\n"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestRetryPolicy(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)

	p := cfg.Retry.Policy()
	assert.Equal(t, 6, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.InitialBackoff)
	assert.Equal(t, 300*time.Second, p.MaxBackoff)
	assert.InDelta(t, 2.0, p.Multiplier, 0.001)
	assert.InDelta(t, 0.0, p.JitterFraction, 0.001)
}

func TestOutputLayout(t *testing.T) {
	c := OutputConfig{Dir: "out", LegacyCountry: "UK", LegacyFile: "osm_cameras.json", NameTemplate: "{cc}.json"}
	l := c.Layout()
	assert.Equal(t, "out", l.Dir)
	assert.Equal(t, "uk", l.LegacyCountry)

	p, err := l.Path("fr")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "fr.json"), p)
}

func TestStorePool(t *testing.T) {
	cfg := &Config{Store: StoreConfig{MaxConns: 8, MinConns: 2}}
	p := cfg.StorePool()
	assert.Equal(t, int32(8), p.MaxConns)
	assert.Equal(t, int32(2), p.MinConns)
}

func TestInitLogger(t *testing.T) {
	orig := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
