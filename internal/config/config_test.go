package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "market-intel.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10, cfg.Cache.TTLSecs)
	assert.Equal(t, 3, cfg.Tenor.WindowYears)
	assert.Equal(t, "MarketIntelligenceGAS", cfg.Sheets.RecordsSheet)
	assert.Equal(t, "History", cfg.Sheets.HistorySheet)
	assert.Equal(t, 60, cfg.Sheets.RequestsPerMinute)
	assert.Equal(t, "X-Forwarded-User", cfg.Identity.Header)
	assert.Contains(t, cfg.Catalog.Countries, "Hungary")
	assert.Equal(t, []string{"MGP", "AT-VTP"}, cfg.Catalog.VirtualPoints)
	assert.Equal(t, []string{"outage", "maintenance", "regulatory", "forecast"}, cfg.Catalog.PredefinedTags)
	assert.False(t, cfg.Catalog.AllowCustomPoints)
	assert.NoError(t, cfg.Validate("cli"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/intel
log:
  level: debug
  format: console
server:
  port: 9090
catalog:
  storage_points: [HEXUM, MMBF, Haidach]
  allow_custom_points: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"HEXUM", "MMBF", "Haidach"}, cfg.Catalog.StoragePoints)
	assert.True(t, cfg.Catalog.AllowCustomPoints)
	// Defaults still apply for unset values
	assert.Equal(t, []string{"MGP", "AT-VTP"}, cfg.Catalog.VirtualPoints)
	assert.Equal(t, 10, cfg.Cache.TTLSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MARKETINTEL_STORE_DRIVER", "memory")
	t.Setenv("MARKETINTEL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MARKETINTEL_SERVER_PORT=3000\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("MARKETINTEL_SERVER_PORT") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadBadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "file.db"
	cfg.Server.Port = 8080
	cfg.Cache.TTLSecs = 10
	cfg.Tenor.WindowYears = 3
	cfg.Catalog.Countries = []string{"Hungary"}
	return cfg
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// The CLI never listens.
	assert.NoError(t, cfg.Validate("cli"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateDrivers(t *testing.T) {
	cfg := validDefaults()

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "sheets"
	err = cfg.Validate("cli")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sheets.spreadsheet_id is required")
	assert.Contains(t, err.Error(), "sheets.credentials_base64 or sheets.credentials_file is required")

	cfg.Sheets.SpreadsheetID = "sheet-id"
	cfg.Sheets.CredentialsFile = "/etc/creds.json"
	assert.NoError(t, cfg.Validate("cli"))

	cfg.Store.Driver = "memory"
	assert.NoError(t, cfg.Validate("cli"))

	cfg.Store.Driver = "mongo"
	err = cfg.Validate("cli")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be one of")
}

func TestValidateBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Tenor.WindowYears = 0
	err := cfg.Validate("cli")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tenor.window_years must be between 1 and 10")

	cfg.Tenor.WindowYears = 3
	cfg.Cache.TTLSecs = -1
	err = cfg.Validate("cli")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cache.ttl_secs")

	cfg.Cache.TTLSecs = 0
	cfg.Catalog.Countries = nil
	err = cfg.Validate("cli")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.countries")
}

func TestLoadEnvWithoutDefaultValue(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MARKETINTEL_SHEETS_SPREADSHEET_ID", "abc123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.Sheets.SpreadsheetID)
}
