package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/market-intel/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Catalog  model.Catalog  `yaml:"catalog" mapstructure:"catalog"`
	Tenor    TenorConfig    `yaml:"tenor" mapstructure:"tenor"`
	Map      MapConfig      `yaml:"map" mapstructure:"map"`
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the record and history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SheetsConfig configures the Google Sheets backend.
type SheetsConfig struct {
	SpreadsheetID     string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	CredentialsBase64 string `yaml:"credentials_base64" mapstructure:"credentials_base64"`
	CredentialsFile   string `yaml:"credentials_file" mapstructure:"credentials_file"`
	RecordsSheet      string `yaml:"records_sheet" mapstructure:"records_sheet"`
	HistorySheet      string `yaml:"history_sheet" mapstructure:"history_sheet"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	BreakerFailures   int    `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs  int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// CacheConfig configures load memoization.
type CacheConfig struct {
	TTLSecs int `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// TenorConfig configures the period code vocabulary.
type TenorConfig struct {
	WindowYears int `yaml:"window_years" mapstructure:"window_years"`
}

// MapConfig configures the interconnector map.
type MapConfig struct {
	InterconnectorsFile string `yaml:"interconnectors_file" mapstructure:"interconnectors_file"`
}

// IdentityConfig says who is acting. HTTP callers are identified by a header
// set by the fronting proxy; everyone else falls back to DefaultUser.
type IdentityConfig struct {
	Header      string `yaml:"header" mapstructure:"header"`
	DefaultUser string `yaml:"default_user" mapstructure:"default_user"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Drivers are the accepted store.driver values.
var Drivers = []string{"sqlite", "postgres", "sheets", "memory"}

// Load reads configuration from .env, config.yaml and the environment, in
// increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MARKETINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so AutomaticEnv can see it on Unmarshal.
	cat := model.DefaultCatalog()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "market-intel.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_base64", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.records_sheet", "MarketIntelligenceGAS")
	v.SetDefault("sheets.history_sheet", "History")
	v.SetDefault("sheets.requests_per_minute", 60)
	v.SetDefault("sheets.breaker_failures", 5)
	v.SetDefault("sheets.breaker_reset_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("cache.ttl_secs", 10)
	v.SetDefault("catalog.countries", cat.Countries)
	v.SetDefault("catalog.virtual_points", cat.VirtualPoints)
	v.SetDefault("catalog.storage_points", cat.StoragePoints)
	v.SetDefault("catalog.predefined_tags", cat.PredefinedTags)
	v.SetDefault("catalog.capacity_units", cat.CapacityUnits)
	v.SetDefault("catalog.volume_units", cat.VolumeUnits)
	v.SetDefault("catalog.allow_custom_points", false)
	v.SetDefault("tenor.window_years", 3)
	v.SetDefault("map.interconnectors_file", "")
	v.SetDefault("identity.header", "X-Forwarded-User")
	v.SetDefault("identity.default_user", "anonymous")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a mode depends on. Modes are "serve", "cli"
// and "migrate".
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server.port must be > 0 and <= 65535")
		}
	case "cli", "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required for driver %s", c.Store.Driver)
		}
	case "sheets":
		if c.Sheets.SpreadsheetID == "" {
			add("sheets.spreadsheet_id is required")
		}
		if c.Sheets.CredentialsBase64 == "" && c.Sheets.CredentialsFile == "" {
			add("sheets.credentials_base64 or sheets.credentials_file is required")
		}
		if c.Sheets.RequestsPerMinute < 0 {
			add("sheets.requests_per_minute must be >= 0")
		}
	case "memory":
	default:
		add("store.driver must be one of %s", strings.Join(Drivers, ", "))
	}

	if c.Cache.TTLSecs < 0 {
		add("cache.ttl_secs must be >= 0")
	}
	if c.Tenor.WindowYears < 1 || c.Tenor.WindowYears > 10 {
		add("tenor.window_years must be between 1 and 10")
	}
	if len(c.Catalog.Countries) == 0 {
		add("catalog.countries must not be empty")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
