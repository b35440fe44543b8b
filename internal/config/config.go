package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/osm-cameras/internal/output"
	"github.com/sells-group/osm-cameras/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Countries string         `yaml:"countries" mapstructure:"countries"`
	Overpass  OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Retry     RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Harvest   HarvestConfig  `yaml:"harvest" mapstructure:"harvest"`
	Regions   RegionsConfig  `yaml:"regions" mapstructure:"regions"`
	Output    OutputConfig   `yaml:"output" mapstructure:"output"`
	Store     StoreConfig    `yaml:"store" mapstructure:"store"`
	Metrics   MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Publish   PublishConfig  `yaml:"publish" mapstructure:"publish"`
	Server    ServerConfig   `yaml:"server" mapstructure:"server"`
	Log       LogConfig      `yaml:"log" mapstructure:"log"`
}

// OverpassConfig configures the Overpass API client. RatePerSec 0 selects the
// client default; a negative rate disables request spacing.
type OverpassConfig struct {
	URL              string  `yaml:"url" mapstructure:"url"`
	QueryTimeoutSecs int     `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// QueryTimeout returns the query timeout as a duration.
func (c OverpassConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}

// RetryConfig configures the per-box retry policy.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// Policy converts the config to a resilience.RetryConfig.
func (c RetryConfig) Policy() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.MaxAttempts, c.InitialBackoffMs, c.MaxBackoffMs, c.Multiplier, c.JitterFraction)
}

// HarvestConfig configures the fetch loop.
type HarvestConfig struct {
	PauseMs int `yaml:"pause_ms" mapstructure:"pause_ms"`
}

// Pause returns the courtesy pause between boxes.
func (c HarvestConfig) Pause() time.Duration {
	return time.Duration(c.PauseMs) * time.Millisecond
}

// RegionsConfig points at an optional region table file.
type RegionsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// OutputConfig configures where country files are written.
type OutputConfig struct {
	Dir           string   `yaml:"dir" mapstructure:"dir"`
	LegacyCountry string   `yaml:"legacy_country" mapstructure:"legacy_country"`
	LegacyFile    string   `yaml:"legacy_file" mapstructure:"legacy_file"`
	NameTemplate  string   `yaml:"name_template" mapstructure:"name_template"`
	Formats       []string `yaml:"formats" mapstructure:"formats"`
}

// Layout converts the config to an output.Layout.
func (c OutputConfig) Layout() output.Layout {
	return output.Layout{
		Dir:           c.Dir,
		LegacyCountry: strings.ToLower(c.LegacyCountry),
		LegacyFile:    c.LegacyFile,
		NameTemplate:  c.NameTemplate,
	}
}

// StoreConfig configures the run history store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MetricsConfig configures the textfile metrics output.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// PublishConfig configures uploads to object storage.
type PublishConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// Enabled reports whether publishing is configured.
func (c PublishConfig) Enabled() bool {
	return c.Endpoint != ""
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OSMCAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The selection variable predates the prefix.
	if err := v.BindEnv("countries", "COUNTRIES"); err != nil {
		return nil, eris.Wrap(err, "config: bind COUNTRIES")
	}

	// Defaults
	layout := output.DefaultLayout()
	retry := resilience.DefaultRetryConfig()
	v.SetDefault("countries", "")
	v.SetDefault("overpass.url", "https://lz4.overpass-api.de/api/interpreter")
	v.SetDefault("overpass.query_timeout_secs", 180)
	v.SetDefault("overpass.user_agent", "osm-cameras/1.0")
	v.SetDefault("overpass.rate_per_sec", 1.0)
	v.SetDefault("retry.max_attempts", retry.MaxAttempts)
	v.SetDefault("retry.initial_backoff_ms", retry.InitialBackoff.Milliseconds())
	v.SetDefault("retry.max_backoff_ms", retry.MaxBackoff.Milliseconds())
	v.SetDefault("retry.multiplier", retry.Multiplier)
	v.SetDefault("retry.jitter_fraction", 0.0)
	v.SetDefault("harvest.pause_ms", 2000)
	v.SetDefault("regions.file", "")
	v.SetDefault("output.dir", layout.Dir)
	v.SetDefault("output.legacy_country", layout.LegacyCountry)
	v.SetDefault("output.legacy_file", layout.LegacyFile)
	v.SetDefault("output.name_template", layout.NameTemplate)
	v.SetDefault("output.formats", []string{output.FormatJSON})
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "osm_cameras.db")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "")
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")
	v.SetDefault("publish.use_ssl", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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
