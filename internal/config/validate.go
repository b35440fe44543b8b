package config

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-cameras/internal/output"
	"github.com/sells-group/osm-cameras/internal/store"
)

// Modes accepted by Validate.
const (
	ModeFetch   = "fetch"
	ModeServe   = "serve"
	ModeHistory = "history"
	ModeRegions = "regions"
)

// Validate checks the settings a command needs. All problems are reported
// together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeFetch:
		errs = append(errs, c.validateFetch()...)
	case ModeServe:
		errs = append(errs, c.validateOutput()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case ModeHistory:
		if !c.historyEnabled() {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
		errs = append(errs, c.validateStore()...)
	case ModeRegions:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateFetch() []string {
	var errs []string
	if c.Overpass.URL == "" {
		errs = append(errs, "overpass.url is required")
	}
	if c.Overpass.QueryTimeoutSecs <= 0 {
		errs = append(errs, "overpass.query_timeout_secs must be > 0")
	}
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 20 {
		errs = append(errs, "retry.max_attempts must be between 1 and 20")
	}
	if c.Retry.InitialBackoffMs < 0 || c.Retry.MaxBackoffMs < 0 {
		errs = append(errs, "retry backoff values must be >= 0")
	}
	if c.Retry.MaxBackoffMs > 0 && c.Retry.MaxBackoffMs < c.Retry.InitialBackoffMs {
		errs = append(errs, "retry.max_backoff_ms must be >= retry.initial_backoff_ms")
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, "retry.multiplier must be >= 1")
	}
	if c.Retry.JitterFraction < 0 || c.Retry.JitterFraction > 1 {
		errs = append(errs, "retry.jitter_fraction must be between 0 and 1")
	}
	if c.Harvest.PauseMs < 0 {
		errs = append(errs, "harvest.pause_ms must be >= 0")
	}
	errs = append(errs, c.validateOutput()...)
	if _, err := output.ParseFormats(c.Output.Formats); err != nil {
		errs = append(errs, "output.formats: "+err.Error())
	}
	errs = append(errs, c.validateStore()...)
	if c.Publish.Enabled() && c.Publish.Bucket == "" {
		errs = append(errs, "publish.bucket is required when publish.endpoint is set")
	}
	return errs
}

func (c *Config) validateOutput() []string {
	var errs []string
	if c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}
	if c.Output.LegacyCountry == "" || c.Output.LegacyFile == "" {
		errs = append(errs, "output.legacy_country and output.legacy_file are required")
	}
	if !strings.Contains(c.Output.NameTemplate, output.CodePlaceholder) {
		errs = append(errs, "output.name_template must contain "+output.CodePlaceholder)
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch strings.ToLower(c.Store.Driver) {
	case "", store.DriverNone:
		return nil
	case store.DriverSQLite, store.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for driver " + c.Store.Driver}
		}
		return nil
	default:
		return []string{"store.driver must be one of none, sqlite, postgres"}
	}
}

func (c *Config) historyEnabled() bool {
	d := strings.ToLower(c.Store.Driver)
	return d == store.DriverSQLite || d == store.DriverPostgres
}

// HistoryEnabled reports whether a run history store is configured.
func (c *Config) HistoryEnabled() bool {
	return c.historyEnabled()
}

// StorePool returns pool sizing for the Postgres store.
func (c *Config) StorePool() *store.PoolConfig {
	return &store.PoolConfig{MaxConns: c.Store.MaxConns, MinConns: c.Store.MinConns}
}
