package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-cameras/internal/config"
	"github.com/sells-group/osm-cameras/internal/harvest"
	"github.com/sells-group/osm-cameras/internal/metrics"
	"github.com/sells-group/osm-cameras/internal/output"
	"github.com/sells-group/osm-cameras/internal/publish"
	"github.com/sells-group/osm-cameras/internal/region"
	"github.com/sells-group/osm-cameras/internal/store"
	"github.com/sells-group/osm-cameras/pkg/overpass"
)

var fetchCountries string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch cameras for the selected countries and write their files",
	Long:  "Fetches every bounding box of each selected country from Overpass, normalizes and dedupes the cameras, and writes one file per country. Countries come from --countries, then COUNTRIES, then the whole table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd)
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchCountries, "countries", "", "comma-separated country codes or \"all\" (default from COUNTRIES)")
	rootCmd.AddCommand(fetchCmd)
}

// harvestEnv holds everything a fetch run needs. Close releases the store.
type harvestEnv struct {
	Table     *region.Table
	Harvester *harvest.Harvester
	Metrics   *metrics.Metrics
	Store     store.Store // may be nil
}

// Close releases resources held by the environment.
func (e *harvestEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func runFetch(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(config.ModeFetch); err != nil {
		return err
	}

	table, err := region.Load(cfg.Regions.File)
	if err != nil {
		return err
	}

	raw := cfg.Countries
	if fetchCountries != "" {
		raw = fetchCountries
	}
	countries, err := region.Select(table, raw)
	if errors.Is(err, region.ErrEmptySelection) {
		fmt.Fprintf(os.Stderr, "No known countries in selection %q; nothing to do.\n", raw)
		return nil
	}
	if err != nil {
		return err
	}

	env, err := initHarvest(ctx, cfg, table)
	if err != nil {
		return err
	}
	defer env.Close()

	sum, err := env.Harvester.Run(ctx, countries)
	if err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := env.Metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			zap.L().Warn("failed to write metrics textfile",
				zap.String("path", cfg.Metrics.Textfile),
				zap.Error(err),
			)
		}
	}

	formatSummary(os.Stdout, sum)
	return nil
}

// initHarvest builds the Overpass client, writer and optional sinks from
// configuration. Callers should defer env.Close().
func initHarvest(ctx context.Context, c *config.Config, table *region.Table) (*harvestEnv, error) {
	exporters, err := output.ParseFormats(c.Output.Formats)
	if err != nil {
		return nil, err
	}
	writer := output.NewWriter(c.Output.Layout(), exporters...)

	client := overpass.NewClient(overpass.Options{
		URL:          c.Overpass.URL,
		QueryTimeout: c.Overpass.QueryTimeout(),
		UserAgent:    c.Overpass.UserAgent,
		RatePerSec:   c.Overpass.RatePerSec,
		Retry:        c.Retry.Policy(),
	})

	env := &harvestEnv{Table: table, Metrics: metrics.New()}
	opts := []harvest.Option{
		harvest.WithPause(c.Harvest.Pause()),
		harvest.WithMetrics(env.Metrics),
	}

	if c.HistoryEnabled() {
		st, err := openHistory(ctx, c)
		if err != nil {
			// History is optional; the harvest still runs without it.
			zap.L().Warn("run history unavailable", zap.String("driver", c.Store.Driver), zap.Error(err))
		} else {
			env.Store = st
			opts = append(opts, harvest.WithRecorder(st))
		}
	}

	if c.Publish.Enabled() {
		pub, err := publish.New(publish.Config{
			Endpoint:  c.Publish.Endpoint,
			Bucket:    c.Publish.Bucket,
			Prefix:    c.Publish.Prefix,
			AccessKey: c.Publish.AccessKey,
			SecretKey: c.Publish.SecretKey,
			UseSSL:    c.Publish.UseSSL,
		})
		if err != nil {
			env.Close()
			return nil, eris.Wrap(err, "init publisher")
		}
		opts = append(opts, harvest.WithPublisher(pub))
	}

	zap.L().Info("overpass client ready",
		zap.String("url", c.Overpass.URL),
		zap.Duration("http_timeout", client.Timeout()),
		zap.Int("max_attempts", c.Retry.Policy().MaxAttempts),
	)

	env.Harvester = harvest.New(client, writer, opts...)
	return env, nil
}
