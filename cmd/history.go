package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/osm-cameras/internal/config"
	"github.com/sells-group/osm-cameras/internal/resilience"
	"github.com/sells-group/osm-cameras/internal/store"
)

// historyRetry retries opening the store while a database is still coming up.
// Only transient failures such as refused connections are retried.
var historyRetry = resilience.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Second,
	MaxBackoff:     4 * time.Second,
	Multiplier:     2,
	OnRetry:        resilience.RetryLogger("store", "open"),
}

// openHistory opens and migrates the configured run history store.
func openHistory(ctx context.Context, c *config.Config) (store.Store, error) {
	var st store.Store
	err := resilience.Do(ctx, historyRetry, func(ctx context.Context) error {
		s, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL, c.StorePool())
		if err != nil {
			return err
		}
		st = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Inspect harvest run history",
	Long:  "Lists recent runs from the history store, or the per-country outcomes of one run when a run id is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(config.ModeHistory); err != nil {
			return err
		}
		st, err := openHistory(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "history: open store")
		}
		defer st.Close() //nolint:errcheck

		if len(args) == 1 {
			outcomes, err := st.ListCountries(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "history: list countries")
			}
			if len(outcomes) == 0 {
				fmt.Fprintln(os.Stderr, "No countries recorded for run.")
				return nil
			}
			formatCountryOutcomes(os.Stdout, outcomes)
			return nil
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, store.RunFilter{Status: store.RunStatus(status), Limit: limit})
		if err != nil {
			return eris.Wrap(err, "history: list runs")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("status", "", "filter by run status (running, complete, interrupted)")
	historyCmd.Flags().Int("limit", 20, "max number of runs to display")
	rootCmd.AddCommand(historyCmd)
}
