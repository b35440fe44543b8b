package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/osm-cameras/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "osm-cameras",
	Short: "Harvest speed cameras from OpenStreetMap",
	Long:  "Queries the Overpass API for speed cameras in each configured country and writes one JSON file per country for the static site.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	// Running the binary with no subcommand harvests, as the scheduled job does.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd)
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
