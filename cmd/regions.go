package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/osm-cameras/internal/config"
	"github.com/sells-group/osm-cameras/internal/region"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Print the effective region table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate(config.ModeRegions); err != nil {
			return err
		}
		table, err := region.Load(cfg.Regions.File)
		if err != nil {
			return err
		}
		formatRegions(os.Stdout, table)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}
