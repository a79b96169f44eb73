package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "terrain-cli",
	Short: "Terrain analysis from elevation samples",
	Long:  "Computes slope, aspect and roughness metrics for polygon areas from elevation samples, scores them for accessibility and flood risk, and stores the results in PostGIS or SQLite.",
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
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
