package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ice-maker",
	Short: "Build and maintain the ice rink locations directory",
	Long:  "Scrapes public rink listings into a staging database, verifies addresses against Nominatim, deduplicates across sources, and promotes verified rinks into the locations directory shared with skatetrax.",
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
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
