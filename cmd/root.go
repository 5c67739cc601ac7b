package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vianu/fraudcrawler/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fraudcrawler",
	Short: "Suspicious product listing crawler",
	Long:  "Searches the web for product listings, fetches structured product data for each hit via the Zyte extraction API, filters by market, and writes a JSON report.",
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
