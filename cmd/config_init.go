package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vianu/fraudcrawler/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config.yaml with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"

		if !configInitForce {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}

		defaults := config.Config{
			SerpAPI: config.SerpAPIConfig{
				BaseURL:        "https://serpapi.com",
				MaxAttempts:    5,
				RetryDelaySecs: 5,
			},
			Zyte: config.ZyteConfig{
				BaseURL:        "https://api.zyte.com/v1",
				MaxAttempts:    1,
				RetryDelaySecs: 10,
				LimitPerHost:   5,
				Geolocation:    "CH",
			},
			Crawl: config.CrawlConfig{
				Location:   "Switzerland",
				NumResults: 10,
				Output:     "output.json",
			},
			Log: config.LogConfig{
				Level:  "info",
				Format: "json",
			},
		}

		data, err := yaml.Marshal(defaults)
		if err != nil {
			return eris.Wrap(err, "marshal default config")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrap(err, "write default config")
		}

		zap.L().Info("default config written", zap.String("path", path))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config.yaml")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
