package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vianu/fraudcrawler/internal/crawler"
	"github.com/vianu/fraudcrawler/internal/processor"
	"github.com/vianu/fraudcrawler/pkg/serpapi"
	"github.com/vianu/fraudcrawler/pkg/zyte"
)

var (
	crawlTerm     string
	crawlLocation string
	crawlNum      int
	crawlOutput   string
	crawlStream   bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Search for listings and extract product data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateKeys(); err != nil {
			return err
		}

		location := crawlLocation
		if location == "" {
			location = cfg.Crawl.Location
		}
		num := crawlNum
		if num <= 0 {
			num = cfg.Crawl.NumResults
		}
		output := crawlOutput
		if output == "" {
			output = cfg.Crawl.Output
		}

		c := crawler.New(newSearchClient(location), newZyteClient(), processor.New(location))

		run := c.Run
		if crawlStream {
			run = c.Stream
		}
		records, err := run(ctx, crawlTerm, num)
		if err != nil {
			return err
		}

		report := crawler.BuildReport(crawler.Query{
			SearchTerm: crawlTerm,
			NumResults: num,
			Location:   location,
		}, records)
		return report.WriteJSON(output)
	},
}

func newSearchClient(location string) *serpapi.Client {
	return serpapi.NewClient(cfg.SerpAPI.Key, location,
		serpapi.WithBaseURL(cfg.SerpAPI.BaseURL),
		serpapi.WithRetry(cfg.SerpAPI.MaxAttempts, time.Duration(cfg.SerpAPI.RetryDelaySecs)*time.Second),
	)
}

func newZyteClient() *zyte.Client {
	opts := zyte.DefaultOptions()
	if cfg.Zyte.Geolocation != "" {
		opts.Geolocation = cfg.Zyte.Geolocation
	}
	return zyte.NewClient(cfg.Zyte.Key,
		zyte.WithBaseURL(cfg.Zyte.BaseURL),
		zyte.WithOptions(opts),
		zyte.WithRetry(cfg.Zyte.MaxAttempts, time.Duration(cfg.Zyte.RetryDelaySecs)*time.Second),
		zyte.WithLimitPerHost(cfg.Zyte.LimitPerHost),
	)
}

func init() {
	crawlCmd.Flags().StringVar(&crawlTerm, "term", "", "search term (required)")
	crawlCmd.Flags().StringVar(&crawlLocation, "location", "", "search location (default from config)")
	crawlCmd.Flags().IntVar(&crawlNum, "num", 0, "number of search results to process (default from config)")
	crawlCmd.Flags().StringVar(&crawlOutput, "output", "", "report output path (default from config)")
	crawlCmd.Flags().BoolVar(&crawlStream, "stream", false, "fetch concurrently through the worker pool")
	_ = crawlCmd.MarkFlagRequired("term")
	rootCmd.AddCommand(crawlCmd)
}
