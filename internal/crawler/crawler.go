// Package crawler orchestrates the full pipeline: search for listings,
// fetch structured product data for each hit, and filter by market.
package crawler

import (
	"context"

	"go.uber.org/zap"

	"github.com/vianu/fraudcrawler/internal/processor"
	"github.com/vianu/fraudcrawler/pkg/serpapi"
	"github.com/vianu/fraudcrawler/pkg/zyte"
)

// Crawler wires the search client, the extraction client, and the market
// filter together.
type Crawler struct {
	search *serpapi.Client
	zyte   *zyte.Client
	proc   *processor.Processor
}

// New creates a Crawler from its collaborators.
func New(search *serpapi.Client, zc *zyte.Client, proc *processor.Processor) *Crawler {
	return &Crawler{search: search, zyte: zc, proc: proc}
}

// Run executes the pipeline in sequential mode: one extraction call in
// flight at a time. URLs whose extraction attempts are all exhausted are
// dropped, so the result may be shorter than the search hit list.
func (c *Crawler) Run(ctx context.Context, searchTerm string, numResults int) ([]zyte.Record, error) {
	urls, err := c.search.Search(ctx, searchTerm, numResults)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		zap.L().Warn("no urls found for search term",
			zap.String("search_term", searchTerm),
		)
		return nil, nil
	}

	records := c.zyte.FetchAll(ctx, urls)
	if len(records) == 0 {
		zap.L().Warn("no product details fetched")
		return nil, nil
	}

	filtered := c.proc.Filter(records)
	if len(filtered) == 0 {
		zap.L().Warn("no products left after filtering")
	}

	zap.L().Info("crawl completed",
		zap.String("search_term", searchTerm),
		zap.Int("products", len(filtered)),
	)
	return filtered, nil
}

// Stream executes the pipeline in concurrent mode: search hits are fed
// through the extraction worker pool, and results are collected as they
// arrive. Failed URLs surface as absence markers on the result channel and
// are discarded here after accounting.
func (c *Crawler) Stream(ctx context.Context, searchTerm string, numResults int) ([]zyte.Record, error) {
	urls, err := c.search.Search(ctx, searchTerm, numResults)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		zap.L().Warn("no urls found for search term",
			zap.String("search_term", searchTerm),
		)
		return nil, nil
	}

	in := make(chan string)
	out := make(chan zyte.Result)

	go func() {
		defer close(in)
		for _, u := range urls {
			select {
			case in <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	fetchErr := make(chan error, 1)
	go func() {
		fetchErr <- c.zyte.Fetch(ctx, in, out)
	}()

	var records []zyte.Record
	var failed int
	for res := range out {
		if res.Record == nil {
			failed++
			continue
		}
		records = append(records, res.Record)
	}
	if err := <-fetchErr; err != nil {
		return nil, err
	}

	zap.L().Info("streaming fetch completed",
		zap.Int("fetched", len(records)),
		zap.Int("failed", failed),
	)

	filtered := c.proc.Filter(records)
	if len(filtered) == 0 {
		zap.L().Warn("no products left after filtering")
	}
	return filtered, nil
}
