package zyte

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vianu/fraudcrawler/internal/resilience"
)

// Result pairs an input URL with its fetch outcome. Record is nil when every
// attempt for the URL failed, so consumers of the concurrent fetcher see a
// 1:1 accounting between URLs in and results out.
type Result struct {
	URL    string
	Record Record
}

// retryConfig builds the per-URL retry policy. Every failure class is
// retryable here: transport errors, non-2xx responses, and malformed bodies
// all consume one attempt.
func (c *Client) retryConfig(url string) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: c.maxAttempts,
		Delay:       c.retryDelay,
		OnRetry:     resilience.RetryLogger("zyte", url, c.retryDelay),
	}
}

// FetchAll fetches extraction records for the given URLs one at a time,
// blocking on each call and retrying in place. URLs whose attempts are all
// exhausted are logged and omitted from the result, so the output may be
// shorter than the input.
func (c *Client) FetchAll(ctx context.Context, urls []string) []Record {
	zap.L().Info("fetching product details",
		zap.Int("urls", len(urls)),
	)

	records := make([]Record, 0, len(urls))
	for i, url := range urls {
		rec, err := resilience.DoVal(ctx, c.retryConfig(url), func(ctx context.Context) (Record, error) {
			return c.Extract(ctx, url)
		})
		if err != nil {
			zap.L().Error("all attempts failed for url",
				zap.String("url", url),
				zap.Error(err),
			)
		} else {
			records = append(records, rec)
		}
		zap.L().Debug("fetch progress",
			zap.Int("done", i+1),
			zap.Int("total", len(urls)),
		)
		if ctx.Err() != nil {
			break
		}
	}

	zap.L().Info("fetched product details",
		zap.Int("records", len(records)),
	)
	return records
}

// Fetch drains URLs from in and pushes one Result per URL onto out, running
// up to the client's per-host limit of extraction calls concurrently. Each
// URL gets its own retry loop; the retry delay is applied only after a
// failed attempt, never after a success. The input channel being closed is
// the shutdown signal; Fetch closes out once every in-flight URL has been
// accounted for. In-flight calls are not interrupted by cancellation.
func (c *Client) Fetch(ctx context.Context, in <-chan string, out chan<- Result) error {
	defer close(out)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.limitPerHost; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case url, ok := <-in:
					if !ok {
						return nil
					}
					rec, err := resilience.DoVal(gctx, c.retryConfig(url), func(ctx context.Context) (Record, error) {
						return c.Extract(ctx, url)
					})
					if err != nil {
						zap.L().Error("all attempts failed for url",
							zap.String("url", url),
							zap.Error(err),
						)
						rec = nil
					}
					select {
					case out <- Result{URL: url, Record: rec}:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			}
		})
	}
	return g.Wait()
}
