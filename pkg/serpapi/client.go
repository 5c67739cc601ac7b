// Package serpapi provides a client for the SERP API, used to turn a search
// term into a list of organic-result URLs.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vianu/fraudcrawler/internal/resilience"
)

// Default base URL for the SERP API.
const defaultBaseURL = "https://serpapi.com"

// Search engine requested for every query.
const engine = "google"

// Hard cap on the number of URLs returned for a single search term.
const maxResults = 200

// searchResponse is the subset of the SERP API response we consume.
type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
}

type organicResult struct {
	Link string `json:"link"`
}

// APIError is returned when the SERP API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serpapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetry sets the retry policy for search calls.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithRateLimit overrides the politeness limiter in front of the API.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// Client performs searches against the SERP API.
type Client struct {
	apiKey      string
	baseURL     string
	location    string
	maxAttempts int
	retryDelay  time.Duration
	limiter     *rate.Limiter
	http        *http.Client
}

// NewClient creates a SERP API client scoped to the given location.
func NewClient(apiKey, location string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		location:    location,
		maxAttempts: 5,
		retryDelay:  5 * time.Second,
		limiter:     rate.NewLimiter(1, 5),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search performs a search and returns the organic-result URLs, at most
// numResults of them (capped at 200). Failed calls are retried with a fixed
// delay; exhausting retries returns the last error.
func (c *Client) Search(ctx context.Context, searchTerm string, numResults int) ([]string, error) {
	zap.L().Info("performing search",
		zap.String("search_term", searchTerm),
		zap.String("location", c.location),
		zap.Int("num_results", numResults),
	)

	cfg := resilience.RetryConfig{
		MaxAttempts: c.maxAttempts,
		Delay:       c.retryDelay,
		OnRetry:     resilience.RetryLogger("serpapi", searchTerm, c.retryDelay),
	}
	urls, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]string, error) {
		return c.search(ctx, searchTerm, numResults)
	})
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: all search attempts failed")
	}

	if len(urls) > maxResults {
		zap.L().Warn("reached result limit for search term",
			zap.String("search_term", searchTerm),
			zap.Int("limit", maxResults),
		)
		urls = urls[:maxResults]
	}

	zap.L().Info("search returned urls", zap.Int("urls", len(urls)))
	return urls, nil
}

func (c *Client) search(ctx context.Context, searchTerm string, numResults int) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "serpapi: rate limit wait")
	}

	params := url.Values{}
	params.Set("engine", engine)
	params.Set("api_key", c.apiKey)
	params.Set("location_requested", c.location)
	params.Set("location_used", c.location)
	params.Set("q", searchTerm)
	params.Set("num", strconv.Itoa(numResults))

	reqURL := c.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}

	zap.L().Debug("serpapi request",
		zap.String("url", maskKey(reqURL, c.apiKey)),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var sr searchResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, eris.Wrap(err, "serpapi: decode response")
	}

	urls := make([]string, 0, len(sr.OrganicResults))
	for _, r := range sr.OrganicResults {
		if r.Link != "" {
			urls = append(urls, r.Link)
		}
	}
	return urls, nil
}
