// Package zyte provides a client for the Zyte extraction API, which returns
// structured product data scraped from a target page.
package zyte

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/vianu/fraudcrawler/internal/resilience"
)

// Default base URL for the Zyte extraction API.
const defaultBaseURL = "https://api.zyte.com/v1"

// Record is the structured payload returned for one extracted page. The
// field set depends on what the API could extract; the only guaranteed key
// is "url", which the client injects with the requesting URL.
type Record map[string]any

// URL returns the injected source URL of the record.
func (r Record) URL() string {
	u, _ := r["url"].(string)
	return u
}

// Viewport is the browser viewport used for rendering-based extraction.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ProductOptions selects the source the product fields are extracted from.
type ProductOptions struct {
	ExtractFrom string `json:"extractFrom"`
}

// Options is the fixed extraction configuration applied to every request.
// It is set once at client construction and never mutated per call; the
// request body is built as a copy of these options merged with the target
// URL.
type Options struct {
	JavaScript       bool           `json:"javascript"`
	BrowserHTML      bool           `json:"browserHtml"`
	Screenshot       bool           `json:"screenshot"`
	ProductOptions   ProductOptions `json:"productOptions"`
	HTTPResponseBody bool           `json:"httpResponseBody"`
	Geolocation      string         `json:"geolocation"`
	Viewport         Viewport       `json:"viewport"`
	Product          bool           `json:"product"`
}

// DefaultOptions returns the production extraction configuration.
func DefaultOptions() Options {
	return Options{
		ProductOptions:   ProductOptions{ExtractFrom: "httpResponseBody"},
		HTTPResponseBody: true,
		Geolocation:      "CH",
		Viewport:         Viewport{Width: 1280, Height: 1080},
		Product:          true,
	}
}

// extractRequest is the body for POST /extract: the client options plus the
// target URL.
type extractRequest struct {
	URL string `json:"url"`
	Options
}

// APIError is returned when the extraction API responds with a non-2xx
// status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zyte: HTTP %d: %s", e.StatusCode, e.Body)
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

// WithOptions overrides the default extraction options.
func WithOptions(opts Options) Option {
	return func(c *Client) {
		c.opts = opts
	}
}

// WithRetry sets the per-URL retry policy used by FetchAll and Fetch.
// maxAttempts counts the first try; delay is the fixed wait between
// attempts.
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

// WithLimitPerHost caps the number of concurrent extraction calls issued by
// the concurrent fetcher.
func WithLimitPerHost(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limitPerHost = n
		}
	}
}

// Client calls the Zyte extraction API. A Client is constructed once and is
// safe for reuse across fetch operations; it holds no per-call state.
type Client struct {
	apiKey       string
	baseURL      string
	opts         Options
	maxAttempts  int
	retryDelay   time.Duration
	limitPerHost int
	http         *http.Client
}

// NewClient creates a Zyte extraction client. The API key is used as the
// basic-auth username with an empty password.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		opts:         DefaultOptions(),
		maxAttempts:  1,
		retryDelay:   10 * time.Second,
		limitPerHost: 5,
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract performs a single extraction call for one URL. It is single-shot:
// retry policy lives in FetchAll and Fetch. On success the returned record
// carries the requesting URL under "url", overwriting any value the API
// response held for that key.
func (c *Client) Extract(ctx context.Context, targetURL string) (Record, error) {
	body, err := json.Marshal(extractRequest{URL: targetURL, Options: c.opts})
	if err != nil {
		return nil, eris.Wrap(err, "zyte: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "zyte: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "zyte: execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zyte: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "zyte: decode response")
	}
	// A JSON null decodes into a nil map without error; treat it as a
	// violated response contract, not a record.
	if rec == nil {
		return nil, eris.New("zyte: response body is not a JSON object")
	}
	rec["url"] = targetURL

	return rec, nil
}
