package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vianu/fraudcrawler/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL)}, opts...)
	return NewClient("test-api-key", "Switzerland", opts...)
}

func organicResults(links ...string) map[string]any {
	results := make([]map[string]any, 0, len(links))
	for _, l := range links {
		results = append(results, map[string]any{"link": l})
	}
	return map[string]any{"organic_results": results}
}

func TestSearch_HappyPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "test-api-key", q.Get("api_key"))
		assert.Equal(t, "Switzerland", q.Get("location_requested"))
		assert.Equal(t, "Switzerland", q.Get("location_used"))
		assert.Equal(t, "sildenafil kaufen", q.Get("q"))
		assert.Equal(t, "10", q.Get("num"))

		_ = json.NewEncoder(w).Encode(organicResults(
			"https://shop-a.ch/product",
			"https://shop-b.com/product",
		))
	})

	urls, err := c.Search(context.Background(), "sildenafil kaufen", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop-a.ch/product", "https://shop-b.com/product"}, urls)
}

func TestSearch_EmptyResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	urls, err := c.Search(context.Background(), "obscure term", 10)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestSearch_SkipsEmptyLinks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"organic_results": []map[string]any{
				{"link": "https://shop-a.ch"},
				{"title": "no link"},
			},
		})
	})

	urls, err := c.Search(context.Background(), "term", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop-a.ch"}, urls)
}

func TestSearch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(organicResults("https://shop-a.ch"))
	}, WithRetry(2, 0))

	urls, err := c.Search(context.Background(), "term", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop-a.ch"}, urls)
	assert.Equal(t, int64(2), calls.Load())
}

func TestSearch_ExhaustedRetries(t *testing.T) {
	var calls atomic.Int64
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"overloaded"}`))
	}, WithRetry(3, 0))

	_, err := c.Search(context.Background(), "term", 10)
	require.Error(t, err)
	assert.Equal(t, int64(3), calls.Load())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestSearch_TransientStatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"service unavailable", http.StatusServiceUnavailable, true},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"failed"}`))
			}, WithRetry(1, 0))

			_, err := c.Search(context.Background(), "term", 10)
			require.Error(t, err)
			assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
		})
	}
}

func TestSearch_CapsResultCount(t *testing.T) {
	links := make([]string, 250)
	for i := range links {
		links[i] = fmt.Sprintf("https://shop-%d.com", i)
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(organicResults(links...))
	})

	urls, err := c.Search(context.Background(), "term", 250)
	require.NoError(t, err)
	assert.Len(t, urls, maxResults)
}

func TestMaskKey(t *testing.T) {
	masked := maskKey("api_key=secret-token-1234&q=x", "secret-token-1234")
	assert.Equal(t, "api_key=secre*****&q=x", masked)
	assert.NotContains(t, masked, "secret-token-1234")
}

func TestMaskKey_ShortKey(t *testing.T) {
	assert.Equal(t, "key=abc*****", maskKey("key=abc", "abc"))
}

func TestMaskKey_QueryEscaped(t *testing.T) {
	key := "se cret+key"
	s := "api_key=" + "se+cret%2Bkey"
	masked := maskKey(s, key)
	assert.NotContains(t, masked, "se+cret%2Bkey")
}
