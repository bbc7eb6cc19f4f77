package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "catalog-cli/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()
	assert.EqualValues(t, 3, calls.Load())
}

func TestDownloadExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
}

func TestDownloadNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 2, "results": [{"identifier": "000003"}, {"identifier": "000004"}]}`))
	}))
	defer srv.Close()

	var out struct {
		Count   int `json:"count"`
		Results []struct {
			Identifier string `json:"identifier"`
		} `json:"results"`
	}
	require.NoError(t, newTestFetcher().GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, 2, out.Count)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "000003", out.Results[0].Identifier)
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req["query"], "datasets")
		w.Write([]byte(`{"data": {"datasets": {"edges": []}}}`))
	}))
	defer srv.Close()

	var out struct {
		Data json.RawMessage `json:"data"`
	}
	err := newTestFetcher().PostJSON(context.Background(), srv.URL,
		map[string]string{"query": "query { datasets { edges } }"}, &out)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Data)
}

func TestPostJSONRetriedAfter429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"query":"q"}`, string(data))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out map[string]any
	err := newTestFetcher().PostJSON(context.Background(), srv.URL, map[string]string{"query": "q"}, &out)
	require.NoError(t, err)
	// the body must be replayed intact on the retry
	assert.EqualValues(t, 2, calls.Load())
}

func TestAdaptiveLimiterBounds(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	for range 20 {
		lim.OnSuccess()
	}
	assert.Equal(t, rate.Limit(20), lim.Limit())

	for range 20 {
		lim.OnRateLimit()
	}
	assert.Equal(t, rate.Limit(2.5), lim.Limit())
}

func TestLimiterForHost(t *testing.T) {
	f := newTestFetcher()

	lim := f.limiterFor("https://physionet.org/files/sleep-edfx")
	assert.Equal(t, rate.Limit(2), lim.Limit())

	fallback := f.limiterFor("https://example.com/data")
	assert.Equal(t, rate.Limit(20), fallback.Limit())
}
