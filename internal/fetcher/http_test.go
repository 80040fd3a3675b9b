package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/divar-cli/internal/resilience"
)

type payload struct {
	Name string `json:"name"`
}

func newTestFetcher(maxAttempts int) *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent: "test-agent",
		Timeout:   2 * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    maxAttempts,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			Multiplier:     2,
		},
	})
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"name": "فروشگاه"}`))
	}))
	defer srv.Close()

	var out payload
	require.NoError(t, newTestFetcher(3).FetchJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "فروشگاه", out.Name)
}

func TestFetchJSON_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch attempts.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{"name": "ok"}`))
		}
	}))
	defer srv.Close()

	var out payload
	require.NoError(t, newTestFetcher(5).FetchJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "ok", out.Name)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchJSON_RetriesDroppedConnections(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, _ := hj.Hijack()
				conn.Close() //nolint:errcheck
				return
			}
		}
		_, _ = w.Write([]byte(`{"name": "ok"}`))
	}))
	defer srv.Close()

	var out payload
	require.NoError(t, newTestFetcher(5).FetchJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "ok", out.Name)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchJSON_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var out payload
	err := newTestFetcher(4).FetchJSON(context.Background(), srv.URL, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrRetriesExhausted))
	assert.Equal(t, int32(4), attempts.Load())
}

func TestFetchJSON_MalformedBodyNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	var out payload
	err := newTestFetcher(5).FetchJSON(context.Background(), srv.URL, &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, resilience.ErrRetriesExhausted))
	assert.Contains(t, err.Error(), "decode body")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetchJSON_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var out payload
	err := newTestFetcher(5).FetchJSON(context.Background(), srv.URL, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 404")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetchJSON_TimeoutRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			time.Sleep(300 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{"name": "late"}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Timeout: 100 * time.Millisecond,
		Retry:   resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	})

	var out payload
	require.NoError(t, f.FetchJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "late", out.Name)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestFetchJSON_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out payload
	err := newTestFetcher(5).FetchJSON(ctx, srv.URL, &out)
	require.Error(t, err)
	assert.False(t, errors.Is(err, resilience.ErrRetriesExhausted))
}

func TestFetchJSON_Paced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{RequestsPerSecond: 20})
	require.NotNil(t, f.limiter)

	start := time.Now()
	for range 3 {
		var out payload
		require.NoError(t, f.FetchJSON(context.Background(), srv.URL, &out))
	}
	// Burst of one: the second and third requests each wait ~50ms.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, 20*time.Second, f.client.Timeout)
	assert.Equal(t, "divar-cli/1.0", f.opts.UserAgent)
	assert.Equal(t, 5, f.opts.Retry.MaxAttempts)
	assert.Nil(t, f.limiter)
}
