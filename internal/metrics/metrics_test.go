package metrics

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Idempotent(t *testing.T) {
	Init()
	Init()

	require.NotNil(t, httpRequestsTotal)
	require.NotNil(t, pagesTotal)
	require.NotNil(t, recordsExportedTotal)
}

func TestObserveRequest(t *testing.T) {
	Init()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(OutcomeTransient))

	ObserveRequest(OutcomeTransient, 20*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(OutcomeTransient)))
}

func TestObserveRetries(t *testing.T) {
	Init()
	retries := testutil.ToFloat64(httpRetriesTotal)
	exhausted := testutil.ToFloat64(httpRetriesExhaustedTotal)

	ObserveRetry()
	ObserveRetry()
	ObserveRetriesExhausted()

	assert.Equal(t, retries+2, testutil.ToFloat64(httpRetriesTotal))
	assert.Equal(t, exhausted+1, testutil.ToFloat64(httpRetriesExhaustedTotal))
}

func TestObserveCollections(t *testing.T) {
	ObservePage("metrics-test")
	ObserveAppend("metrics-test", 24)
	ObserveExport("metrics-test", 7)

	assert.Equal(t, float64(1), testutil.ToFloat64(pagesTotal.WithLabelValues("metrics-test")))
	assert.Equal(t, float64(24), testutil.ToFloat64(itemsAppendedTotal.WithLabelValues("metrics-test")))
	assert.Equal(t, float64(7), testutil.ToFloat64(recordsExportedTotal.WithLabelValues("metrics-test")))
}

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ObservePage("router-test")
	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, mresp.StatusCode)

	nresp, err := http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	defer nresp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, nresp.StatusCode)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
