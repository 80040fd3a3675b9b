// Package metrics exposes Prometheus collectors for the harvesting pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes recorded on divar_http_requests_total.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeFailure   = "failure"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds prometheus.Histogram
	httpRetriesTotal           prometheus.Counter
	httpRetriesExhaustedTotal  prometheus.Counter
	pagesTotal                 *prometheus.CounterVec
	itemsAppendedTotal         *prometheus.CounterVec
	recordsExportedTotal       *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "divar_http_requests_total",
				Help: "Total number of marketplace HTTP requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		httpRequestDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "divar_http_request_duration_seconds",
				Help:    "Histogram of marketplace HTTP request latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
		)

		httpRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "divar_http_retries_total",
				Help: "Total number of retried marketplace requests.",
			},
		)

		httpRetriesExhaustedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "divar_http_retries_exhausted_total",
				Help: "Total number of requests that failed after every retry.",
			},
		)

		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "divar_pages_total",
				Help: "Total number of listing pages crawled, labeled by collection.",
			},
			[]string{"collection"},
		)

		itemsAppendedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "divar_items_appended_total",
				Help: "Total number of items appended to a collection.",
			},
			[]string{"collection"},
		)

		recordsExportedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "divar_records_exported_total",
				Help: "Total number of records written to spreadsheet artifacts.",
			},
			[]string{"collection"},
		)
	})
}

// ObserveRequest records one HTTP attempt and its latency.
func ObserveRequest(outcome string, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(outcome).Inc()
	httpRequestDurationSeconds.Observe(duration.Seconds())
}

// ObserveRetry increments the retry counter.
func ObserveRetry() {
	Init()
	httpRetriesTotal.Inc()
}

// ObserveRetriesExhausted increments the exhausted-retries counter.
func ObserveRetriesExhausted() {
	Init()
	httpRetriesExhaustedTotal.Inc()
}

// ObservePage records one crawled listing page.
func ObservePage(collection string) {
	Init()
	pagesTotal.WithLabelValues(collection).Inc()
}

// ObserveAppend records items appended to a collection.
func ObserveAppend(collection string, items int) {
	Init()
	itemsAppendedTotal.WithLabelValues(collection).Add(float64(items))
}

// ObserveExport records records written to an artifact.
func ObserveExport(collection string, records int) {
	Init()
	recordsExportedTotal.WithLabelValues(collection).Add(float64(records))
}
