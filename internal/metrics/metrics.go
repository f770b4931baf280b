// Package metrics exposes Prometheus collectors for the harvester service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchAttemptsTotal   *prometheus.CounterVec
	fetchRetriesTotal    prometheus.Counter
	pagesCrawledTotal    prometheus.Counter
	playersExtractedTotal prometheus.Counter
	crawlRunsTotal       *prometheus.CounterVec
	crawlDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futdex_fetch_attempts_total",
				Help: "Total HTTP fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "futdex_fetch_retries_total",
				Help: "Total retries triggered by 429/5xx responses.",
			},
		)

		pagesCrawledTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "futdex_pages_crawled_total",
				Help: "Total source pages fully processed.",
			},
		)

		playersExtractedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "futdex_players_extracted_total",
				Help: "Total player rows extracted before dedupe.",
			},
		)

		crawlRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futdex_crawl_runs_total",
				Help: "Total crawl runs, labeled by status.",
			},
			[]string{"status"},
		)

		crawlDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "futdex_crawl_duration_seconds",
				Help:    "Histogram of full crawl run durations.",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch increments the attempt counter for the given outcome
// ("ok", "retryable", "fatal").
func ObserveFetch(outcome string) {
	Init()
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRetry counts one backoff-and-retry cycle.
func ObserveRetry() {
	Init()
	fetchRetriesTotal.Inc()
}

// ObservePage counts one fully processed page and its extracted rows.
func ObservePage(players int) {
	Init()
	pagesCrawledTotal.Inc()
	if players > 0 {
		playersExtractedTotal.Add(float64(players))
	}
}

// ObserveRun records the end of a crawl run with its status
// ("completed", "interrupted") and wall duration in seconds.
func ObserveRun(status string, seconds float64) {
	Init()
	crawlRunsTotal.WithLabelValues(status).Inc()
	crawlDurationSeconds.Observe(seconds)
}
