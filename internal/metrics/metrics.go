// Package metrics exposes Prometheus collectors for the catalog service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	metadataFetchesTotal       *prometheus.CounterVec
	metadataFetchSeconds       *prometheus.HistogramVec
	productWritesTotal         *prometheus.CounterVec
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		metadataFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_metadata_fetches_total",
				Help: "Total number of link-preview lookups, labeled by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		)

		metadataFetchSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_metadata_fetch_seconds",
				Help:    "Histogram of link-preview lookup latencies, labeled by provider.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		)

		productWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_product_writes_total",
				Help: "Total number of product submissions, labeled by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_rate_limit_delays_seconds",
				Help:    "Histogram of outbound rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveMetadataFetch records one link-preview lookup.
func ObserveMetadataFetch(provider, outcome string, duration time.Duration) {
	Init()
	metadataFetchesTotal.WithLabelValues(provider, outcome).Inc()
	metadataFetchSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveProductWrite records a create or update submission.
func ObserveProductWrite(operation, outcome string) {
	Init()
	productWritesTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}
