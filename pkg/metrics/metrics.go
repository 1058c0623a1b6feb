// Package metrics bundles the Prometheus collectors exposed when a
// metrics listen address is configured. All methods are nil-safe so
// callers never have to guard the disabled case.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the downloader's Prometheus collectors
type Metrics struct {
	Registry         *prometheus.Registry
	CanvasesTotal    *prometheus.CounterVec
	BytesTotal       prometheus.Counter
	TransferDuration prometheus.Histogram
	RetriesTotal     prometheus.Counter
	RateDelay        prometheus.Gauge
}

// New constructs and registers all collectors on a dedicated registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	canvases := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iiifdl_canvases_total",
			Help: "Canvases processed, by outcome.",
		},
		[]string{"outcome"},
	)
	bytesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "iiifdl_bytes_downloaded_total",
			Help: "Total image bytes written to disk.",
		},
	)
	transferDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "iiifdl_transfer_duration_seconds",
			Help:    "Wall time per completed image transfer.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "iiifdl_retries_total",
			Help: "Retry attempts scheduled across all transfers.",
		},
	)
	rateDelay := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "iiifdl_rate_delay_seconds",
			Help: "Current pause the rate limiter imposes between requests.",
		},
	)

	registry.MustRegister(canvases, bytesTotal, transferDuration, retries, rateDelay)

	return &Metrics{
		Registry:         registry,
		CanvasesTotal:    canvases,
		BytesTotal:       bytesTotal,
		TransferDuration: transferDuration,
		RetriesTotal:     retries,
		RateDelay:        rateDelay,
	}
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// IncCanvas counts one processed canvas by outcome
// ("downloaded", "skipped", "failed", "migrated")
func (m *Metrics) IncCanvas(outcome string) {
	if m == nil {
		return
	}
	m.CanvasesTotal.WithLabelValues(outcome).Inc()
}

// AddBytes adds to the downloaded byte total
func (m *Metrics) AddBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesTotal.Add(float64(n))
}

// ObserveTransfer records one completed transfer's duration
func (m *Metrics) ObserveTransfer(d time.Duration) {
	if m == nil {
		return
	}
	m.TransferDuration.Observe(d.Seconds())
}

// AddRetries counts n scheduled retry attempts
func (m *Metrics) AddRetries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RetriesTotal.Add(float64(n))
}

// SetRateDelay publishes the limiter's current inter-request pause
func (m *Metrics) SetRateDelay(d time.Duration) {
	if m == nil {
		return
	}
	m.RateDelay.Set(d.Seconds())
}
