package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	samplesIngested *prometheus.CounterVec
	samplesSkipped  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       prometheus.Gauge
	latency         *prometheus.HistogramVec
	cacheResults    *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		samplesIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetrend_samples_ingested_total",
				Help: "Total number of samples written to the series",
			},
			[]string{"source"},
		),
		samplesSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetrend_samples_skipped_total",
				Help: "Total number of rows skipped because the hour already existed",
			},
			[]string{"source"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetrend_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pricetrend_last_price_cents",
				Help: "Last recorded price in minor currency units",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricetrend_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricetrend_query_cache_total",
				Help: "Query cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordSampleIngested records a sample written to the series.
func (r *Recorder) RecordSampleIngested(source string) {
	r.samplesIngested.WithLabelValues(source).Inc()
}

// RecordSampleSkipped records a row skipped by upsert-if-absent.
func (r *Recorder) RecordSampleSkipped(source string) {
	r.samplesSkipped.WithLabelValues(source).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the most recent price.
func (r *Recorder) RecordLastPrice(priceCents uint32) {
	r.lastPrice.Set(float64(priceCents))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheResult records a query cache hit or miss.
func (r *Recorder) RecordCacheResult(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheResults.WithLabelValues(result).Inc()
}
