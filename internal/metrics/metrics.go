// Package metrics exposes Prometheus instrumentation for the scoring
// pipeline, the forecaster and the HTTP API. A nil *Metrics is valid and
// records nothing, so callers never need to guard their calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
)

const namespace = "cwd"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	rowsRead        prometheus.Counter
	rowsSkipped     prometheus.Counter
	rowsDropped     prometheus.Counter
	recommendations *prometheus.CounterVec
	storeFailures   prometheus.Counter
	batchDuration   prometheus.Histogram

	prediction prometheus.Gauge
	alerts     prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		rowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "rows_read_total",
			Help: "Billing rows handed to the scoring pipeline.",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "rows_skipped_total",
			Help: "Rows rejected by normalization.",
		}),
		rowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "rows_dropped_total",
			Help: "Normalized records dropped for having zero cost and usage.",
		}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "recommendations_total",
			Help: "Recommendations written, by priority.",
		}, []string{"priority"}),
		storeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "store_failures_total",
			Help: "Resources whose recommendation could not be stored.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "batch_duration_seconds",
			Help:    "Wall time of one scoring batch.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		prediction: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "forecast", Name: "ensemble_prediction",
			Help: "Most recent ensemble cost prediction.",
		}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "forecast", Name: "alerts_total",
			Help: "Cost alerts sent.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "API requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rowsRead, m.rowsSkipped, m.rowsDropped, m.recommendations,
		m.storeFailures, m.batchDuration, m.prediction, m.alerts,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// BatchStats is what the pipeline reports after each batch.
type BatchStats struct {
	RowsRead        int
	RowsSkipped     int
	RowsDropped     int
	Recommendations []models.WasteRecommendation
	Failures        int
	Duration        time.Duration
}

func (m *Metrics) ObserveBatch(s BatchStats) {
	if m == nil {
		return
	}
	m.rowsRead.Add(float64(s.RowsRead))
	m.rowsSkipped.Add(float64(s.RowsSkipped))
	m.rowsDropped.Add(float64(s.RowsDropped))
	m.storeFailures.Add(float64(s.Failures))
	for _, r := range s.Recommendations {
		m.recommendations.WithLabelValues(string(r.Priority)).Inc()
	}
	m.batchDuration.Observe(s.Duration.Seconds())
}

func (m *Metrics) ObservePrediction(p models.Prediction, alerted bool) {
	if m == nil {
		return
	}
	m.prediction.Set(p.EnsemblePrediction)
	if alerted {
		m.alerts.Inc()
	}
}

// ObserveRequest records one API request. route is the matched route
// template, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
