// Package metrics provides internal Prometheus collectors for the
// promotion and serving paths.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector bundles the service's Prometheus metrics. A nil *Collector is
// valid and records nothing, so tests can run without a registry.
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	predictionsTotal  *prometheus.CounterVec
	predictDuration   prometheus.Histogram
	reloadsTotal      *prometheus.CounterVec
	promotionsTotal   *prometheus.CounterVec
	activeModelVersion prometheus.Gauge
}

// NewCollector registers the collectors with reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		predictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Predictions served, labeled by serving status",
			},
			[]string{"status"},
		),
		predictDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "predict_duration_seconds",
				Help:      "Prediction latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		reloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_reloads_total",
				Help:      "Serving cache reloads, labeled by outcome",
			},
			[]string{"outcome"},
		),
		promotionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promotions_total",
				Help:      "Promotion evaluations, labeled by result",
			},
			[]string{"result"},
		),
		activeModelVersion: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_model_version",
				Help:      "Version number currently loaded by the serving cache",
			},
		),
	}
}

func (c *Collector) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (c *Collector) ObservePrediction(status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.predictionsTotal.WithLabelValues(status).Inc()
	c.predictDuration.Observe(elapsed.Seconds())
}

func (c *Collector) IncReload(outcome string) {
	if c == nil {
		return
	}
	c.reloadsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncPromotion(result string) {
	if c == nil {
		return
	}
	c.promotionsTotal.WithLabelValues(result).Inc()
}

func (c *Collector) SetActiveVersion(version int) {
	if c == nil {
		return
	}
	c.activeModelVersion.Set(float64(version))
}
